package script

import (
	"encoding/json"
	"log/slog"
)

// EnvelopeType is the fixed type tag of a successful invocation's output.
const EnvelopeType = "final_result"

// Request describes a single invocation. It is built once from the command
// line and not modified afterwards.
type Request struct {
	ScriptPath string            `json:"script_path"`
	Method     string            `json:"method"`
	Level      slog.Level        `json:"log_level"` // Minimum level of records emitted for this request
	Arguments  []json.RawMessage `json:"arguments"`
	OutputPath string            `json:"output_path"`
}

// Envelope is the document written to the output file on success
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}
