package script

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rocketship-ai/scriptbridge/internal/script/runtime"
)

// MarshalEnvelope encodes data as a final_result envelope
func MarshalEnvelope(data json.RawMessage) ([]byte, error) {
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	out, err := json.Marshal(Envelope{Type: EnvelopeType, Data: data})
	if err != nil {
		return nil, runtime.WrapError(runtime.KindSerialization, err, "failed to encode result")
	}
	return out, nil
}

// WriteEnvelope writes the envelope for data to path, replacing any existing
// file. The document is written to a temporary file in the same directory and
// renamed into place, so readers never observe a partial file.
func WriteEnvelope(path string, data json.RawMessage) error {
	out, err := MarshalEnvelope(data)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))
	if err := os.WriteFile(tmp, out, 0644); err != nil {
		return runtime.WrapError(runtime.KindOutputWrite, err, "failed to write output file %s", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return runtime.WrapError(runtime.KindOutputWrite, err, "failed to write output file %s", path)
	}
	return nil
}
