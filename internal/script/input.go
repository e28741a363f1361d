package script

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rocketship-ai/scriptbridge/internal/script/runtime"
	"github.com/xeipuuv/gojsonschema"
)

// argumentsSchema is what the input file must satisfy: a JSON array whose
// elements are passed positionally.
const argumentsSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "array"
}`

var argumentsSchemaLoader = gojsonschema.NewStringLoader(argumentsSchema)

// ReadArguments reads the input file at path and returns its elements.
func ReadArguments(path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, runtime.WrapError(runtime.KindMalformedInput, err, "failed to read input file %s", path)
	}
	return ParseArguments(data)
}

// ParseArguments validates data as a JSON array and splits it into elements.
func ParseArguments(data []byte) ([]json.RawMessage, error) {
	if !json.Valid(data) {
		return nil, runtime.NewError(runtime.KindMalformedInput, "input is not valid JSON")
	}

	result, err := gojsonschema.Validate(argumentsSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, runtime.WrapError(runtime.KindMalformedInput, err, "failed to validate input")
	}
	if !result.Valid() {
		var msgs []string
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return nil, runtime.NewError(runtime.KindMalformedInput, "input must be a JSON array: %s", strings.Join(msgs, "; "))
	}

	var args []json.RawMessage
	if err := json.Unmarshal(data, &args); err != nil {
		return nil, runtime.WrapError(runtime.KindMalformedInput, err, "failed to decode input")
	}
	if args == nil {
		args = []json.RawMessage{}
	}
	return args, nil
}

// FormatArguments renders args for debug logging.
func FormatArguments(args []json.RawMessage) string {
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("<%d arguments>", len(args))
	}
	return string(data)
}
