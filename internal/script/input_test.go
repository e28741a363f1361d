package script

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rocketship-ai/scriptbridge/internal/script/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArguments(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{name: "empty array", input: `[]`, want: []string{}},
		{name: "primitives", input: `[1, "two", true, null]`, want: []string{`1`, `"two"`, `true`, `null`}},
		{name: "nested values", input: `[{"a": [1]}, [2, 3]]`, want: []string{`{"a": [1]}`, `[2, 3]`}},
		{name: "object", input: `{"a": 1}`, wantErr: true},
		{name: "string", input: `"args"`, wantErr: true},
		{name: "number", input: `42`, wantErr: true},
		{name: "null", input: `null`, wantErr: true},
		{name: "invalid json", input: `[1, 2`, wantErr: true},
		{name: "empty file", input: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := ParseArguments([]byte(tt.input))
			if tt.wantErr {
				assert.ErrorIs(t, err, runtime.ErrMalformedInput)
				return
			}
			require.NoError(t, err)

			got := make([]string, 0, len(args))
			for _, a := range args {
				got = append(got, string(a))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadArguments(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "input.json")
	require.NoError(t, os.WriteFile(path, []byte(`[2, 3]`), 0644))
	args, err := ReadArguments(path)
	require.NoError(t, err)
	assert.Len(t, args, 2)

	_, err = ReadArguments(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, runtime.ErrMalformedInput)
}

func TestFormatArguments(t *testing.T) {
	args, err := ParseArguments([]byte(`[1, {"a": "b"}]`))
	require.NoError(t, err)
	assert.Equal(t, `[1,{"a":"b"}]`, FormatArguments(args))
}
