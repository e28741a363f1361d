package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvFile(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("valid env file", func(t *testing.T) {
		envPath := filepath.Join(tmpDir, ".env")
		content := `# This is a comment
API_KEY=test-api-key-123
export MODEL_NAME=gpt-test

EMPTY_VALUE=
QUOTED_VALUE="value with spaces"
SINGLE_QUOTED='single quoted value'
URL=https://example.com/?a=b
`
		require.NoError(t, os.WriteFile(envPath, []byte(content), 0644))

		env, err := loadEnvFile(envPath)
		require.NoError(t, err)

		assert.Equal(t, "test-api-key-123", env["API_KEY"])
		assert.Equal(t, "gpt-test", env["MODEL_NAME"])
		assert.Equal(t, "", env["EMPTY_VALUE"])
		assert.Equal(t, "value with spaces", env["QUOTED_VALUE"])
		assert.Equal(t, "single quoted value", env["SINGLE_QUOTED"])
		assert.Equal(t, "https://example.com/?a=b", env["URL"])
		assert.Len(t, env, 6)
	})

	t.Run("invalid format", func(t *testing.T) {
		envPath := filepath.Join(tmpDir, ".env.invalid")
		content := `VALID_KEY=value
INVALID_LINE_NO_EQUALS
`
		require.NoError(t, os.WriteFile(envPath, []byte(content), 0644))

		_, err := loadEnvFile(envPath)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid line 2")
	})

	t.Run("empty key", func(t *testing.T) {
		envPath := filepath.Join(tmpDir, ".env.empty")
		require.NoError(t, os.WriteFile(envPath, []byte("VALID=value\n=empty_key_value\n"), 0644))

		_, err := loadEnvFile(envPath)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "empty key")
	})

	t.Run("non-existent file", func(t *testing.T) {
		_, err := loadEnvFile(filepath.Join(tmpDir, "non-existent.env"))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to open env file")
	})
}

func TestUnquote(t *testing.T) {
	assert.Equal(t, "a b", unquote(`"a b"`))
	assert.Equal(t, "a b", unquote(`'a b'`))
	assert.Equal(t, `"mismatched'`, unquote(`"mismatched'`))
	assert.Equal(t, `"`, unquote(`"`))
	assert.Equal(t, "plain", unquote("plain"))
}

func TestSetEnvironmentVariables(t *testing.T) {
	t.Setenv("SCRIPTBRIDGE_TEST_EXISTING", "original")
	t.Setenv("SCRIPTBRIDGE_TEST_NEW", "")
	require.NoError(t, os.Unsetenv("SCRIPTBRIDGE_TEST_NEW"))

	err := setEnvironmentVariables(map[string]string{
		"SCRIPTBRIDGE_TEST_EXISTING": "from-file",
		"SCRIPTBRIDGE_TEST_NEW":      "value",
	})
	require.NoError(t, err)

	assert.Equal(t, "original", os.Getenv("SCRIPTBRIDGE_TEST_EXISTING"), "system environment wins")
	assert.Equal(t, "value", os.Getenv("SCRIPTBRIDGE_TEST_NEW"))
}
