package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	configfile "github.com/hearsay-labs/hearsay-cli/internal/adapters/driven/config/file"
)

func setupTestConfigStore(t *testing.T) func() {
	t.Helper()
	store, err := configfile.NewConfigStore(t.TempDir())
	require.NoError(t, err)

	prev := configStore
	SetConfigStore(store)
	return func() { configStore = prev }
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
	}()
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestConfigSetThenGet(t *testing.T) {
	cleanup := setupTestConfigStore(t)
	defer cleanup()

	_, err := execute(t, "config", "set", "top_k_default", "3")
	require.NoError(t, err)

	out, err := execute(t, "config", "get", "top_k_default")
	require.NoError(t, err)
	assert.Contains(t, out, "3")
}

func TestConfigSet_CoercesTypes(t *testing.T) {
	cleanup := setupTestConfigStore(t)
	defer cleanup()

	_, err := execute(t, "config", "set", "fusion_weight", "0.5")
	require.NoError(t, err)
	assert.Equal(t, 0.5, configStore.GetFloat("fusion_weight"))

	_, err = execute(t, "config", "set", "context_expansion", "true")
	require.NoError(t, err)
	assert.True(t, configStore.GetBool("context_expansion"))

	_, err = execute(t, "config", "set", "embedding.provider", "ollama")
	require.NoError(t, err)
	assert.Equal(t, "ollama", configStore.GetString("embedding.provider"))
}

func TestConfigGet_UnknownKey(t *testing.T) {
	cleanup := setupTestConfigStore(t)
	defer cleanup()

	_, err := execute(t, "config", "get", "never_set")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not set")
}

func TestConfigPath(t *testing.T) {
	cleanup := setupTestConfigStore(t)
	defer cleanup()

	out, err := execute(t, "config", "path")
	require.NoError(t, err)
	assert.Contains(t, out, "config.toml")
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, true, parseValue("true"))
	assert.Equal(t, int64(42), parseValue("42"))
	assert.Equal(t, 0.7, parseValue("0.7"))
	assert.Equal(t, "openai", parseValue("openai"))
}
