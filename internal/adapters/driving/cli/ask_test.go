package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearsay-labs/hearsay-cli/internal/core/domain"
)

func TestAskCmd_Use(t *testing.T) {
	assert.Equal(t, "ask [document-id] [query]", askCmd.Use)
}

func TestAskCmd_RequiresExactlyTwoArgs(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"ask", "doc-1"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 2 arg(s)")
}

func TestAskCmd_HasTopKFlag(t *testing.T) {
	flag := askCmd.Flags().Lookup("top-k")
	require.NotNil(t, flag, "top-k flag should exist")
	assert.Equal(t, "k", flag.Shorthand)
}

func TestAskCmd_DefaultModeIsHybrid(t *testing.T) {
	flag := askCmd.Flags().Lookup("mode")
	require.NotNil(t, flag)
	assert.Equal(t, "hybrid", flag.DefValue)
}

func TestParseMode(t *testing.T) {
	mode, err := parseMode("hybrid")
	require.NoError(t, err)
	assert.Equal(t, domain.SearchModeHybrid, mode)

	mode, err = parseMode("vector")
	require.NoError(t, err)
	assert.Equal(t, domain.SearchModeVector, mode)

	mode, err = parseMode("keyword")
	require.NoError(t, err)
	assert.Equal(t, domain.SearchModeKeyword, mode)

	_, err = parseMode("fuzzy")
	assert.Error(t, err)
}
