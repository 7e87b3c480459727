package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	expected := []string{"prepare", "scrape", "filter", "realprice", "cpi", "run", "runs"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "cincinnati-fc", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestStageCommands_Flags(t *testing.T) {
	for _, cmd := range []string{"prepare", "scrape", "filter", "realprice"} {
		c, _, err := rootCmd.Find([]string{cmd})
		require.NoError(t, err, cmd)
		for _, flag := range []string{"in", "out", "limit"} {
			assert.NotNil(t, c.Flags().Lookup(flag), "%s --%s", cmd, flag)
		}
	}
	assert.NotNil(t, realpriceCmd.Flags().Lookup("ratios"))
}

func TestCPICommand_HasFetch(t *testing.T) {
	c, _, err := rootCmd.Find([]string{"cpi", "fetch"})
	require.NoError(t, err)
	assert.Equal(t, "fetch", c.Name())
	assert.NotNil(t, c.Flags().Lookup("out"))
}

func TestRunCommand_LimitFlag(t *testing.T) {
	flag := runCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)
}

func TestRunsCommand_Flags(t *testing.T) {
	flag := runsCmd.Flags().Lookup("format")
	require.NotNil(t, flag)
	assert.Equal(t, "table", flag.DefValue)

	flag = runsCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "50", flag.DefValue)
}

func TestRootCommand_PersistentFlags(t *testing.T) {
	for _, name := range []string{"config", "log-level"} {
		flag := rootCmd.PersistentFlags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Empty(t, flag.DefValue)
	}
}

func TestRootCommand_LongListsStagesInOrder(t *testing.T) {
	long := rootCmd.Long
	prepare := strings.Index(long, "prepare")
	filter := strings.Index(long, "filter")
	scrape := strings.Index(long, "scrape")
	realprice := strings.Index(long, "realprice")
	assert.True(t, prepare < filter && filter < scrape && scrape < realprice)
}
