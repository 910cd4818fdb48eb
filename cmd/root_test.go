package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"serve", "mine", "credits", "leads", "export", "migrate"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "leadgenius", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestMineCommand_Flags(t *testing.T) {
	for _, name := range []string{"account", "location", "industry", "size", "max-batches", "batch-size", "out"} {
		assert.NotNil(t, mineCmd.Flags().Lookup(name), "mine should have --%s", name)
	}
	assert.Error(t, mineCmd.Args(mineCmd, nil), "mine requires a query")
}

func TestCreditsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range creditsCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"balance", "add", "history"} {
		assert.True(t, names[name], "expected credits subcommand %q", name)
	}
}

func TestExportCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range exportCmd.Commands() {
		names[c.Name()] = true
		assert.NotNil(t, c.Flags().Lookup("account"), "%s should take --account", c.Name())
	}
	for _, name := range []string{"csv", "xlsx", "docx", "geojson", "salesforce", "notion"} {
		assert.True(t, names[name], "expected export subcommand %q", name)
	}
}

func TestLeadsCommand_Flags(t *testing.T) {
	flag := leadsListCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "20", flag.DefValue)
	assert.Error(t, leadsStatusCmd.Args(leadsStatusCmd, []string{"only-id"}))
}

func TestLeadsStatusCommand_Flags(t *testing.T) {
	flag := leadsStatusCmd.Flags().Lookup("crm")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
	assert.Error(t, leadsStatusCmd.Args(leadsStatusCmd, []string{"l-1"}))
}
