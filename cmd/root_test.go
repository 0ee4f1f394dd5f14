//go:build !integration

package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/estate-crm/internal/config"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	// Collect subcommand names.
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	// Verify expected subcommands are registered.
	expected := []string{"migrate", "import", "clients", "edit", "comment", "activity", "stats", "sheets", "serve"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "estate-crm", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestClientsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range clientsCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"list", "show", "export", "delete"} {
		assert.True(t, names[name], "clients should have subcommand %q", name)
	}
}

func TestImportCommand_Flags(t *testing.T) {
	for _, name := range []string{"no-header", "map", "mapping", "encoding", "xlsx-sheet", "sheet", "dry-run"} {
		assert.NotNil(t, importCmd.Flags().Lookup(name), "import should have --%s flag", name)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestClientsListCommand_Flags(t *testing.T) {
	flag := clientsListCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "50", flag.DefValue)
	assert.NotNil(t, clientsExportCmd.Flags().Lookup("format"))
}

func TestRootCommand_PersistentFlags(t *testing.T) {
	for _, name := range []string{"driver", "database-url", "log-level"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "root should have --%s flag", name)
	}
}

func TestApplyOverrides(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().String("driver", "", "")
	cmd.Flags().String("database-url", "", "")
	cmd.Flags().String("log-level", "", "")
	require.NoError(t, cmd.Flags().Set("driver", "postgres"))
	require.NoError(t, cmd.Flags().Set("database-url", "postgres://localhost/crm"))

	c := &config.Config{
		Store: config.StoreConfig{Driver: "sqlite", DatabaseURL: "estate-crm.db"},
		Log:   config.LogConfig{Level: "info"},
	}
	applyOverrides(cmd, c)

	assert.Equal(t, "postgres", c.Store.Driver)
	assert.Equal(t, "postgres://localhost/crm", c.Store.DatabaseURL)
	assert.Equal(t, "info", c.Log.Level, "unset flags leave config alone")
}
