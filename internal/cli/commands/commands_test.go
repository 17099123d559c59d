// Package commands_test provides tests for CLI command creation.
package commands

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{cmd: NewLoginCommand(), use: "login [login-id]", flags: []string{"password", "password-stdin"}},
		{cmd: NewSignupCommand(), use: "signup", flags: []string{"name", "email", "password", "password-stdin"}},
		{cmd: NewLogoutCommand(), use: "logout"},
		{cmd: NewWhoamiCommand(), use: "whoami"},
		{cmd: NewTablesCommand(), use: "tables", flags: []string{"expand", "all"}},
		{cmd: NewSchemaCommand(), use: "schema <table>"},
		{cmd: NewGenerateCommand(), use: "generate <table>", flags: []string{"run"}},
		{cmd: NewQueryCommand(), use: "query [SQL]", flags: []string{"input", "watch"}},
		{cmd: NewDownloadCommand(), use: "download [diagram|prompts|all]"},
		{cmd: NewActivityCommand(), use: "activity", flags: []string{"limit", "all"}},
		{cmd: NewDoctorCommand(), use: "doctor"},
		{cmd: NewTUICommand(), use: "tui"},
		{cmd: NewMCPCommand("test"), use: "mcp"},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestLoginPasswordFlagsAreExclusive(t *testing.T) {
	cmd := NewLoginCommand()
	cmd.SetArgs([]string{"ada@example.com", "--password", "x", "--password-stdin"})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	err := cmd.Execute()
	assert.ErrorContains(t, err, "none of the others can be")
}

func TestDownloadValidArgs(t *testing.T) {
	cmd := NewDownloadCommand()
	assert.Equal(t, []string{"diagram", "prompts", "all"}, cmd.ValidArgs)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{in: "SELECT 1;", n: 20, want: "SELECT 1;"},
		{in: "SELECT * FROM dbo.ex_customers", n: 10, want: "SELECT ..."},
		{in: "ééééé", n: 5, want: "ééééé"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, truncate(tt.in, tt.n))
	}
}
