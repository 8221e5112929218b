package app

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/orgsync/cmd/orgsync/cmd/diff"
	"github.com/agentstation/orgsync/cmd/orgsync/cmd/man"
	"github.com/agentstation/orgsync/cmd/orgsync/cmd/mapping"
	"github.com/agentstation/orgsync/cmd/orgsync/cmd/sync"
	"github.com/agentstation/orgsync/cmd/orgsync/cmd/syncfromorg"
	"github.com/agentstation/orgsync/cmd/orgsync/cmd/version"
)

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(diff.NewCommand(a))
	rootCmd.AddCommand(sync.NewCommand(a))
	rootCmd.AddCommand(syncfromorg.NewCommand(a))

	// Management commands
	rootCmd.AddCommand(mapping.NewCommand(a))

	// Utility commands
	rootCmd.AddCommand(version.NewCommand(a))
	rootCmd.AddCommand(man.NewCommand(a))
}
