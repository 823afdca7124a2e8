// Package commands implements the idcard CLI.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"idcard/internal/printer"
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "idcard",
		Short: "Member registry and identity card renderer",
		Long: `idcard keeps a registry of members and renders their identity cards.

Run "idcard serve" to start the Discord bot and HTTP API, or use the member
and card subcommands to administer the registry directly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().Bool("trace", false, "print registry operation spans as JSON lines on stderr")
	root.AddCommand(newServeCmd(), newMemberCmd(), newCardCmd())
	return root
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the --version string.
func SetVersionInfo(v, c, d string) {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func out(cmd *cobra.Command) *printer.Printer {
	return printer.New(cmd.OutOrStdout(), cmd.ErrOrStderr())
}
