package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command of the login portal CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "login-portal",
		Short:        "Login portal with a guarded dashboard",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (YAML)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewHashPasswordCmd())

	return cmd
}
