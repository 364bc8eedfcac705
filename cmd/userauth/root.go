// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the userauth CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "userauth",
		Short: "userauth - credential, session and password reset service",
		Long: `userauth authenticates users against a stored credential table,
issues login sessions, and runs a one-time-code password reset flow.
Requests are JSON messages over ZeroMQ REQ/REP or JSON lines over TCP.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/userauth/config.yaml if present)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewRequestCmd())
	cmd.AddCommand(NewSchemaCmd())

	return cmd
}
