// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/userauth/internal/credential"
	"github.com/holomush/userauth/internal/protocol"
)

var schemaGenerators = map[string]func() ([]byte, error){
	"request":     protocol.RequestSchema,
	"response":    protocol.ResponseSchema,
	"credentials": credential.GenerateSchema,
}

// NewSchemaCmd creates the schema subcommand.
func NewSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "schema {request|response|credentials}",
		Short:     "Print a JSON Schema",
		Long:      `Print the JSON Schema of the request or response message, or of the credentials document.`,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"request", "response", "credentials"},
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, ok := schemaGenerators[args[0]]
			if !ok {
				return oops.Code("SCHEMA_UNKNOWN").Errorf("unknown schema %q", args[0])
			}
			data, err := gen()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
}
