package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doorman-auth/doorman/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the doorman version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.VERSION)
			return err
		},
	}
}
