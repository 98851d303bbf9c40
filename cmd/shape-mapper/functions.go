package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shape-mapper/functions"
)

func newFunctionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "functions",
		Short: "List the functions rule files can call",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := functions.Builtins()

			for _, name := range reg.Names() {
				sig, _ := reg.Describe(name)
				fmt.Fprintln(cmd.OutOrStdout(), sig)
			}

			return nil
		},
	}
}
