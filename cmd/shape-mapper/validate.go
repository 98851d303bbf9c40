package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shape-mapper/functions"
	"shape-mapper/internal/mapping"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE...",
		Short: "Check rule files for errors",
		Long:  `Validates every rule file and prints its diagnostics. Exits non-zero when any file has errors, or warnings in strict mode.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.validate(cmd, args)
		},
	}
}

func (a *app) validate(cmd *cobra.Command, paths []string) error {
	out := cmd.OutOrStdout()
	reg := functions.Builtins()

	failed := 0

	for _, path := range paths {
		mf, err := mapping.LoadFile(path)
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", path, err)
			failed++

			continue
		}

		res := mapping.Validate(mf, reg)

		for _, d := range res.All() {
			fmt.Fprintf(out, "%s: %s: %s\n", path, d.Severity, d)
		}

		if res.HasErrors() || (a.cfg.Validation.Strict && len(res.Warnings) > 0) {
			failed++
			continue
		}

		fmt.Fprintf(out, "%s: ok (%d rules)\n", path, len(mf.Rules))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d rule files failed validation", failed, len(paths))
	}

	return nil
}
