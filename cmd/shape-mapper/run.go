package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"shape-mapper/codec"
	"shape-mapper/engine"
	"shape-mapper/functions"
	"shape-mapper/internal/mapping"
	"shape-mapper/internal/telemetry"
)

// stdinName is the input name that reads standard input.
const stdinName = "-"

type runOptions struct {
	mappingPath string
	inputs      []string
	outDir      string
	format      string
	pretty      bool
	watch       bool
	dump        bool
	metrics     bool
}

var dumper = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

func newRunCmd(a *app) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Map input documents with a rule file",
		Long: `Compiles the rule file and maps every input. Inputs are files or doublestar
globs such as 'orders/**/*.json'; results go to stdout or to <out>/<name>.<ext>.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.runDefaults(cmd, opts)

			var metrics *telemetry.Metrics
			if opts.metrics {
				metrics = telemetry.NewMetrics(a.cfg.Metrics.Namespace, nil)
			}

			if opts.watch {
				return a.watch(cmd, opts, metrics)
			}

			return a.run(cmd, opts, metrics)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.mappingPath, "mapping", "m", "", "rule file")
	f.StringArrayVarP(&opts.inputs, "input", "i", nil, "input file or glob, '-' reads stdin (repeatable)")
	f.StringVarP(&opts.outDir, "out", "o", "", "output directory, stdout when empty")
	f.StringVarP(&opts.format, "format", "f", "", "output format (json, yaml, csv, xml)")
	f.BoolVar(&opts.pretty, "pretty", false, "indent JSON output")
	f.BoolVarP(&opts.watch, "watch", "w", false, "re-run when the rule file or an input changes")
	f.BoolVar(&opts.dump, "dump", false, "print the compiled rules")
	f.BoolVar(&opts.metrics, "metrics", false, "print execution metrics after each run")

	_ = cmd.MarkFlagRequired("mapping")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

// runDefaults fills options the user did not set from the configuration.
func (a *app) runDefaults(cmd *cobra.Command, opts *runOptions) {
	flags := cmd.Flags()

	if !flags.Changed("out") {
		opts.outDir = a.cfg.Output.Dir
	}

	if !flags.Changed("pretty") {
		opts.pretty = a.cfg.Output.Pretty
	}

	if !flags.Changed("metrics") {
		opts.metrics = a.cfg.Metrics.Enabled
	}
}

// run compiles the rule file once and maps every input. Failing inputs are
// logged and counted; the run fails if any input did.
func (a *app) run(cmd *cobra.Command, opts *runOptions, metrics *telemetry.Metrics) error {
	logger := a.logger.With("run_id", uuid.NewString())

	mf, m, err := a.compile(opts.mappingPath, logger, metrics)
	if err != nil {
		return err
	}

	if opts.dump {
		dumper.Fdump(cmd.ErrOrStderr(), m.Rules())
	}

	files, err := expandInputs(opts.inputs)
	if err != nil {
		return err
	}

	format, err := outputFormat(opts.format, mf.Output, a.cfg.Output.Format)
	if err != nil {
		return err
	}

	svc, err := mapping.Codec(mf, opts.pretty)
	if err != nil {
		return err
	}

	failed := 0

	for _, file := range files {
		if err := mapFile(cmd, m, svc, file, format, opts.outDir); err != nil {
			logger.Error("input failed", "input", file, "error", err)
			failed++

			continue
		}

		logger.Debug("input mapped", "input", file)
	}

	logger.Info("run finished", "mapping", m.Name(), "inputs", len(files), "failed", failed)

	if metrics != nil {
		if err := metrics.WriteText(cmd.ErrOrStderr()); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d inputs failed", failed, len(files))
	}

	return nil
}

// compile loads, validates and compiles a rule file. Warnings are logged;
// in strict mode they fail the compilation.
func (a *app) compile(path string, logger *slog.Logger, metrics *telemetry.Metrics) (*mapping.MappingFile, *engine.Mapping, error) {
	mf, err := mapping.LoadFile(path)
	if err != nil {
		return nil, nil, err
	}

	reg := functions.Builtins()

	res := mapping.Validate(mf, reg)
	for _, w := range res.Warnings {
		logger.Warn("rule file warning", "file", path, "diagnostic", w.String())
	}

	if a.cfg.Validation.Strict && len(res.Warnings) > 0 {
		return nil, nil, fmt.Errorf("%s: %d warnings in strict mode", path, len(res.Warnings))
	}

	opts := []engine.Option{engine.WithLogger(logger)}
	if metrics != nil {
		opts = append(opts, engine.WithObserver(metrics))
	}

	m, err := mapping.Compile(mf, reg, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	return mf, m, nil
}

// expandInputs resolves input patterns into a deduplicated file list in
// pattern order. A pattern matching nothing is an error.
func expandInputs(patterns []string) ([]string, error) {
	var files []string

	seen := make(map[string]bool)

	for _, p := range patterns {
		matches := []string{p}

		if p != stdinName {
			var err error

			matches, err = doublestar.FilepathGlob(p, doublestar.WithFilesOnly())
			if err != nil {
				return nil, fmt.Errorf("invalid input pattern %q: %w", p, err)
			}

			if len(matches) == 0 {
				return nil, fmt.Errorf("no input matches %q", p)
			}
		}

		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}

	return files, nil
}

// outputFormat picks the first non-empty format among the flag, the rule
// file and the configuration.
func outputFormat(candidates ...string) (codec.Format, error) {
	for _, c := range candidates {
		if c != "" {
			return codec.ParseFormat(c)
		}
	}

	return codec.FormatJSON, nil
}

func mapFile(cmd *cobra.Command, m *engine.Mapping, svc *codec.Service, file string, format codec.Format, outDir string) error {
	var (
		data []byte
		err  error
	)

	if file == stdinName {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(file)
	}

	if err != nil {
		return err
	}

	out, err := m.Execute(data)
	if err != nil {
		return err
	}

	rendered, err := svc.Serialize(out, string(format))
	if err != nil {
		return err
	}

	if outDir == "" {
		if !strings.HasSuffix(string(rendered), "\n") {
			rendered = append(rendered, '\n')
		}

		_, err = cmd.OutOrStdout().Write(rendered)

		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(outDir, outputName(file, format)), rendered, 0o644)
}

// outputName names the result of file after its base name.
func outputName(file string, format codec.Format) string {
	base := "stdin"
	if file != stdinName {
		base = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	}

	return base + "." + string(format)
}
