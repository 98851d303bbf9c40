package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"shape-mapper/internal/telemetry"
)

const debounceInterval = 150 * time.Millisecond

// watch runs once and then again whenever the rule file or a file matching
// an input pattern changes, until interrupted. Failed runs are logged.
// Directories created below a watched one after start are not watched.
func (a *app) watch(cmd *cobra.Command, opts *runOptions, metrics *telemetry.Metrics) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	for _, dir := range watchDirs(opts) {
		if err := w.Add(dir); err != nil {
			a.logger.Warn("cannot watch directory", "dir", dir, "error", err)
		}
	}

	a.logger.Info("watching for changes", "mapping", opts.mappingPath, "dirs", w.WatchList())

	if err := a.run(cmd, opts, metrics); err != nil {
		a.logger.Error("run failed", "error", err)
	}

	var rerun <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("watcher stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if !opts.affectedBy(ev) {
				continue
			}

			a.logger.Debug("change detected", "path", ev.Name, "op", ev.Op.String())
			rerun = time.After(debounceInterval)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}

			a.logger.Error("watcher error", "error", err)

		case <-rerun:
			rerun = nil

			if err := a.run(cmd, opts, metrics); err != nil {
				a.logger.Error("run failed", "error", err)
			}
		}
	}
}

// watchDirs lists the directories holding the rule file, the fixed part of
// every input pattern and every current match.
func watchDirs(opts *runOptions) []string {
	dirs := []string{filepath.Dir(opts.mappingPath)}

	for _, p := range opts.inputs {
		if p == stdinName {
			continue
		}

		base, _ := doublestar.SplitPattern(filepath.ToSlash(p))
		dirs = append(dirs, filepath.FromSlash(base))

		matches, _ := doublestar.FilepathGlob(p, doublestar.WithFilesOnly())
		for _, m := range matches {
			dirs = append(dirs, filepath.Dir(m))
		}
	}

	for i, d := range dirs {
		dirs[i] = filepath.Clean(d)
	}

	slices.Sort(dirs)

	return slices.Compact(dirs)
}

// affectedBy reports whether ev touches the rule file or an input. Files in
// the output directory are ignored so results do not trigger new runs.
func (opts *runOptions) affectedBy(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}

	name := filepath.Clean(ev.Name)

	if opts.outDir != "" {
		if rel, err := filepath.Rel(filepath.Clean(opts.outDir), name); err == nil && !strings.HasPrefix(rel, "..") {
			return false
		}
	}

	if name == filepath.Clean(opts.mappingPath) {
		return true
	}

	for _, p := range opts.inputs {
		if p == stdinName {
			continue
		}

		if ok, _ := doublestar.PathMatch(filepath.Clean(p), name); ok {
			return true
		}
	}

	return false
}
