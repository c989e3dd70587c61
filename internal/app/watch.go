package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/YuminosukeSato/datalab/pkg/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// watchDebounce coalesces the burst of events an editor save produces.
const watchDebounce = 200 * time.Millisecond

func newWatchCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch FILE [COLUMN...]",
		Short: "Re-describe a CSV file every time it changes",
		Long: `Watch prints the describe output of FILE, then prints it again after
each change until interrupted with Ctrl+C. A read or parse failure is
reported and watching continues.`,
		Example: `  datalab watch data.csv
  datalab watch data.csv price -o json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, columns := args[0], args[1:]
			refresh := func() {
				fmt.Fprintf(cmd.OutOrStdout(), "== %s (%s)\n", path, time.Now().Format(time.TimeOnly))
				t, err := readTable(cmd, path)
				if err == nil {
					err = o.describe(cmd, t, columns)
				}
				if err != nil {
					o.logger.Warn("refresh failed", err)
					fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
				}
			}
			refresh()
			return watchFile(cmd.Context(), path, refresh)
		},
	}
}

// watchFile calls onChange after path is written, created or renamed into
// place, until ctx is done. The parent directory is watched so atomic
// replace-by-rename saves are seen.
func watchFile(ctx context.Context, path string, onChange func()) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(err, "resolve %s", path)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create watcher")
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return errors.Wrapf(err, "watch %s", filepath.Dir(abs))
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				pending = time.After(watchDebounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return errors.Wrap(err, "watch")
		case <-pending:
			pending = nil
			onChange()
		}
	}
}
