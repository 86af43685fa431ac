package cmd

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Digital-Shane/title-scout/internal/guess"
	"github.com/Digital-Shane/title-scout/internal/log"
	"github.com/Digital-Shane/title-scout/internal/resolve"
	"github.com/Digital-Shane/title-scout/internal/server"
	"github.com/Digital-Shane/title-scout/internal/tui/progress"
	"github.com/Digital-Shane/title-scout/internal/tui/theme"
)

var (
	batchWorkers int
	instant      bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <file>...",
	Short: "Resolve many local media files in parallel",
	Long: `Resolve every video file given on the command line with a bounded worker pool.

The interactive view shows progress and, once the run ends, lets you edit the
search text of files that found no match and retry them. Use --instant to
skip the view and print the results directly.`,
	Example: `  title-scout batch ~/Movies/*.mkv
  title-scout batch -i --json "Fringe (2008)"/Season\ 01/*.mkv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().IntVarP(&batchWorkers, "workers", "w", 0, "Concurrent resolutions (default from config)")
	batchCmd.Flags().BoolVarP(&instant, "instant", "i", false, "Resolve without the interactive progress view")
	rootCmd.AddCommand(batchCmd)
}

// videoPaths keeps the arguments that name video files, leaving out release
// sample clips.
func videoPaths(args []string, skipped io.Writer) []string {
	var paths []string
	for _, p := range args {
		switch {
		case !guess.IsVideo(p):
			fmt.Fprintf(skipped, "skipping %s: not a video file\n", p)
			continue
		case guess.IsSample(p):
			fmt.Fprintf(skipped, "skipping %s: sample clip\n", p)
			continue
		}
		paths = append(paths, p)
	}
	return paths
}

func runBatch(cmd *cobra.Command, args []string) error {
	paths := videoPaths(args, cmd.ErrOrStderr())
	if len(paths) == 0 {
		return fmt.Errorf("no video files given")
	}

	interactive := !instant && !jsonOutput
	logOut := cmd.ErrOrStderr()
	if interactive {
		// the progress view owns the terminal
		logOut = io.Discard
	}
	a, err := newApp(cmd.Context(), logOut)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireProvider(providerFlag); err != nil {
		return err
	}

	journal := startJournal(a, "batch", args)
	workers := batchWorkers
	if workers <= 0 {
		workers = a.cfg.WorkerCount
	}
	engine := resolve.NewEngine(a.resolver, resolve.EngineConfig{
		Paths:       paths,
		WorkerCount: workers,
		Locale:      locale(),
		Provider:    providerFlag,
		Journal:     journal,
		Logger:      a.log,
	})

	var runErr error
	if interactive {
		model := progress.NewBatchModel(engine, providerFlag, theme.Default())
		if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run(); err != nil {
			runErr = err
		} else {
			runErr = model.Err()
		}
	} else {
		for ev := range engine.Start(cmd.Context()) {
			if !jsonOutput && ev.Summary.LastItem != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] %s\n", ev.Summary.ProcessedItems, ev.Summary.TotalItems, ev.Summary.LastItem)
			}
		}
	}

	closeJournal(a, journal)
	if err := printBatch(out(cmd), engine); err != nil {
		return err
	}
	return exitErr(runErr)
}

func printBatch(w io.Writer, engine *resolve.Engine) error {
	results := engine.Results()
	failures := engine.Failures()
	if jsonOutput {
		views := make(map[string]server.ResultView, len(results)+len(failures))
		for key, res := range results {
			views[key] = server.NewResultView(res, nil)
		}
		for _, f := range failures {
			views[f.Item.Key] = server.NewResultView(nil, f.Err)
		}
		return writeJSON(w, views)
	}

	t := &table{header: []string{"ID", "RESULT"}}
	for _, item := range engine.Items() {
		if res, ok := results[item.Key]; ok {
			t.add(res.Details.ID().String(), resolve.ProgressMessage(item, res))
		}
	}
	for _, f := range failures {
		t.add("-", resolve.ProgressMessage(f.Item, nil)+": "+f.Err.Error())
	}
	t.write(w)

	s := engine.SummarySnapshot()
	fmt.Fprintf(w, "\n%d resolved, %d failed, %d total\n", s.Resolved, s.Failed, s.TotalItems)
	return nil
}

// startJournal opens the run journal when enabled. Failures only disable it.
func startJournal(a *app, command string, args []string) *log.Session {
	if !a.cfg.EnableJournal {
		return nil
	}
	dir := a.cfg.JournalDir()
	if removed, err := log.Cleanup(dir, a.cfg.JournalRetention); err != nil {
		a.log.WithError(err).Warn("failed to clean old journals")
	} else if removed > 0 {
		a.log.WithField("removed", removed).Debug("old journals removed")
	}
	s, err := log.StartSession(dir, command, args)
	if err != nil {
		a.log.WithError(err).Warn("journal disabled")
		return nil
	}
	return s
}

func closeJournal(a *app, s *log.Session) {
	if s == nil {
		return
	}
	path, err := s.Close()
	if err != nil {
		a.log.WithError(err).Warn("failed to write journal")
		return
	}
	a.log.WithField("path", path).Debug("journal written")
}
