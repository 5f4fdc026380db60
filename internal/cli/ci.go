package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"repodeck/internal/ci"
)

var ciCmd = &cobra.Command{
	Use:   "ci",
	Short: "Run and inspect the local CI pipeline",
}

var ciRunCmd = &cobra.Command{
	Use:   "run [path]",
	Short: "Run the pipeline defined in .local_ci.yaml",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		path, err := repoPathArg(args)
		if err != nil {
			return err
		}
		cfg, err := loadSettings()
		if err != nil {
			return err
		}
		log, err := setupLogger(cfg)
		if err != nil {
			return err
		}

		pipeline, err := ci.LoadConfig(path)
		if err != nil {
			return err
		}

		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		reporter := &consoleReporter{out: cmd.OutOrStdout()}
		runner := ci.NewRunner(ci.NewExecutor(nil, log), reporter, log)

		started := time.Now()
		result := runner.Run(pipeline, path)
		finished := time.Now()

		if err := store.RecordRun(path, started, finished, result); err != nil {
			log.Error("record run", "run_id", result.RunID, "error", err)
		}

		if !result.Success {
			return fmt.Errorf("pipeline failed")
		}
		return nil
	},
}

var ciValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Check that .local_ci.yaml parses and is well-formed",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := repoPathArg(args)
		if err != nil {
			return err
		}

		pipeline, err := ci.LoadConfig(path)
		if err != nil {
			return err
		}
		cmd.Printf("Configuration is valid: %d step(s)\n", len(pipeline.Steps))
		for i, step := range pipeline.Steps {
			cmd.Printf("  %d. %s (timeout %ds", i+1, step.Name, step.TimeoutSeconds)
			if step.AllowFailure {
				cmd.Print(", allow_failure")
			}
			cmd.Println(")")
		}
		return nil
	},
}

var ciHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded pipeline runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.ListRuns(limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			cmd.Println("No runs recorded.")
			return nil
		}

		cmd.Printf("%-10s %-6s %-20s %s\n", "RUN", "RESULT", "STARTED", "REPO")
		for _, run := range runs {
			label := "FAIL"
			if run.Success {
				label = "PASS"
			}
			id := run.RunID
			if len(id) > 8 {
				id = id[:8]
			}
			cmd.Printf("%-10s %-6s %-20s %s\n",
				id, label, run.StartedAt.Local().Format("2006-01-02 15:04:05"), run.RepoPath)
		}
		return nil
	},
}

var ciWatchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Re-run the pipeline whenever .local_ci.yaml changes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		path, err := repoPathArg(args)
		if err != nil {
			return err
		}
		cfg, err := loadSettings()
		if err != nil {
			return err
		}
		log, err := setupLogger(cfg)
		if err != nil {
			return err
		}

		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		defer watcher.Close()

		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}

		runOnce := func() {
			pipeline, err := ci.LoadConfig(path)
			if err != nil {
				cmd.PrintErrf("config error: %v\n", err)
				return
			}
			reporter := &consoleReporter{out: cmd.OutOrStdout()}
			runner := ci.NewRunner(ci.NewExecutor(nil, log), reporter, log)
			started := time.Now()
			result := runner.Run(pipeline, path)
			if err := store.RecordRun(path, started, time.Now(), result); err != nil {
				log.Error("record run", "run_id", result.RunID, "error", err)
			}
		}

		cmd.Printf("Watching %s for changes (Ctrl-C to stop)\n", path)
		runOnce()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

		// Debounce bursts of filesystem events into a single run.
		var pending <-chan time.Time
		for {
			select {
			case <-sig:
				cmd.Println("Stopped.")
				return nil
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				log.Warn("watch error", "error", err)
			case ev, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if filepath.Base(ev.Name) != ci.ConfigFileName {
					continue
				}
				pending = time.After(500 * time.Millisecond)
			case <-pending:
				pending = nil
				runOnce()
			}
		}
	},
}

// consoleReporter prints per-step progress for interactive runs.
type consoleReporter struct {
	out io.Writer
}

func (r *consoleReporter) PipelineStarted(runID string, totalSteps int) {
	fmt.Fprintf(r.out, "Running pipeline %s (%d steps)\n", runID, totalSteps)
}

func (r *consoleReporter) StepStarted(index int, step ci.StepSpec) {
	fmt.Fprintf(r.out, "--> %s\n", step.Name)
}

func (r *consoleReporter) StepFinished(index int, result ci.StepResult) {
	label := "FAIL"
	if result.Succeeded {
		label = "PASS"
	}
	fmt.Fprintf(r.out, "[%s] %s (%.2fs)\n", label, result.Name, result.DurationSeconds)
	if !result.Succeeded {
		if result.Error != "" {
			fmt.Fprintf(r.out, "    %s\n", result.Error)
		} else if result.Stderr != "" {
			fmt.Fprintf(r.out, "    %s\n", result.Stderr)
		}
	}
}

func (r *consoleReporter) PipelineFinished(result ci.PipelineRunResult) {
	label := "FAILED"
	if result.Success {
		label = "PASSED"
	}
	fmt.Fprintf(r.out, "Pipeline %s after %d step(s)\n", label, len(result.Steps))
}

var _ ci.Reporter = (*consoleReporter)(nil)

func init() {
	ciHistoryCmd.Flags().Int("limit", 20, "Maximum runs to show")
	ciCmd.AddCommand(ciRunCmd)
	ciCmd.AddCommand(ciValidateCmd)
	ciCmd.AddCommand(ciHistoryCmd)
	ciCmd.AddCommand(ciWatchCmd)
}
