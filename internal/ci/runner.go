package ci

import (
	"log/slog"

	"github.com/google/uuid"
)

// Runner drives a pipeline: it executes steps strictly in document order,
// one at a time, and stops at the first failure the failing step does not
// allow. Runners hold no state across runs; each Run starts cold.
type Runner struct {
	exec     *Executor
	reporter Reporter
	log      *slog.Logger
}

// NewRunner creates a Runner. A nil reporter defaults to NopReporter and a
// nil logger to slog.Default().
func NewRunner(exec *Executor, reporter Reporter, log *slog.Logger) *Runner {
	if reporter == nil {
		reporter = NopReporter{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Runner{exec: exec, reporter: reporter, log: log}
}

// Run executes every configured step in order against repoRoot. When a
// step result is both failed and not allowed to fail, the run halts: the
// remaining steps never execute and are absent from the result list.
// There are no retries at this layer; a step that wants retry behavior
// writes its own loop in its command.
func (r *Runner) Run(cfg *PipelineConfig, repoRoot string) PipelineRunResult {
	result := PipelineRunResult{
		RunID:   uuid.New().String(),
		Success: true,
	}

	r.log.Info("CI pipeline started", "run_id", result.RunID, "steps", len(cfg.Steps), "repo", repoRoot)
	r.reporter.PipelineStarted(result.RunID, len(cfg.Steps))

	for i, step := range cfg.Steps {
		r.reporter.StepStarted(i, step)
		res := r.exec.Execute(step, repoRoot)
		result.Steps = append(result.Steps, res)
		r.reporter.StepFinished(i, res)

		if !res.Succeeded && !res.AllowFailure {
			result.Success = false
			break
		}
	}

	r.log.Info("CI pipeline finished", "run_id", result.RunID, "success", result.Success, "steps_run", len(result.Steps))
	r.reporter.PipelineFinished(result)
	return result
}
