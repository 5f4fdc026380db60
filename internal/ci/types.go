// Package ci implements the local CI pipeline: a YAML-defined, strictly
// sequential list of shell steps run inside a repository, with per-step
// timeout and failure policy.
package ci

// StepSpec is one declarative unit of work in a pipeline. Specs are built
// once by the parser and are immutable afterwards.
//
// Command is handed to `sh -c` verbatim, so the full shell syntax (pipes,
// redirects, globs, &&) is available to step authors. This is deliberate:
// switching to argv semantics would silently change what pipelines can
// express.
type StepSpec struct {
	Name           string
	Command        string
	WorkingDir     string // relative to the repository root; "" means the root itself
	AllowFailure   bool
	TimeoutSeconds int
}

// PipelineConfig is the parsed pipeline definition: a non-empty ordered
// list of steps.
type PipelineConfig struct {
	Steps []StepSpec
}

// StepResult is the terminal outcome record for one executed step.
// ExitCode is nil when the step never produced an exit status (timeout,
// launch failure, missing working directory).
//
// AllowFailure reports whether the step's failure, if any, was allowed.
// It is false for a missing working directory regardless of the step's
// own flag: that failure always halts the pipeline.
type StepResult struct {
	Name            string  `json:"name"`
	Succeeded       bool    `json:"succeeded"`
	ExitCode        *int    `json:"exit_code,omitempty"`
	Stdout          string  `json:"stdout"`
	Stderr          string  `json:"stderr"`
	DurationSeconds float64 `json:"duration_seconds"`
	AllowFailure    bool    `json:"allow_failure"`
	Error           string  `json:"error,omitempty"`
}

// PipelineRunResult is the aggregate outcome of one pipeline run. Steps
// holds results in execution order; steps after a halt are absent, not
// marked as skipped.
type PipelineRunResult struct {
	RunID   string       `json:"run_id"`
	Success bool         `json:"success"`
	Steps   []StepResult `json:"steps"`
}
