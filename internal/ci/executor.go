package ci

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// ShellRunner abstracts shell command execution for testability.
type ShellRunner interface {
	Run(ctx context.Context, dir string, command string) (stdout string, stderr string, exitCode int, err error)
}

// ExecShell implements ShellRunner by handing the command line to `sh -c`.
type ExecShell struct{}

func (ExecShell) Run(ctx context.Context, dir string, command string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir

	// sh may fork the command instead of exec'ing it. Run the step in its
	// own process group and kill the whole group on cancellation, so
	// children holding the output pipes die with the shell and Wait
	// returns at the deadline instead of blocking on the pipes.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = time.Second

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return stdoutBuf.String(), stderrBuf.String(), -1, fmt.Errorf("exec: %w", err)
		}
	}
	return stdoutBuf.String(), stderrBuf.String(), exitCode, nil
}

// Executor runs single pipeline steps as child processes.
type Executor struct {
	shell ShellRunner
	log   *slog.Logger
}

// NewExecutor creates an Executor. A nil shell defaults to ExecShell and a
// nil logger to slog.Default().
func NewExecutor(shell ShellRunner, log *slog.Logger) *Executor {
	if shell == nil {
		shell = ExecShell{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Executor{shell: shell, log: log}
}

// Execute runs one step inside repoRoot and returns its terminal result.
// It never returns an error: every failure mode (missing working
// directory, timeout, launch failure, non-zero exit) is folded into the
// returned StepResult.
//
// Succeeded is true iff the process exited 0 or the step allows failure.
// The one exception is a missing working directory, which fails the step
// unconditionally and forces AllowFailure off in the result so the runner
// always halts there.
func (e *Executor) Execute(step StepSpec, repoRoot string) StepResult {
	dir := repoRoot
	if step.WorkingDir != "" {
		dir = filepath.Join(repoRoot, step.WorkingDir)
	}

	if _, err := os.Stat(dir); err != nil {
		msg := fmt.Sprintf("working directory does not exist: %s", dir)
		e.log.Error("CI step failed", "step", step.Name, "error", msg)
		return StepResult{
			Name:      step.Name,
			Succeeded: false,
			Stderr:    msg,
			Error:     msg,
		}
	}

	timeout := time.Duration(step.TimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	e.log.Info("CI step started", "step", step.Name, "dir", dir)
	start := time.Now()
	stdout, stderr, exitCode, err := e.shell.Run(ctx, dir, step.Command)
	duration := time.Since(start).Seconds()

	res := StepResult{
		Name:            step.Name,
		DurationSeconds: duration,
		AllowFailure:    step.AllowFailure,
	}

	switch {
	case ctx.Err() == context.DeadlineExceeded:
		// The child has been killed by the expired context; partial
		// output is dropped, matching a hard interruption.
		res.Succeeded = step.AllowFailure
		res.Error = fmt.Sprintf("execution timed out after %ds", step.TimeoutSeconds)
		res.Stderr = res.Error
	case err != nil:
		res.Succeeded = step.AllowFailure
		res.Error = fmt.Sprintf("command failed to run: %v", err)
		res.Stderr = err.Error()
	default:
		code := exitCode
		res.ExitCode = &code
		res.Succeeded = exitCode == 0 || step.AllowFailure
		res.Stdout = stdout
		res.Stderr = stderr
	}

	if res.Succeeded {
		e.log.Info("CI step finished", "step", step.Name, "succeeded", true, "duration_s", res.DurationSeconds)
	} else {
		e.log.Error("CI step finished", "step", step.Name, "succeeded", false, "duration_s", res.DurationSeconds, "error", res.Error)
	}
	return res
}
