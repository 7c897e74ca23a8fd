// Package orchestrator sequences the external programs that make up a
// pipeline run: database setup first, then the workflow runner. Steps run
// strictly in order and the first non-zero exit aborts the run, with that
// exit code propagated to the caller.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"go.uber.org/zap"
)

// EnvUseWebSearch is injected into the workflow step's environment.
const EnvUseWebSearch = "USE_WEB_SEARCH"

// Step is one external program invocation.
type Step struct {
	// Name appears in the progress line, e.g. "database setup".
	Name string

	// Command is the program and its base arguments.
	Command []string

	// Args are appended after Command, forwarded verbatim from the caller.
	Args []string

	// Env entries override any inherited value of the same variable in the
	// child environment only. The parent environment is never mutated.
	Env map[string]string
}

// StepError reports a step that exited non-zero or failed to start.
type StepError struct {
	Step     string
	ExitCode int
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q failed with exit code %d: %v", e.Step, e.ExitCode, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// ExitCode extracts the propagatable exit code from a Run error. A nil error
// yields 0.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var se *StepError
	if errors.As(err, &se) {
		return se.ExitCode
	}
	return 1
}

// Runner executes steps sequentially, fail-fast. Child stdout/stderr are
// wired straight through so the collaborators' own output stays visible.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer

	logger *zap.Logger
}

// New creates a Runner attached to the process's stdio.
func New(logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		logger: logger,
	}
}

// Run executes the steps in order. The first failure stops the run and is
// returned as a *StepError carrying the child's exit code. No retries, no
// timeouts: each child blocks the runner until it exits.
func (r *Runner) Run(ctx context.Context, steps []Step) error {
	for i, step := range steps {
		fmt.Fprintf(r.Stdout, "[%d/%d] %s...\n", i+1, len(steps), step.Name)

		if err := r.runStep(ctx, step); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runStep(ctx context.Context, step Step) error {
	if len(step.Command) == 0 {
		return &StepError{Step: step.Name, ExitCode: 1, Err: errors.New("empty command")}
	}

	args := append(append([]string{}, step.Command[1:]...), step.Args...)
	cmd := exec.CommandContext(ctx, step.Command[0], args...)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	cmd.Stdin = os.Stdin
	cmd.Env = mergeEnv(os.Environ(), step.Env)

	r.logger.Debug("running step",
		zap.String("step", step.Name),
		zap.Strings("command", append([]string{step.Command[0]}, args...)))

	err := cmd.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			// Child died to a signal; report it the way a shell would.
			if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
				code = 128 + int(status.Signal())
			} else {
				code = 1
			}
		}
		return &StepError{Step: step.Name, ExitCode: code, Err: err}
	}

	// The program could not be started at all.
	return &StepError{Step: step.Name, ExitCode: 127, Err: err}
}

// mergeEnv overlays overrides onto base, replacing any inherited entry for
// the same variable.
func mergeEnv(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return base
	}
	out := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		key, _, ok := strings.Cut(kv, "=")
		if ok {
			if _, shadowed := overrides[key]; shadowed {
				continue
			}
		}
		out = append(out, kv)
	}
	for k, v := range overrides {
		out = append(out, k+"="+v)
	}
	return out
}

// Pipeline builds the standard two-step run: setupCmd with no arguments,
// then workflowCmd with USE_WEB_SEARCH=1 and the caller's args appended
// unchanged.
func Pipeline(setupCmd, workflowCmd, args []string) []Step {
	return []Step{
		{
			Name:    "database setup",
			Command: setupCmd,
		},
		{
			Name:    "workflow run",
			Command: workflowCmd,
			Args:    args,
			Env:     map[string]string{EnvUseWebSearch: "1"},
		},
	}
}
