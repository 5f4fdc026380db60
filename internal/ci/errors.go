package ci

import (
	"errors"
	"fmt"
)

// Configuration errors. All of them are fatal to starting a run: the
// pipeline never begins executing steps when config loading fails.
var (
	ErrConfigNotFound = errors.New("CI config file not found")
	ErrEmptyConfig    = errors.New("CI config is empty")
	ErrNoSteps        = errors.New("CI config defines no steps")
)

// ParseError wraps a YAML syntax error in the pipeline config.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse CI config: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// MissingFieldError reports a step entry missing a required field.
// Step is 1-based to match how pipeline authors count their steps.
type MissingFieldError struct {
	Step  int
	Field string
	Name  string // the step's name, when it has one
}

func (e *MissingFieldError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("step %d (%q): missing required field %q", e.Step, e.Name, e.Field)
	}
	return fmt.Sprintf("step %d: missing required field %q", e.Step, e.Field)
}
