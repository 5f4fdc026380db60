package ci

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the pipeline definition file looked up at the
// repository root.
const ConfigFileName = ".local_ci.yaml"

// DefaultTimeoutSeconds is the wall-clock budget granted to a step that
// does not set its own timeout.
const DefaultTimeoutSeconds = 300

// LoadConfig reads and parses the pipeline definition of the repository
// at repoRoot. Returns ErrConfigNotFound when the file does not exist.
func LoadConfig(repoRoot string) (*PipelineConfig, error) {
	path := filepath.Join(repoRoot, ConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("read CI config %s: %w", path, err)
	}
	return Parse(data)
}

// stepDoc mirrors one YAML step entry before validation and defaulting.
type stepDoc struct {
	Name         string `yaml:"name"`
	Run          string `yaml:"run"`
	WorkingDir   string `yaml:"working_dir"`
	AllowFailure bool   `yaml:"allow_failure"`
	Timeout      int    `yaml:"timeout"`
}

type pipelineDoc struct {
	Steps []stepDoc `yaml:"steps"`
}

// Parse validates a pipeline document and returns the step list with
// defaults applied: working_dir "", allow_failure false, timeout 300s.
// Parsing is a pure transform; it performs no I/O.
func Parse(data []byte) (*PipelineConfig, error) {
	// An empty or null document is distinguished from one that merely
	// lacks a steps list, so decode the top level shape first.
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Err: err}
	}
	if len(raw) == 0 {
		return nil, ErrEmptyConfig
	}

	var doc pipelineDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Err: err}
	}
	if len(doc.Steps) == 0 {
		return nil, ErrNoSteps
	}

	cfg := &PipelineConfig{Steps: make([]StepSpec, 0, len(doc.Steps))}
	for i, s := range doc.Steps {
		if s.Name == "" {
			return nil, &MissingFieldError{Step: i + 1, Field: "name"}
		}
		if s.Run == "" {
			return nil, &MissingFieldError{Step: i + 1, Field: "run", Name: s.Name}
		}
		timeout := s.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeoutSeconds
		}
		cfg.Steps = append(cfg.Steps, StepSpec{
			Name:           s.Name,
			Command:        s.Run,
			WorkingDir:     s.WorkingDir,
			AllowFailure:   s.AllowFailure,
			TimeoutSeconds: timeout,
		})
	}
	return cfg, nil
}
