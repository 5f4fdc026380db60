package ci

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validPipeline = `
steps:
  - name: build
    run: make build
  - name: test
    run: make test
    working_dir: pkg
    allow_failure: true
    timeout: 60
`

func TestParse_DefaultsApplied(t *testing.T) {
	cfg, err := Parse([]byte(validPipeline))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(cfg.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(cfg.Steps))
	}

	build := cfg.Steps[0]
	if build.Name != "build" || build.Command != "make build" {
		t.Errorf("unexpected step: %+v", build)
	}
	if build.WorkingDir != "" {
		t.Errorf("WorkingDir = %q, want empty", build.WorkingDir)
	}
	if build.AllowFailure {
		t.Errorf("AllowFailure = true, want false")
	}
	if build.TimeoutSeconds != DefaultTimeoutSeconds {
		t.Errorf("TimeoutSeconds = %d, want %d", build.TimeoutSeconds, DefaultTimeoutSeconds)
	}

	test := cfg.Steps[1]
	if test.WorkingDir != "pkg" || !test.AllowFailure || test.TimeoutSeconds != 60 {
		t.Errorf("explicit fields not preserved: %+v", test)
	}
}

func TestParse_MissingName(t *testing.T) {
	_, err := Parse([]byte("steps:\n  - run: make build\n"))
	var mf *MissingFieldError
	if !errors.As(err, &mf) {
		t.Fatalf("expected MissingFieldError, got %v", err)
	}
	if mf.Step != 1 || mf.Field != "name" {
		t.Errorf("got step %d field %q, want step 1 field name", mf.Step, mf.Field)
	}
	if !strings.Contains(err.Error(), "step 1") {
		t.Errorf("error message should identify step 1: %q", err.Error())
	}
}

func TestParse_MissingRun(t *testing.T) {
	_, err := Parse([]byte("steps:\n  - name: build\n"))
	var mf *MissingFieldError
	if !errors.As(err, &mf) {
		t.Fatalf("expected MissingFieldError, got %v", err)
	}
	if mf.Step != 1 || mf.Field != "run" || mf.Name != "build" {
		t.Errorf("got %+v, want step 1 field run name build", mf)
	}
	if !strings.Contains(err.Error(), "step 1") || !strings.Contains(err.Error(), "run") {
		t.Errorf("error message should identify step 1 and field run: %q", err.Error())
	}
}

func TestParse_MissingFieldIndexIsOneBased(t *testing.T) {
	doc := `
steps:
  - name: build
    run: make build
  - name: broken
`
	_, err := Parse([]byte(doc))
	var mf *MissingFieldError
	if !errors.As(err, &mf) {
		t.Fatalf("expected MissingFieldError, got %v", err)
	}
	if mf.Step != 2 {
		t.Errorf("Step = %d, want 2", mf.Step)
	}
}

func TestParse_EmptyDocument(t *testing.T) {
	for _, doc := range []string{"", "   \n", "null"} {
		_, err := Parse([]byte(doc))
		if !errors.Is(err, ErrEmptyConfig) {
			t.Errorf("Parse(%q) = %v, want ErrEmptyConfig", doc, err)
		}
	}
}

func TestParse_NoSteps(t *testing.T) {
	for _, doc := range []string{"other: value\n", "steps: []\n"} {
		_, err := Parse([]byte(doc))
		if !errors.Is(err, ErrNoSteps) {
			t.Errorf("Parse(%q) = %v, want ErrNoSteps", doc, err)
		}
	}
}

func TestParse_MalformedYAML(t *testing.T) {
	_, err := Parse([]byte("steps:\n  - name: [unclosed\n"))
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestLoadConfig_NotFound(t *testing.T) {
	_, err := LoadConfig(t.TempDir())
	if !errors.Is(err, ErrConfigNotFound) {
		t.Fatalf("expected ErrConfigNotFound, got %v", err)
	}
}

func TestLoadConfig_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(path, []byte(validPipeline), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if len(cfg.Steps) != 2 {
		t.Errorf("expected 2 steps, got %d", len(cfg.Steps))
	}
}
