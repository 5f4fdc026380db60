package ci

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func testRunner(rep Reporter) *Runner {
	return NewRunner(testExecutor(), rep, testLogger())
}

func TestRun_AllPass(t *testing.T) {
	dir := t.TempDir()
	cfg := &PipelineConfig{Steps: []StepSpec{
		{Name: "one", Command: "echo one", TimeoutSeconds: 10},
		{Name: "two", Command: "echo two", TimeoutSeconds: 10},
		{Name: "three", Command: "echo three", TimeoutSeconds: 10},
	}}

	res := testRunner(nil).Run(cfg, dir)
	if !res.Success {
		t.Errorf("Success = false, want true")
	}
	if res.RunID == "" {
		t.Errorf("RunID is empty")
	}
	if len(res.Steps) != 3 {
		t.Fatalf("expected 3 results, got %d", len(res.Steps))
	}
	for i, name := range []string{"one", "two", "three"} {
		if res.Steps[i].Name != name {
			t.Errorf("Steps[%d].Name = %q, want %q", i, res.Steps[i].Name, name)
		}
	}
}

func TestRun_HaltsOnFailure(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "marker")
	cfg := &PipelineConfig{Steps: []StepSpec{
		{Name: "fail", Command: "exit 1", TimeoutSeconds: 10},
		{Name: "never", Command: fmt.Sprintf("touch %s", marker), TimeoutSeconds: 10},
	}}

	res := testRunner(nil).Run(cfg, dir)
	if res.Success {
		t.Errorf("Success = true, want false")
	}
	if len(res.Steps) != 1 {
		t.Fatalf("expected 1 result, got %d", len(res.Steps))
	}
	if res.Steps[0].Name != "fail" {
		t.Errorf("Steps[0].Name = %q, want fail", res.Steps[0].Name)
	}
	if _, err := os.Stat(marker); !os.IsNotExist(err) {
		t.Errorf("second step ran: marker file exists")
	}
}

func TestRun_AllowFailureContinues(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "marker")
	cfg := &PipelineConfig{Steps: []StepSpec{
		{Name: "flaky", Command: "exit 1", AllowFailure: true, TimeoutSeconds: 10},
		{Name: "after", Command: fmt.Sprintf("touch %s", marker), TimeoutSeconds: 10},
	}}

	res := testRunner(nil).Run(cfg, dir)
	if !res.Success {
		t.Errorf("Success = false, want true")
	}
	if len(res.Steps) != 2 {
		t.Fatalf("expected 2 results, got %d", len(res.Steps))
	}
	if res.Steps[0].Succeeded != true {
		t.Errorf("allowed failure should report Succeeded = true")
	}
	if _, err := os.Stat(marker); err != nil {
		t.Errorf("second step did not run: %v", err)
	}
}

func TestRun_MissingDirHaltsDespiteAllowFailure(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "marker")
	cfg := &PipelineConfig{Steps: []StepSpec{
		{Name: "nodir", Command: "true", WorkingDir: "missing", AllowFailure: true, TimeoutSeconds: 10},
		{Name: "never", Command: fmt.Sprintf("touch %s", marker), TimeoutSeconds: 10},
	}}

	res := testRunner(nil).Run(cfg, dir)
	if res.Success {
		t.Errorf("Success = true, want false")
	}
	if len(res.Steps) != 1 {
		t.Fatalf("expected 1 result, got %d", len(res.Steps))
	}
	if _, err := os.Stat(marker); !os.IsNotExist(err) {
		t.Errorf("second step ran after missing-directory halt")
	}
}

// recordingReporter collects the event sequence for assertions.
type recordingReporter struct {
	events []string
	runID  string
	final  *PipelineRunResult
}

func (r *recordingReporter) PipelineStarted(runID string, total int) {
	r.runID = runID
	r.events = append(r.events, fmt.Sprintf("started:%d", total))
}

func (r *recordingReporter) StepStarted(i int, s StepSpec) {
	r.events = append(r.events, fmt.Sprintf("step_started:%d:%s", i, s.Name))
}

func (r *recordingReporter) StepFinished(i int, res StepResult) {
	r.events = append(r.events, fmt.Sprintf("step_finished:%d:%v", i, res.Succeeded))
}

func (r *recordingReporter) PipelineFinished(res PipelineRunResult) {
	r.final = &res
	r.events = append(r.events, fmt.Sprintf("finished:%v", res.Success))
}

func TestRun_ReporterSequence(t *testing.T) {
	dir := t.TempDir()
	rep := &recordingReporter{}
	cfg := &PipelineConfig{Steps: []StepSpec{
		{Name: "ok", Command: "true", TimeoutSeconds: 10},
		{Name: "fail", Command: "exit 1", TimeoutSeconds: 10},
	}}

	res := testRunner(rep).Run(cfg, dir)

	want := []string{
		"started:2",
		"step_started:0:ok",
		"step_finished:0:true",
		"step_started:1:fail",
		"step_finished:1:false",
		"finished:false",
	}
	if len(rep.events) != len(want) {
		t.Fatalf("events = %v, want %v", rep.events, want)
	}
	for i := range want {
		if rep.events[i] != want[i] {
			t.Errorf("events[%d] = %q, want %q", i, rep.events[i], want[i])
		}
	}
	if rep.runID != res.RunID {
		t.Errorf("reporter run ID %q != result run ID %q", rep.runID, res.RunID)
	}
	if rep.final == nil || rep.final.Success {
		t.Errorf("final event should carry the failed result")
	}
}
