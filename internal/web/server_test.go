package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"repodeck/internal/ci"
	"repodeck/internal/history"
	"repodeck/internal/tasks"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := tasks.NewHandler(2, log)
	t.Cleanup(handler.Stop)

	return NewServer(store, handler, 0, log)
}

func TestListRuns_Empty(t *testing.T) {
	s := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Fatalf("body = %q, want []", got)
	}
}

func TestListRuns_InvalidLimit(t *testing.T) {
	s := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/runs?limit=zero", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	s := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/runs/nope", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetRun_ReturnsStoredRun(t *testing.T) {
	s := testServer(t)

	code := 0
	result := ci.PipelineRunResult{
		RunID:   "run-web-1",
		Success: true,
		Steps: []ci.StepResult{
			{Name: "lint", Succeeded: true, ExitCode: &code},
		},
	}
	now := time.Now()
	if err := s.store.RecordRun("/tmp/repo", now, now.Add(time.Second), result); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/runs/run-web-1", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var run history.Run
	if err := json.Unmarshal(rec.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if run.RunID != "run-web-1" || !run.Success {
		t.Fatalf("unexpected run: %+v", run)
	}
	if len(run.Steps) != 1 || run.Steps[0].Name != "lint" {
		t.Fatalf("unexpected steps: %+v", run.Steps)
	}
}

func TestStartRun_RequiresRepoPath(t *testing.T) {
	s := testServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestStartRun_MissingConfig(t *testing.T) {
	s := testServer(t)

	body, _ := json.Marshal(startRunRequest{RepoPath: t.TempDir()})
	req := httptest.NewRequest(http.MethodPost, "/api/runs", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestStartRun_RunsPipelineAndRecords(t *testing.T) {
	s := testServer(t)

	repo := t.TempDir()
	cfg := "steps:\n  - name: ok\n    run: \"true\"\n"
	if err := os.WriteFile(filepath.Join(repo, ci.ConfigFileName), []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}

	body, _ := json.Marshal(startRunRequest{RepoPath: repo})
	req := httptest.NewRequest(http.MethodPost, "/api/runs", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	taskID := resp["task_id"]
	if taskID == "" {
		t.Fatal("expected task_id in response")
	}

	result, err := s.tasks.Wait(taskID)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	run, ok := result.(ci.PipelineRunResult)
	if !ok {
		t.Fatalf("result type = %T", result)
	}
	if !run.Success {
		t.Fatalf("pipeline failed: %+v", run)
	}

	stored, err := s.store.GetRun(run.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if stored == nil {
		t.Fatal("run not recorded in history")
	}
	if stored.RepoPath != repo {
		t.Fatalf("repo_path = %q, want %q", stored.RepoPath, repo)
	}
}

func TestHub_PublishReachesSubscribers(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe()
	defer cancel()

	hub.Publish(Event{Type: "step_started", RunID: "r1", Index: 2})

	select {
	case ev := <-ch:
		if ev.Type != "step_started" || ev.RunID != "r1" || ev.Index != 2 {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestHub_CancelStopsDelivery(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe()
	cancel()

	// Publishing after cancel must not panic on the closed channel.
	hub.Publish(Event{Type: "pipeline_started"})

	if _, open := <-ch; open {
		t.Fatal("expected closed channel after cancel")
	}
}

func TestRunReporter_StampsRunID(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe()
	defer cancel()

	rep := &runReporter{hub: hub}
	rep.PipelineStarted("run-9", 1)
	rep.StepStarted(0, ci.StepSpec{Name: "build"})
	rep.StepFinished(0, ci.StepResult{Name: "build", Succeeded: true})
	rep.PipelineFinished(ci.PipelineRunResult{RunID: "run-9", Success: true})

	for _, wantType := range []string{"pipeline_started", "step_started", "step_finished", "pipeline_finished"} {
		select {
		case ev := <-ch:
			if ev.Type != wantType {
				t.Fatalf("event type = %q, want %q", ev.Type, wantType)
			}
			if ev.RunID != "run-9" {
				t.Fatalf("%s run_id = %q, want run-9", ev.Type, ev.RunID)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s", wantType)
		}
	}
}

func TestEventJSON_KeepsZeroIndex(t *testing.T) {
	data, err := json.Marshal(Event{Type: "step_started", RunID: "r3", Index: 0})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	// Step 0 must be distinguishable from an absent index.
	if !strings.Contains(string(data), `"index":0`) {
		t.Fatalf("payload missing index field: %s", data)
	}
}

func TestEvents_StreamsSSEFrames(t *testing.T) {
	s := testServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		s.Router().ServeHTTP(rec, req)
		close(done)
	}()

	// Let the handler subscribe before publishing.
	time.Sleep(100 * time.Millisecond)
	s.hub.Publish(Event{Type: "step_finished", RunID: "r2", Index: 0})
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not exit on context cancel")
	}

	body := rec.Body.String()
	if !strings.Contains(body, "event: connected") {
		t.Fatalf("missing connected frame: %q", body)
	}
	if !strings.Contains(body, "event: step_finished") {
		t.Fatalf("missing step_finished frame: %q", body)
	}
	if !strings.Contains(body, `"run_id":"r2"`) {
		t.Fatalf("missing event payload: %q", body)
	}
}
