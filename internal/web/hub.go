package web

import (
	"sync"

	"repodeck/internal/ci"
)

// Event is one dashboard event, serialized onto the SSE stream.
type Event struct {
	Type    string                `json:"type"`
	RunID   string                `json:"run_id,omitempty"`
	Index   int                   `json:"index"`
	Total   int                   `json:"total"`
	Step    *ci.StepSpec          `json:"step,omitempty"`
	Result  *ci.StepResult        `json:"result,omitempty"`
	Success *bool                 `json:"success,omitempty"`
	Run     *ci.PipelineRunResult `json:"run,omitempty"`
}

// Hub fanouts events to all connected stream subscribers. Slow
// subscribers drop events rather than block the publisher.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new subscriber channel. The returned cancel
// func removes it and closes the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber without blocking.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// runReporter adapts the Hub to the pipeline reporter interface so a
// run in progress streams to the dashboard. The run ID arrives with the
// first event and is stamped on the rest.
type runReporter struct {
	hub   *Hub
	runID string
}

func (r *runReporter) PipelineStarted(runID string, totalSteps int) {
	r.runID = runID
	r.hub.Publish(Event{Type: "pipeline_started", RunID: runID, Total: totalSteps})
}

func (r *runReporter) StepStarted(index int, step ci.StepSpec) {
	r.hub.Publish(Event{Type: "step_started", RunID: r.runID, Index: index, Step: &step})
}

func (r *runReporter) StepFinished(index int, result ci.StepResult) {
	r.hub.Publish(Event{Type: "step_finished", RunID: r.runID, Index: index, Result: &result})
}

func (r *runReporter) PipelineFinished(result ci.PipelineRunResult) {
	success := result.Success
	r.hub.Publish(Event{Type: "pipeline_finished", RunID: result.RunID, Success: &success, Run: &result})
}
