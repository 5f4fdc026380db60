package ci

// Reporter receives pipeline progress as it happens. The runner invokes it
// synchronously between steps, so implementations that do slow work (network
// fan-out, rendering) should hand events off to their own goroutine.
//
// For a single run the call sequence is:
// PipelineStarted, then StepStarted/StepFinished per executed step,
// then PipelineFinished.
type Reporter interface {
	PipelineStarted(runID string, totalSteps int)
	StepStarted(index int, step StepSpec)
	StepFinished(index int, result StepResult)
	PipelineFinished(result PipelineRunResult)
}

// NopReporter discards all events.
type NopReporter struct{}

func (NopReporter) PipelineStarted(string, int) {}

func (NopReporter) StepStarted(int, StepSpec) {}

func (NopReporter) StepFinished(int, StepResult) {}

func (NopReporter) PipelineFinished(PipelineRunResult) {}
