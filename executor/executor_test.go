package executor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/agentcore/core"
)

// testAgent is a mock agent whose behavior is supplied per test.
type testAgent struct {
	id   core.AgentID
	name string
	fn   func(runCtx *core.RunContext) (*core.AgentOutput, error)
}

var _ core.Agent = (*testAgent)(nil)

func newTestAgent(name string, fn func(runCtx *core.RunContext) (*core.AgentOutput, error)) *testAgent {
	return &testAgent{id: core.NewAgentID(), name: name, fn: fn}
}

func (a *testAgent) ID() core.AgentID { return a.id }

func (a *testAgent) Name() string { return a.name }

func (a *testAgent) Execute(runCtx *core.RunContext) (*core.AgentOutput, error) {
	return a.fn(runCtx)
}

// echoAgent completes immediately, echoing the run input.
func echoAgent(name string) *testAgent {
	return newTestAgent(name, func(runCtx *core.RunContext) (*core.AgentOutput, error) {
		return &core.AgentOutput{Content: "echo: " + runCtx.Input}, nil
	})
}

// blockingAgent waits for cancellation before returning.
func blockingAgent(name string) *testAgent {
	return newTestAgent(name, func(runCtx *core.RunContext) (*core.AgentOutput, error) {
		<-runCtx.Done()
		return nil, runCtx.Err()
	})
}

// waitForStatus polls until the run reaches the wanted status.
func waitForStatus(t *testing.T, exec *Executor, id core.RunID, status core.RunStatus) core.RunMetadata {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)

	for time.Now().Before(deadline) {
		meta, err := exec.GetRunMetadata(id)
		if err != nil {
			t.Fatalf("GetRunMetadata returned error: %v", err)
		}

		if meta.Status == status {
			return meta
		}

		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("Run %s never reached status %s", id, status)

	return core.RunMetadata{}
}

func TestExecutor_ExecuteAsyncLifecycle(t *testing.T) {
	exec := New()
	defer exec.Close()

	agent := newTestAgent("lifecycle", func(runCtx *core.RunContext) (*core.AgentOutput, error) {
		runCtx.RecordThought("thinking about it")
		return &core.AgentOutput{Content: "done"}, nil
	})

	runID, err := exec.ExecuteAsync(agent, "hi")
	if err != nil {
		t.Fatalf("ExecuteAsync returned error: %v", err)
	}

	if runID == "" {
		t.Fatal("Expected a non-empty run id")
	}

	output, err := exec.WaitForCompletion(context.Background(), runID)
	if err != nil {
		t.Fatalf("WaitForCompletion returned error: %v", err)
	}

	if output == nil || output.Content != "done" {
		t.Fatalf("Expected output 'done', got %+v", output)
	}

	meta, err := exec.GetRunMetadata(runID)
	if err != nil {
		t.Fatalf("GetRunMetadata returned error: %v", err)
	}

	if meta.Status != core.RunStatusCompleted {
		t.Errorf("Expected status %s, got %s", core.RunStatusCompleted, meta.Status)
	}

	if meta.AgentName != "lifecycle" || meta.Input != "hi" {
		t.Errorf("Unexpected metadata identity: agent=%s input=%s", meta.AgentName, meta.Input)
	}

	if meta.StartedAt == nil || meta.CompletedAt == nil {
		t.Error("Expected both StartedAt and CompletedAt to be set")
	}

	events, err := exec.StreamEvents(runID, nil)
	if err != nil {
		t.Fatalf("StreamEvents returned error: %v", err)
	}

	// Started, Thought, Output, Completed.
	if len(events) != 4 {
		t.Fatalf("Expected 4 events, got %d", len(events))
	}

	if meta.TotalEvents != len(events) {
		t.Errorf("Expected TotalEvents %d to equal stored event count %d", meta.TotalEvents, len(events))
	}

	if meta.LastSeqID != core.SeqID(len(events)) {
		t.Errorf("Expected LastSeqID %d, got %d", len(events), meta.LastSeqID)
	}

	if events[0].Type != core.RunEventStarted {
		t.Errorf("Expected first event %s, got %s", core.RunEventStarted, events[0].Type)
	}

	if got := events[0].Data["agent"]; got != "lifecycle" {
		t.Errorf("Expected started event to carry agent name, got %v", got)
	}

	if got := events[0].Data["input"]; got != "hi" {
		t.Errorf("Expected started event to carry input, got %v", got)
	}

	if events[1].Type != core.RunEventThought {
		t.Errorf("Expected second event %s, got %s", core.RunEventThought, events[1].Type)
	}

	if events[2].Type != core.RunEventOutput {
		t.Errorf("Expected third event %s, got %s", core.RunEventOutput, events[2].Type)
	}

	if got := events[2].Data["content"]; got != "done" {
		t.Errorf("Expected output event content 'done', got %v", got)
	}

	if events[3].Type != core.RunEventCompleted {
		t.Errorf("Expected final event %s, got %s", core.RunEventCompleted, events[3].Type)
	}
}

func TestExecutor_SequenceIDsGapFree(t *testing.T) {
	exec := New()
	defer exec.Close()

	agent := newTestAgent("sequencer", func(runCtx *core.RunContext) (*core.AgentOutput, error) {
		for i := 0; i < 5; i++ {
			runCtx.RecordThought("step")
		}
		return &core.AgentOutput{Content: "ok"}, nil
	})

	runID, err := exec.ExecuteAsync(agent, "count")
	if err != nil {
		t.Fatalf("ExecuteAsync returned error: %v", err)
	}

	if _, err := exec.WaitForCompletion(context.Background(), runID); err != nil {
		t.Fatalf("WaitForCompletion returned error: %v", err)
	}

	events, err := exec.StreamEvents(runID, nil)
	if err != nil {
		t.Fatalf("StreamEvents returned error: %v", err)
	}

	// Started + 5 thoughts + Output + Completed.
	if len(events) != 8 {
		t.Fatalf("Expected 8 events, got %d", len(events))
	}

	for i, ev := range events {
		if ev.SeqID != core.SeqID(i) {
			t.Errorf("Expected event %d to carry seq id %d, got %d", i, i, ev.SeqID)
		}
	}
}

func TestExecutor_StreamEventsAfterCursor(t *testing.T) {
	exec := New()
	defer exec.Close()

	agent := newTestAgent("streamer", func(runCtx *core.RunContext) (*core.AgentOutput, error) {
		runCtx.RecordThought("one")
		runCtx.RecordThought("two")
		return &core.AgentOutput{Content: "ok"}, nil
	})

	runID, err := exec.ExecuteAsync(agent, "stream")
	if err != nil {
		t.Fatalf("ExecuteAsync returned error: %v", err)
	}

	if _, err := exec.WaitForCompletion(context.Background(), runID); err != nil {
		t.Fatalf("WaitForCompletion returned error: %v", err)
	}

	all, err := exec.StreamEvents(runID, nil)
	if err != nil {
		t.Fatalf("StreamEvents returned error: %v", err)
	}

	// Started, two thoughts, Output, Completed.
	if len(all) != 5 {
		t.Fatalf("Expected 5 events, got %d", len(all))
	}

	after := core.SeqID(1)

	tail, err := exec.StreamEvents(runID, &after)
	if err != nil {
		t.Fatalf("StreamEvents with cursor returned error: %v", err)
	}

	if len(tail) != 3 {
		t.Fatalf("Expected 3 events after seq 1, got %d", len(tail))
	}

	for i, ev := range tail {
		if ev.SeqID != after+core.SeqID(i)+1 {
			t.Errorf("Expected tail event %d to carry seq id %d, got %d", i, int(after)+i+1, ev.SeqID)
		}
	}

	last := all[len(all)-1].SeqID

	empty, err := exec.StreamEvents(runID, &last)
	if err != nil {
		t.Fatalf("StreamEvents with final cursor returned error: %v", err)
	}

	if len(empty) != 0 {
		t.Errorf("Expected no events after the final seq id, got %d", len(empty))
	}
}

func TestExecutor_GetEventsPaginated(t *testing.T) {
	exec := New()
	defer exec.Close()

	agent := newTestAgent("paginator", func(runCtx *core.RunContext) (*core.AgentOutput, error) {
		for i := 0; i < 5; i++ {
			runCtx.RecordThought("step")
		}
		return &core.AgentOutput{Content: "ok"}, nil
	})

	runID, err := exec.ExecuteAsync(agent, "page")
	if err != nil {
		t.Fatalf("ExecuteAsync returned error: %v", err)
	}

	if _, err := exec.WaitForCompletion(context.Background(), runID); err != nil {
		t.Fatalf("WaitForCompletion returned error: %v", err)
	}

	// 8 events total, walked in pages of 3.
	var (
		cursor    *core.SeqID
		collected []core.RunEvent
		pages     int
	)

	for {
		page, err := exec.GetEventsPaginated(runID, cursor, 3)
		if err != nil {
			t.Fatalf("GetEventsPaginated returned error: %v", err)
		}

		if page.TotalEvents != 8 {
			t.Errorf("Expected TotalEvents 8, got %d", page.TotalEvents)
		}

		collected = append(collected, page.Events...)
		pages++

		if !page.HasMore {
			if pages <= 1 {
				t.Error("Expected pagination to span multiple pages")
			}
			break
		}

		if page.NextCursor == nil {
			t.Fatal("Expected a next cursor while more events remain")
		}

		cursor = page.NextCursor
	}

	if pages != 3 {
		t.Errorf("Expected 3 pages, got %d", pages)
	}

	if len(collected) != 8 {
		t.Fatalf("Expected pagination to collect 8 events, got %d", len(collected))
	}

	for i, ev := range collected {
		if ev.SeqID != core.SeqID(i) {
			t.Errorf("Expected collected event %d to carry seq id %d, got %d", i, i, ev.SeqID)
		}
	}

	// A cursor past the final event yields an empty page.
	last := collected[len(collected)-1].SeqID

	page, err := exec.GetEventsPaginated(runID, &last, 3)
	if err != nil {
		t.Fatalf("GetEventsPaginated returned error: %v", err)
	}

	if len(page.Events) != 0 || page.HasMore || page.NextCursor != nil {
		t.Errorf("Expected an empty final page, got %+v", page)
	}

	// A non-positive limit returns everything remaining.
	full, err := exec.GetEventsPaginated(runID, nil, 0)
	if err != nil {
		t.Fatalf("GetEventsPaginated returned error: %v", err)
	}

	if len(full.Events) != 8 || full.HasMore {
		t.Errorf("Expected a single full page, got %d events has_more=%v", len(full.Events), full.HasMore)
	}
}

func TestExecutor_WaitForCompletionConsumesHandle(t *testing.T) {
	exec := New()
	defer exec.Close()

	runID, err := exec.ExecuteAsync(echoAgent("echo"), "once")
	if err != nil {
		t.Fatalf("ExecuteAsync returned error: %v", err)
	}

	output, err := exec.WaitForCompletion(context.Background(), runID)
	if err != nil {
		t.Fatalf("First WaitForCompletion returned error: %v", err)
	}

	if output.Content != "echo: once" {
		t.Errorf("Expected output 'echo: once', got %q", output.Content)
	}

	// The second claim must fail fast, not hang or return stale data.
	start := time.Now()

	if _, err := exec.WaitForCompletion(context.Background(), runID); !errors.Is(err, ErrHandleTaken) {
		t.Fatalf("Expected ErrHandleTaken, got %v", err)
	}

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Second WaitForCompletion took %v, expected an immediate return", elapsed)
	}
}

func TestExecutor_WaitForCompletionFailure(t *testing.T) {
	exec := New()
	defer exec.Close()

	agent := newTestAgent("failing", func(runCtx *core.RunContext) (*core.AgentOutput, error) {
		return nil, errors.New("model unavailable")
	})

	runID, err := exec.ExecuteAsync(agent, "try")
	if err != nil {
		t.Fatalf("ExecuteAsync returned error: %v", err)
	}

	if _, err := exec.WaitForCompletion(context.Background(), runID); err == nil || !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("Expected the agent failure to propagate, got %v", err)
	}

	meta, err := exec.GetRunMetadata(runID)
	if err != nil {
		t.Fatalf("GetRunMetadata returned error: %v", err)
	}

	if meta.Status != core.RunStatusFailed {
		t.Errorf("Expected status %s, got %s", core.RunStatusFailed, meta.Status)
	}

	if meta.Error != "model unavailable" {
		t.Errorf("Expected metadata error 'model unavailable', got %q", meta.Error)
	}

	events, err := exec.StreamEvents(runID, nil)
	if err != nil {
		t.Fatalf("StreamEvents returned error: %v", err)
	}

	last := events[len(events)-1]
	if last.Type != core.RunEventFailed {
		t.Errorf("Expected final event %s, got %s", core.RunEventFailed, last.Type)
	}

	if got := last.Data["error"]; got != "model unavailable" {
		t.Errorf("Expected failed event to carry the error, got %v", got)
	}
}

func TestExecutor_CancelRun(t *testing.T) {
	exec := New()
	defer exec.Close()

	runID, err := exec.ExecuteAsync(blockingAgent("blocker"), "wait")
	if err != nil {
		t.Fatalf("ExecuteAsync returned error: %v", err)
	}

	waitForStatus(t, exec, runID, core.RunStatusRunning)

	if err := exec.CancelRun(runID); err != nil {
		t.Fatalf("CancelRun returned error: %v", err)
	}

	meta := waitForStatus(t, exec, runID, core.RunStatusCancelled)

	if meta.CompletedAt == nil {
		t.Error("Expected CompletedAt to be set on a cancelled run")
	}

	events, err := exec.StreamEvents(runID, nil)
	if err != nil {
		t.Fatalf("StreamEvents returned error: %v", err)
	}

	last := events[len(events)-1]
	if last.Type != core.RunEventFailed {
		t.Errorf("Expected final event %s, got %s", core.RunEventFailed, last.Type)
	}

	if got := last.Data["error"]; got != "Cancelled by user" {
		t.Errorf("Expected cancellation reason 'Cancelled by user', got %v", got)
	}

	for i, ev := range events {
		if ev.SeqID != core.SeqID(i) {
			t.Errorf("Expected event %d to carry seq id %d, got %d", i, i, ev.SeqID)
		}
	}

	// The ticket went to CancelRun, so waiting now fails.
	if _, err := exec.WaitForCompletion(context.Background(), runID); !errors.Is(err, ErrHandleTaken) {
		t.Fatalf("Expected ErrHandleTaken after cancellation, got %v", err)
	}

	// Give the run's goroutine time to observe cancellation and finish; the
	// terminal state must survive it untouched.
	time.Sleep(50 * time.Millisecond)

	after, err := exec.GetRunMetadata(runID)
	if err != nil {
		t.Fatalf("GetRunMetadata returned error: %v", err)
	}

	if after.Status != core.RunStatusCancelled {
		t.Errorf("Expected status to remain %s, got %s", core.RunStatusCancelled, after.Status)
	}

	if after.TotalEvents != meta.TotalEvents {
		t.Errorf("Expected event count to remain %d, got %d", meta.TotalEvents, after.TotalEvents)
	}
}

func TestExecutor_CancelCompletedRunIsNoOp(t *testing.T) {
	exec := New()
	defer exec.Close()

	runID, err := exec.ExecuteAsync(echoAgent("echo"), "quick")
	if err != nil {
		t.Fatalf("ExecuteAsync returned error: %v", err)
	}

	before := waitForStatus(t, exec, runID, core.RunStatusCompleted)

	if err := exec.CancelRun(runID); err != nil {
		t.Fatalf("CancelRun on a completed run returned error: %v", err)
	}

	after, err := exec.GetRunMetadata(runID)
	if err != nil {
		t.Fatalf("GetRunMetadata returned error: %v", err)
	}

	if after.Status != core.RunStatusCompleted {
		t.Errorf("Expected status to remain %s, got %s", core.RunStatusCompleted, after.Status)
	}

	if after.TotalEvents != before.TotalEvents {
		t.Errorf("Expected event count to remain %d, got %d", before.TotalEvents, after.TotalEvents)
	}

	events, err := exec.StreamEvents(runID, nil)
	if err != nil {
		t.Fatalf("StreamEvents returned error: %v", err)
	}

	for _, ev := range events {
		if ev.Data["error"] == "Cancelled by user" {
			t.Error("Expected no cancellation event on a completed run")
		}
	}
}

func TestExecutor_CancelAfterClaimIsNoOp(t *testing.T) {
	exec := New()
	defer exec.Close()

	release := make(chan struct{})

	agent := newTestAgent("holder", func(runCtx *core.RunContext) (*core.AgentOutput, error) {
		select {
		case <-release:
			return &core.AgentOutput{Content: "late output"}, nil
		case <-runCtx.Done():
			return nil, runCtx.Err()
		}
	})

	runID, err := exec.ExecuteAsync(agent, "hold")
	if err != nil {
		t.Fatalf("ExecuteAsync returned error: %v", err)
	}

	waitForStatus(t, exec, runID, core.RunStatusRunning)

	// Claim the ticket with an expired context: the claim sticks even though
	// this caller gives up.
	expired, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := exec.WaitForCompletion(expired, runID); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}

	// The run now belongs to the (departed) waiter; cancellation is a no-op.
	if err := exec.CancelRun(runID); err != nil {
		t.Fatalf("CancelRun returned error: %v", err)
	}

	meta, err := exec.GetRunMetadata(runID)
	if err != nil {
		t.Fatalf("GetRunMetadata returned error: %v", err)
	}

	if meta.Status != core.RunStatusRunning {
		t.Fatalf("Expected the claimed run to keep running, got %s", meta.Status)
	}

	close(release)

	waitForStatus(t, exec, runID, core.RunStatusCompleted)

	if _, err := exec.WaitForCompletion(context.Background(), runID); !errors.Is(err, ErrHandleTaken) {
		t.Fatalf("Expected ErrHandleTaken on a consumed ticket, got %v", err)
	}
}

func TestExecutor_AgentPanicBecomesTaskFailure(t *testing.T) {
	exec := New()
	defer exec.Close()

	agent := newTestAgent("panicky", func(runCtx *core.RunContext) (*core.AgentOutput, error) {
		panic("boom")
	})

	runID, err := exec.ExecuteAsync(agent, "explode")
	if err != nil {
		t.Fatalf("ExecuteAsync returned error: %v", err)
	}

	_, err = exec.WaitForCompletion(context.Background(), runID)
	if !errors.Is(err, ErrTaskFailure) {
		t.Fatalf("Expected ErrTaskFailure, got %v", err)
	}

	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("Expected the panic value in the error, got %v", err)
	}

	meta, err := exec.GetRunMetadata(runID)
	if err != nil {
		t.Fatalf("GetRunMetadata returned error: %v", err)
	}

	if meta.Status != core.RunStatusFailed {
		t.Errorf("Expected status %s, got %s", core.RunStatusFailed, meta.Status)
	}
}

func TestExecutor_NoEventsAfterTerminal(t *testing.T) {
	exec := New()
	defer exec.Close()

	agent := newTestAgent("straggler", func(runCtx *core.RunContext) (*core.AgentOutput, error) {
		<-runCtx.Done()
		// Emitted after cancellation closed the log; must be dropped.
		runCtx.RecordThought("after cancel")
		return nil, runCtx.Err()
	})

	runID, err := exec.ExecuteAsync(agent, "late")
	if err != nil {
		t.Fatalf("ExecuteAsync returned error: %v", err)
	}

	waitForStatus(t, exec, runID, core.RunStatusRunning)

	if err := exec.CancelRun(runID); err != nil {
		t.Fatalf("CancelRun returned error: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	events, err := exec.StreamEvents(runID, nil)
	if err != nil {
		t.Fatalf("StreamEvents returned error: %v", err)
	}

	last := events[len(events)-1]
	if last.Type != core.RunEventFailed || last.Data["error"] != "Cancelled by user" {
		t.Errorf("Expected the log to end with the cancellation event, got %+v", last)
	}

	for _, ev := range events {
		if ev.Type == core.RunEventThought && ev.Data["text"] == "after cancel" {
			t.Error("Expected the post-cancellation thought to be dropped")
		}
	}
}

func TestExecutor_NotFound(t *testing.T) {
	exec := New()
	defer exec.Close()

	unknown := core.NewRunID()

	if _, err := exec.GetRunMetadata(unknown); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound from GetRunMetadata, got %v", err)
	}

	if _, err := exec.StreamEvents(unknown, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound from StreamEvents, got %v", err)
	}

	if _, err := exec.GetEventsPaginated(unknown, nil, 10); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound from GetEventsPaginated, got %v", err)
	}

	if _, err := exec.WaitForCompletion(context.Background(), unknown); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound from WaitForCompletion, got %v", err)
	}

	if err := exec.CancelRun(unknown); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound from CancelRun, got %v", err)
	}
}

func TestExecutor_ListRuns(t *testing.T) {
	exec := New()
	defer exec.Close()

	inputs := []string{"first", "second", "third"}
	ids := make(map[core.RunID]bool, len(inputs))

	for _, input := range inputs {
		runID, err := exec.ExecuteAsync(echoAgent("echo"), input)
		if err != nil {
			t.Fatalf("ExecuteAsync returned error: %v", err)
		}

		ids[runID] = true

		if _, err := exec.WaitForCompletion(context.Background(), runID); err != nil {
			t.Fatalf("WaitForCompletion returned error: %v", err)
		}
	}

	runs := exec.ListRuns()

	if len(runs) != len(inputs) {
		t.Fatalf("Expected %d runs, got %d", len(inputs), len(runs))
	}

	for i, meta := range runs {
		if !ids[meta.RunID] {
			t.Errorf("Listed unexpected run %s", meta.RunID)
		}

		if meta.Status != core.RunStatusCompleted {
			t.Errorf("Expected run %s to be completed, got %s", meta.RunID, meta.Status)
		}

		if i > 0 && meta.CreatedAt.Before(runs[i-1].CreatedAt) {
			t.Error("Expected runs ordered by creation time")
		}
	}
}

func TestExecutor_CleanupOldRuns(t *testing.T) {
	exec := New()
	defer exec.Close()

	var terminal []core.RunID

	for _, input := range []string{"a", "b"} {
		runID, err := exec.ExecuteAsync(echoAgent("echo"), input)
		if err != nil {
			t.Fatalf("ExecuteAsync returned error: %v", err)
		}

		if _, err := exec.WaitForCompletion(context.Background(), runID); err != nil {
			t.Fatalf("WaitForCompletion returned error: %v", err)
		}

		terminal = append(terminal, runID)
	}

	activeID, err := exec.ExecuteAsync(blockingAgent("blocker"), "keep")
	if err != nil {
		t.Fatalf("ExecuteAsync returned error: %v", err)
	}

	waitForStatus(t, exec, activeID, core.RunStatusRunning)

	// Nothing is old enough for a one-hour retention.
	if removed := exec.CleanupOldRuns(time.Hour); removed != 0 {
		t.Errorf("Expected no removals with a long retention, got %d", removed)
	}

	// A zero retention removes every terminal run but spares the active one.
	time.Sleep(10 * time.Millisecond)

	if removed := exec.CleanupOldRuns(0); removed != 2 {
		t.Errorf("Expected 2 removals, got %d", removed)
	}

	for _, id := range terminal {
		if _, err := exec.GetRunMetadata(id); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected removed run %s to be gone, got %v", id, err)
		}
	}

	if _, err := exec.GetRunMetadata(activeID); err != nil {
		t.Errorf("Expected the active run to survive cleanup, got %v", err)
	}

	if err := exec.CancelRun(activeID); err != nil {
		t.Fatalf("CancelRun returned error: %v", err)
	}

	waitForStatus(t, exec, activeID, core.RunStatusCancelled)
	time.Sleep(10 * time.Millisecond)

	if removed := exec.CleanupOldRuns(0); removed != 1 {
		t.Errorf("Expected the cancelled run to be removed, got %d", removed)
	}
}

func TestExecutor_ConcurrentRuns(t *testing.T) {
	exec := New()
	defer exec.Close()

	const numRuns = 25

	var wg sync.WaitGroup

	errs := make(chan error, numRuns)

	for i := 0; i < numRuns; i++ {
		wg.Add(1)

		go func(n int) {
			defer wg.Done()

			input := string(rune('a' + n%26))

			runID, err := exec.ExecuteAsync(echoAgent("echo"), input)
			if err != nil {
				errs <- err
				return
			}

			output, err := exec.WaitForCompletion(context.Background(), runID)
			if err != nil {
				errs <- err
				return
			}

			if output.Content != "echo: "+input {
				errs <- errors.New("unexpected output " + output.Content)
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Concurrent run failed: %v", err)
	}

	runs := exec.ListRuns()

	if len(runs) != numRuns {
		t.Fatalf("Expected %d runs, got %d", numRuns, len(runs))
	}

	for _, meta := range runs {
		if meta.Status != core.RunStatusCompleted {
			t.Errorf("Expected run %s to be completed, got %s", meta.RunID, meta.Status)
		}
	}
}

func TestExecutor_Close(t *testing.T) {
	exec := New()

	runID, err := exec.ExecuteAsync(blockingAgent("blocker"), "shutdown")
	if err != nil {
		t.Fatalf("ExecuteAsync returned error: %v", err)
	}

	waitForStatus(t, exec, runID, core.RunStatusRunning)

	exec.Close()

	meta, err := exec.GetRunMetadata(runID)
	if err != nil {
		t.Fatalf("GetRunMetadata returned error: %v", err)
	}

	if !meta.Status.Terminal() {
		t.Errorf("Expected the run to be terminal after Close, got %s", meta.Status)
	}

	if _, err := exec.ExecuteAsync(echoAgent("echo"), "too late"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Expected ErrClosed after shutdown, got %v", err)
	}

	// Close is idempotent.
	exec.Close()
}

func TestExecutor_OutputEventToolCallCount(t *testing.T) {
	exec := New()
	defer exec.Close()

	agent := newTestAgent("tooluser", func(runCtx *core.RunContext) (*core.AgentOutput, error) {
		runCtx.RecordToolCall("search", map[string]any{"query": "weather"})
		runCtx.RecordToolResult("search", "sunny", nil)
		runCtx.RecordToolCall("calculator", map[string]any{"expr": "1+1"})
		runCtx.RecordToolResult("calculator", "2", nil)
		return &core.AgentOutput{Content: "sunny, 2"}, nil
	})

	runID, err := exec.ExecuteAsync(agent, "tools")
	if err != nil {
		t.Fatalf("ExecuteAsync returned error: %v", err)
	}

	if _, err := exec.WaitForCompletion(context.Background(), runID); err != nil {
		t.Fatalf("WaitForCompletion returned error: %v", err)
	}

	events, err := exec.StreamEvents(runID, nil)
	if err != nil {
		t.Fatalf("StreamEvents returned error: %v", err)
	}

	var outputEvent *core.RunEvent

	for i := range events {
		if events[i].Type == core.RunEventOutput {
			outputEvent = &events[i]
		}
	}

	if outputEvent == nil {
		t.Fatal("Expected an output event")
	}

	if got := outputEvent.Data["tool_calls"]; got != 2 {
		t.Errorf("Expected output event to count 2 tool calls, got %v", got)
	}
}
