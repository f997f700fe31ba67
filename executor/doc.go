// Package executor implements the run registry and background executor for
// AgentCore.
//
// The Executor schedules agent executions as independent background runs,
// tracks their lifecycle, and records an ordered, resumable event log for
// each one. It is the coordination point between callers that submit work
// and the goroutines that perform it.
//
// # Core Responsibilities
//
// Run Lifecycle:
//   - ExecuteAsync registers a run and returns its id without blocking
//   - Each run moves Queued -> Running -> Completed, Failed or Cancelled
//   - Terminal runs are immutable; no late event can reopen them
//   - CleanupOldRuns reclaims terminal runs past a retention window
//
// Resumable Progress:
//   - Every run carries an event log ordered by per-run sequence ids that
//     start at zero and increase without gaps or duplicates
//   - StreamEvents returns the events after a caller-supplied cursor, so a
//     disconnected observer resumes exactly where it left off
//   - GetEventsPaginated walks the same log page by page
//
// Completion Handoff:
//   - WaitForCompletion claims a run's completion ticket; the first caller
//     wins and every later claim fails with ErrHandleTaken
//   - CancelRun consumes the same ticket, so cancellation and waiting are
//     mutually exclusive per run
//
// # Concurrency Model
//
// All registry state lives behind a single RWMutex. Every mutation, whether
// issued by a caller or by a run's own goroutine, is one atomic update under
// that lock, so readers always observe an internally consistent snapshot.
// Returned metadata and events are frozen copies; callers never hold live
// references into the registry.
//
// Runs execute on goroutines detached from the submitting caller's context.
// They are bound to the executor itself: CancelRun aborts a single run and
// Close cancels everything still in flight.
//
// # Usage
//
//	exec := executor.New()
//	defer exec.Close()
//
//	runID, err := exec.ExecuteAsync(myAgent, "summarize the incident report")
//	if err != nil {
//	    return err
//	}
//
//	// Follow progress from another goroutine or process loop.
//	events, err := exec.StreamEvents(runID, nil)
//	if err != nil {
//	    return err
//	}
//	for _, ev := range events {
//	    fmt.Printf("%d %s\n", ev.SeqID, ev.Type)
//	}
//
//	// Block until the run finishes and collect its output.
//	output, err := exec.WaitForCompletion(ctx, runID)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(output.Content)
package executor
