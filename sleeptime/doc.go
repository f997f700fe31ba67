// Package sleeptime implements background memory consolidation for
// AgentCore.
//
// A Consolidator runs alongside a primary agent and periodically maintains
// that agent's memory while it "sleeps": archiving stale context blocks,
// summarizing conversation history and detecting repeated questions. The
// primary agent keeps serving requests; the consolidator competes for the
// same memory through AgentMemory's own synchronization.
//
// # Lifecycle
//
// A Consolidator is Stopped until Start spawns its loop and Running until
// Stop signals it and joins it. Start on a running instance fails with
// ErrAlreadyRunning; Stop is idempotent and returns promptly, it never waits
// out the remaining consolidation interval.
//
// # Consolidation Pass
//
// Each pass is gated on the recent message count: below MinMessages the pass
// is skipped outright. Otherwise the pass runs up to three steps in order:
//
//   - Archival, when the context size exceeds ContextWarningThreshold: every
//     in-context block not updated for over an hour is moved out of context,
//     except the protected persona, organization and system blocks
//   - Summarization, when at least 50 recent messages exist: the oldest 50
//     are reduced to role counts and up to ten keywords, appended to the
//     conversation_summary block
//   - Pattern detection: user messages sharing a 50-character prefix three
//     or more times are recorded in the detected_patterns block
//
// A failing step is logged and the pass moves on; nothing a step does can
// stop the loop.
//
// # Usage
//
//	mem := memory.New(agentID)
//	cons := sleeptime.New(mem, func(o *sleeptime.Options) {
//	    o.Config.Interval = time.Minute
//	})
//
//	if err := cons.Start(); err != nil {
//	    return err
//	}
//	defer cons.Stop()
package sleeptime
