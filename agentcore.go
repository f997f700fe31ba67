// Package agentcore provides a high-level façade over the background
// executor and memory services (durable stores, shared blocks & logging)
// enabling rapid construction of stateful agent runtimes. Most applications
// interact with this package by:
//  1. Creating an AgentCore via New() (optionally overriding default in-memory services)
//  2. Building one or more agents (model-backed or custom) with memory managers
//  3. Submitting runs asynchronously (ExecuteAsync) or synchronously (Run)
//
// The façade delegates run tracking to executor.Executor while keeping setup
// and usage ergonomics concise. All defaults are safe for local development
// and testing; production deployments typically supply a durable store
// implementation and a structured logger.
package agentcore

import (
	"context"
	"time"

	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/executor"
	"github.com/hupe1980/agentcore/logging"
	"github.com/hupe1980/agentcore/memory"
	"github.com/hupe1980/agentcore/sleeptime"
	"github.com/hupe1980/agentcore/storage"
)

// Options configures the AgentCore instance.
type Options struct {
	// Store persists memory blocks and message history. Defaults to an
	// in-memory implementation if not provided.
	Store core.MemoryStore

	// Shared is the cross-agent block registry. Defaults to a fresh
	// process-local registry if not provided.
	Shared *memory.SharedMemoryStore

	// MaxContextSize bounds each agent memory's in-context budget. Defaults
	// to memory.DefaultMaxContextSize.
	MaxContextSize int

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// AgentCore is the high-level façade aggregating the run executor and the
// memory services.
type AgentCore struct {
	opts     Options
	executor *executor.Executor
}

// New creates a new AgentCore instance with optional overrides. Any unset
// service is initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *AgentCore {
	opts := Options{
		Store:          storage.NewInMemoryStore(),
		Shared:         memory.NewSharedMemoryStore(),
		MaxContextSize: memory.DefaultMaxContextSize,
		Logger:         logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	exec := executor.New(func(o *executor.Options) {
		o.Logger = opts.Logger
	})

	return &AgentCore{opts: opts, executor: exec}
}

// NewAgentMemory creates a memory manager for the given agent, wired to the
// configured durable store, shared registry and logger.
func (c *AgentCore) NewAgentMemory(agentID core.AgentID) *memory.AgentMemory {
	return memory.New(agentID, func(o *memory.Options) {
		o.MaxContextSize = c.opts.MaxContextSize
		o.Store = c.opts.Store
		o.Shared = c.opts.Shared
		o.Logger = c.opts.Logger
	})
}

// NewConsolidator creates a sleep-time consolidator for the given memory
// manager, wired to the configured logger.
func (c *AgentCore) NewConsolidator(mem *memory.AgentMemory, cfg sleeptime.Config) *sleeptime.Consolidator {
	return sleeptime.New(mem, func(o *sleeptime.Options) {
		o.Config = cfg
		o.Logger = c.opts.Logger
	})
}

// SharedMemory returns the cross-agent block registry.
func (c *AgentCore) SharedMemory() *memory.SharedMemoryStore { return c.opts.Shared }

// Store returns the configured durable memory store.
func (c *AgentCore) Store() core.MemoryStore { return c.opts.Store }

// ExecuteAsync submits a run for the given agent and returns its id without
// waiting for execution.
func (c *AgentCore) ExecuteAsync(agent core.Agent, input string) (core.RunID, error) {
	return c.executor.ExecuteAsync(agent, input)
}

// Run is a synchronous helper that submits a run and blocks until it
// finishes, returning the run id alongside the agent's output.
func (c *AgentCore) Run(ctx context.Context, agent core.Agent, input string) (core.RunID, *core.AgentOutput, error) {
	runID, err := c.executor.ExecuteAsync(agent, input)
	if err != nil {
		return "", nil, err
	}

	output, err := c.executor.WaitForCompletion(ctx, runID)
	if err != nil {
		return runID, nil, err
	}

	return runID, output, nil
}

// GetRunMetadata returns a point-in-time snapshot of a run's metadata.
func (c *AgentCore) GetRunMetadata(id core.RunID) (core.RunMetadata, error) {
	return c.executor.GetRunMetadata(id)
}

// StreamEvents returns a run's events in ascending sequence order, optionally
// resuming after a previously seen sequence id.
func (c *AgentCore) StreamEvents(id core.RunID, after *core.SeqID) ([]core.RunEvent, error) {
	return c.executor.StreamEvents(id, after)
}

// GetEventsPaginated walks a run's event log page by page.
func (c *AgentCore) GetEventsPaginated(id core.RunID, cursor *core.SeqID, limit int) (core.EventPage, error) {
	return c.executor.GetEventsPaginated(id, cursor, limit)
}

// WaitForCompletion blocks until the run finishes and returns its output.
// The completion ticket is consumed by the first caller.
func (c *AgentCore) WaitForCompletion(ctx context.Context, id core.RunID) (*core.AgentOutput, error) {
	return c.executor.WaitForCompletion(ctx, id)
}

// CancelRun aborts a run that has not finished and has not been claimed by a
// waiter.
func (c *AgentCore) CancelRun(id core.RunID) error {
	return c.executor.CancelRun(id)
}

// ListRuns returns metadata snapshots for every tracked run, ordered by
// creation time.
func (c *AgentCore) ListRuns() []core.RunMetadata {
	return c.executor.ListRuns()
}

// CleanupOldRuns removes terminal runs older than the retention window and
// reports how many were removed.
func (c *AgentCore) CleanupOldRuns(retention time.Duration) int {
	return c.executor.CleanupOldRuns(retention)
}

// Close shuts down the run executor, cancelling in-flight runs and waiting
// for their goroutines to finish.
func (c *AgentCore) Close() {
	c.executor.Close()
}
