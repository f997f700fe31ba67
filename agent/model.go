package agent

import (
	"fmt"
	"strings"

	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/memory"
	"github.com/hupe1980/agentcore/model"
)

// Options configures a ModelAgent instance.
//
// Use functional options with NewModelAgent to override defaults.
type Options struct {
	// Description overrides the generated agent description.
	Description string

	// Instructions is the base system prompt sent with every completion
	// call.
	Instructions string

	// Memory is an optional memory manager. When set, in-context blocks are
	// rendered into the instructions, recent history is replayed as
	// conversation context and each exchange is recorded into the message
	// history.
	Memory *memory.AgentMemory

	// MaxTokens bounds the completion length; zero uses the provider
	// default.
	MaxTokens int

	// HistoryLimit caps how many recent history messages are replayed as
	// conversation context per call.
	HistoryLimit int
}

// ModelAgent integrates with language models to turn run inputs into
// completions.
//
// This agent implementation supports:
//   - Natural language conversation through system instructions
//   - Memory-grounded prompting (in-context blocks rendered into the
//     instructions)
//   - Conversation continuity by replaying recent history from memory
//   - Run observability through Thought and Progress events
//
// ModelAgent embeds Base to inherit standard agent identity.
type ModelAgent struct {
	Base                             // Embedded identity
	model        model.Model         // Language model interface
	instructions string              // Base system instructions
	memory       *memory.AgentMemory // Optional memory manager
	maxTokens    int                 // Completion length bound (0 = provider default)
	historyLimit int                 // Recent history messages replayed per call
}

// NewModelAgent creates a new model-backed agent with sensible defaults.
//
// The agent is initialized with:
//   - Standard identity inherited from Base
//   - A generic assistant instruction mentioning the agent's name
//   - A 20-message conversation history window
//
// Parameters:
//   - name: Human-readable name used in the default instructions
//   - m: Language model implementation for text generation
//
// Returns a fully configured ModelAgent ready for background runs.
func NewModelAgent(name string, m model.Model, optFns ...func(o *Options)) *ModelAgent {
	opts := Options{
		Instructions: fmt.Sprintf("You are %s, a helpful AI assistant.", name),
		HistoryLimit: 20,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	agent := &ModelAgent{
		Base:         NewBase(name),
		model:        m,
		instructions: opts.Instructions,
		memory:       opts.Memory,
		maxTokens:    opts.MaxTokens,
		historyLimit: opts.HistoryLimit,
	}

	if opts.Description != "" {
		agent.SetDescription(opts.Description)
	}

	return agent
}

// Memory returns the agent's memory manager, or nil when none is attached.
func (a *ModelAgent) Memory() *memory.AgentMemory { return a.memory }

// Model returns the underlying language model.
func (a *ModelAgent) Model() model.Model { return a.model }

// Instructions returns the agent's base system instructions.
func (a *ModelAgent) Instructions() string { return a.instructions }

// MaxTokens returns the completion length bound (0 = provider default).
func (a *ModelAgent) MaxTokens() int { return a.maxTokens }

// HistoryLimit returns the number of recent history messages replayed as
// conversation context per call.
func (a *ModelAgent) HistoryLimit() int { return a.historyLimit }

// Execute implements core.Agent. It builds a completion request from the
// instructions, the memory state and the run input, drives the model to
// completion and records the exchange into memory.
func (a *ModelAgent) Execute(runCtx *core.RunContext) (*core.AgentOutput, error) {
	if a.model == nil {
		return nil, fmt.Errorf("agent %s has no model configured", a.Name())
	}

	runCtx.LogDebug("agent.execute.start", "agent", a.Name(), "run_id", runCtx.RunID)

	req := a.buildRequest(runCtx.Input)

	if a.memory != nil {
		a.memory.AddMessage("user", runCtx.Input)
	}

	info := a.model.Info()
	runCtx.RecordThought(fmt.Sprintf("Generating completion with %s", info.Name))

	respCh, errCh := a.model.Generate(runCtx.Context, req)

	final, err := drainResponses(runCtx, respCh, errCh)
	if err != nil {
		return nil, err
	}

	if a.memory != nil {
		a.memory.AddMessage("assistant", final.Content)
	}

	progress := map[string]any{"finish_reason": final.FinishReason}
	if final.Usage != nil {
		progress["total_tokens"] = final.Usage.TotalTokens
	}

	runCtx.RecordProgress(progress)

	runCtx.LogDebug("agent.execute.complete", "agent", a.Name(), "run_id", runCtx.RunID)

	return &core.AgentOutput{
		Content: final.Content,
		Metadata: map[string]string{
			"model":    info.Name,
			"provider": info.Provider,
		},
	}, nil
}

// buildRequest assembles the completion request: base instructions plus
// rendered memory blocks, recent history and the new user input.
func (a *ModelAgent) buildRequest(input string) model.Request {
	instructions := a.instructions

	var messages []model.Message

	if a.memory != nil {
		instructions += renderBlocks(a.memory.ContextBlocks())

		if a.historyLimit > 0 {
			for _, entry := range a.memory.RecentMessages(a.historyLimit) {
				if entry.Role != "user" && entry.Role != "assistant" {
					continue
				}

				messages = append(messages, model.Message{Role: entry.Role, Content: entry.Content})
			}
		}
	}

	messages = append(messages, model.Message{Role: "user", Content: input})

	return model.Request{
		Instructions: instructions,
		Messages:     messages,
		MaxTokens:    a.maxTokens,
	}
}

// renderBlocks formats in-context memory blocks as an instructions section.
// Blocks arrive sorted by label, so the rendered section is deterministic.
func renderBlocks(blocks []core.MemoryBlock) string {
	if len(blocks) == 0 {
		return ""
	}

	var b strings.Builder

	b.WriteString("\n\nMemory blocks:")

	for _, block := range blocks {
		fmt.Fprintf(&b, "\n\n[%s]", block.Label)
		if block.Description != "" {
			fmt.Fprintf(&b, " %s", block.Description)
		}
		b.WriteString("\n")
		b.WriteString(block.Value)
	}

	return b.String()
}

// drainResponses consumes the model's channels until both close and returns
// the final (non-partial) response. Partial chunks are skipped; the final
// response carries the full content.
func drainResponses(runCtx *core.RunContext, respCh <-chan model.Response, errCh <-chan error) (*model.Response, error) {
	var final *model.Response

	for respCh != nil || errCh != nil {
		select {
		case resp, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}

			if resp.Partial {
				continue
			}

			final = &resp
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}

			if err != nil {
				return nil, fmt.Errorf("completion call failed: %w", err)
			}
		case <-runCtx.Done():
			return nil, runCtx.Err()
		}
	}

	if final == nil {
		return nil, fmt.Errorf("model returned no final response")
	}

	return final, nil
}
