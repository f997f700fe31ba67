package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/logging"
)

// recordedEvent captures one Record* call made through a RunContext.
type recordedEvent struct {
	Type core.RunEventType
	Data map[string]any
}

// newTestRunContext builds a RunContext whose recorded events land in the
// returned slice pointer.
func newTestRunContext(input string) (*core.RunContext, *[]recordedEvent) {
	events := &[]recordedEvent{}

	record := func(eventType core.RunEventType, data map[string]any) {
		*events = append(*events, recordedEvent{Type: eventType, Data: data})
	}

	runCtx := core.NewRunContext(
		context.Background(),
		core.NewRunID(),
		core.AgentInfo{ID: core.NewAgentID(), Name: "test"},
		input,
		record,
		logging.NoOpLogger{},
	)

	return runCtx, events
}

func TestNewBase(t *testing.T) {
	base := NewBase("researcher")

	assert.NotEmpty(t, base.ID())
	assert.Equal(t, "researcher", base.Name())
	assert.Equal(t, "Agent researcher", base.Description())
}

func TestBase_SetDescription(t *testing.T) {
	base := NewBase("researcher")
	base.SetDescription("Finds and summarizes sources")

	assert.Equal(t, "Finds and summarizes sources", base.Description())
}

func TestBase_UniqueIDs(t *testing.T) {
	first := NewBase("a")
	second := NewBase("a")

	assert.NotEqual(t, first.ID(), second.ID())
}
