package core

import (
	"context"
	"time"
)

type testLogger struct{}

func (l testLogger) Debug(string, ...interface{}) {}
func (l testLogger) Info(string, ...interface{})  {}
func (l testLogger) Warn(string, ...interface{})  {}
func (l testLogger) Error(string, ...interface{}) {}

func newRunContextForTest() (*RunContext, *[]RunEvent) {
	events := &[]RunEvent{}
	record := func(eventType RunEventType, data map[string]any) {
		*events = append(*events, RunEvent{
			SeqID:     SeqID(len(*events)),
			Timestamp: time.Now().UTC(),
			Type:      eventType,
			Data:      data,
		})
	}

	agent := AgentInfo{ID: NewAgentID(), Name: "agent1"}

	return NewRunContext(context.Background(), NewRunID(), agent, "hello", record, testLogger{}), events
}
