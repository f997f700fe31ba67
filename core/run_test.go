package core

import (
	"testing"
	"time"
)

func TestRunStatus_Terminal(t *testing.T) {
	cases := []struct {
		status RunStatus
		want   bool
	}{
		{RunStatusQueued, false},
		{RunStatusRunning, false},
		{RunStatusCompleted, true},
		{RunStatusFailed, true},
		{RunStatusCancelled, true},
	}

	for _, c := range cases {
		if got := c.status.Terminal(); got != c.want {
			t.Errorf("%s.Terminal() = %v, want %v", c.status, got, c.want)
		}
	}
}

func TestRunEvent_CloneIsolation(t *testing.T) {
	ev := RunEvent{
		SeqID:     3,
		Timestamp: time.Now().UTC(),
		Type:      RunEventThought,
		Data:      map[string]any{"text": "original"},
	}

	clone := ev.Clone()
	clone.Data["text"] = "changed"

	if ev.Data["text"].(string) != "original" {
		t.Error("clone mutation leaked into original event")
	}
	if clone.SeqID != ev.SeqID || clone.Type != ev.Type {
		t.Errorf("clone lost scalar fields: %+v", clone)
	}
}

func TestRunMetadata_CloneIsolation(t *testing.T) {
	started := time.Now().UTC()
	md := RunMetadata{
		RunID:       NewRunID(),
		AgentName:   "agent1",
		Input:       "hi",
		Status:      RunStatusRunning,
		CreatedAt:   time.Now().UTC(),
		StartedAt:   &started,
		TotalEvents: 2,
		LastSeqID:   2,
		Metadata:    map[string]string{"source": "test"},
	}

	clone := md.Clone()
	clone.Metadata["source"] = "changed"
	*clone.StartedAt = clone.StartedAt.Add(time.Hour)

	if md.Metadata["source"] != "test" {
		t.Error("clone metadata mutation leaked into original")
	}
	if !md.StartedAt.Equal(started) {
		t.Error("clone timestamp mutation leaked into original")
	}
}
