package mapper

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"draco-chat-be/internal/entity"
	"draco-chat-be/pkg/workflow"
)

func TestDebugSessionFlattensAndRebuildsSnapshot(t *testing.T) {
	m := NewDebugMapper()

	fc := workflow.Step{
		ID:        "fc-1",
		Title:     "Full Code",
		Content:   "def add(a, b):\n    return a + b",
		Status:    workflow.StepCompleted,
		Timestamp: time.Date(2025, 6, 1, 10, 0, 42, 0, time.UTC),
	}
	ent := &entity.DebugSession{
		Id:        uuid.New(),
		Query:     "why does add subtract",
		ModelType: "ollama",
		ModelName: "qwen2.5-coder",
		Snapshot: workflow.Snapshot{
			Query: "why does add subtract",
			Steps: []workflow.Step{
				{ID: "s-1", Title: "Analyzing Problem", Content: "the function subtracts", Status: workflow.StepCompleted, Timestamp: time.Date(2025, 6, 1, 10, 0, 1, 0, time.UTC)},
				{ID: "s-2", Title: "Extracting Code", Content: "def add", Status: workflow.StepCompleted, Timestamp: time.Date(2025, 6, 1, 10, 0, 5, 0, time.UTC)},
			},
			FullCode: &fc,
			Run: workflow.RunStatus{
				Status:         workflow.RunCompleted,
				Progress:       100,
				ElapsedSeconds: 42,
			},
			ElapsedText: "00:42",
		},
		CreatedAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}

	mod, err := m.DebugSessionToModel(ent)
	require.NoError(t, err)

	assert.Equal(t, "completed", mod.Status)
	assert.Equal(t, 100, mod.Progress)
	assert.Equal(t, 42, mod.ElapsedSeconds)
	assert.Equal(t, "00:42", mod.ElapsedText)
	assert.NotEmpty(t, mod.Steps)
	assert.NotEmpty(t, mod.FullCode)

	back, err := m.DebugSessionToEntity(mod)
	require.NoError(t, err)

	assert.Equal(t, ent.Id, back.Id)
	assert.Equal(t, ent.Query, back.Query)
	assert.Equal(t, ent.Snapshot.Run, back.Snapshot.Run)
	assert.Equal(t, ent.Snapshot.ElapsedText, back.Snapshot.ElapsedText)
	require.Len(t, back.Snapshot.Steps, 2)
	assert.Equal(t, "Analyzing Problem", back.Snapshot.Steps[0].Title)
	require.NotNil(t, back.Snapshot.FullCode)
	assert.Equal(t, fc.Content, back.Snapshot.FullCode.Content)
}

func TestDebugSessionWithoutFullCode(t *testing.T) {
	m := NewDebugMapper()

	ent := &entity.DebugSession{
		Id:    uuid.New(),
		Query: "broken run",
		Snapshot: workflow.Snapshot{
			Query: "broken run",
			Run: workflow.RunStatus{
				Status: workflow.RunError,
				Error:  "connection to the analysis stream was lost",
			},
			ElapsedText: "00:03",
		},
	}

	mod, err := m.DebugSessionToModel(ent)
	require.NoError(t, err)
	assert.Empty(t, mod.FullCode)

	back, err := m.DebugSessionToEntity(mod)
	require.NoError(t, err)
	assert.Nil(t, back.Snapshot.FullCode)
	assert.Equal(t, workflow.RunError, back.Snapshot.Run.Status)
	assert.Equal(t, "connection to the analysis stream was lost", back.Snapshot.Run.Error)
}
