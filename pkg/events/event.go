package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "DEBUG_RUN_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

const (
	TypeDebugRunCompleted  = "DEBUG_RUN_COMPLETED"
	TypeDebugRunFailed     = "DEBUG_RUN_FAILED"
	TypeChatMessageCreated = "CHAT_MESSAGE_CREATED"
)

// BaseEvent is the common concrete implementation.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewDebugRunCompleted fires when a debugging workflow run reaches the done
// frame and its snapshot is persisted.
func NewDebugRunCompleted(sessionID, query string, stepCount, elapsedSeconds int) Event {
	return BaseEvent{
		Type: TypeDebugRunCompleted,
		Data: map[string]interface{}{
			"session_id":      sessionID,
			"query":           query,
			"step_count":      stepCount,
			"elapsed_seconds": elapsedSeconds,
		},
		OccurredAt: time.Now(),
	}
}

// NewDebugRunFailed fires when a run ends in an error state.
func NewDebugRunFailed(sessionID, query, errMessage string) Event {
	return BaseEvent{
		Type: TypeDebugRunFailed,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"query":      query,
			"error":      errMessage,
		},
		OccurredAt: time.Now(),
	}
}

// NewChatMessageCreated fires when a chat exchange is stored.
func NewChatMessageCreated(sessionID, role string) Event {
	return BaseEvent{
		Type: TypeChatMessageCreated,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"role":       role,
		},
		OccurredAt: time.Now(),
	}
}
