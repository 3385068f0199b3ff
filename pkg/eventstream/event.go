package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/agentbase/pkg/llm"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTurnPersisted is emitted after an assistant turn is persisted.
	EventTypeTurnPersisted = "agentbase.turn.persisted"
)

// TurnPersistedEvent is a transport-neutral event payload for a persisted
// assistant turn.
type TurnPersistedEvent struct {
	SchemaVersion int              `json:"schema_version"`
	EventType     string           `json:"event_type"`
	EventID       string           `json:"event_id"`
	EmittedAt     time.Time        `json:"emitted_at"`
	Source        EventSource      `json:"source"`
	Conversation  ConversationMeta `json:"conversation"`
	Turn          TurnMeta         `json:"turn"`
}

// EventSource identifies who produced the turn and which upstream served it.
type EventSource struct {
	UserID   string `json:"user_id"`
	Provider string `json:"provider"`
}

// ConversationMeta describes the conversation the turn was stored in.
type ConversationMeta struct {
	ID             string `json:"id"`
	MessageID      string `json:"message_id"`
	MessageCount   int    `json:"message_count"`
	TitleGenerated bool   `json:"title_generated"`
	Title          string `json:"title,omitempty"`
}

// TurnMeta captures the model output and its cost.
type TurnMeta struct {
	Model      string     `json:"model"`
	Usage      *llm.Usage `json:"usage,omitempty"`
	CostUSD    float64    `json:"cost_usd"`
	StartedAt  time.Time  `json:"started_at"`
	DurationMs int64      `json:"duration_ms"`
}

// NewTurnPersistedEvent stamps a v1 event with a fresh id and emit time.
func NewTurnPersistedEvent(source EventSource, conv ConversationMeta, turn TurnMeta) *TurnPersistedEvent {
	return &TurnPersistedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeTurnPersisted,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		Conversation:  conv,
		Turn:          turn,
	}
}
