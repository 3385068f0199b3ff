package eventstream_test

import (
	"encoding/json"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/agentbase/pkg/eventstream"
	"github.com/papercomputeco/agentbase/pkg/llm"
)

var _ = Describe("Event", func() {
	It("marshals TurnPersistedEvent with expected top-level keys", func() {
		now := time.Unix(1735689600, 0).UTC()
		event := eventstream.TurnPersistedEvent{
			SchemaVersion: eventstream.SchemaVersionV1,
			EventType:     eventstream.EventTypeTurnPersisted,
			EventID:       "evt_123",
			EmittedAt:     now,
			Source: eventstream.EventSource{
				UserID:   "user-1",
				Provider: "openrouter",
			},
			Conversation: eventstream.ConversationMeta{
				ID:             "conv-1",
				MessageID:      "msg-2",
				MessageCount:   2,
				TitleGenerated: true,
				Title:          "Trip to Lisbon",
			},
			Turn: eventstream.TurnMeta{
				Model:      "claude-haiku-4-5",
				Usage:      &llm.Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
				StartedAt:  now.Add(-2 * time.Second),
				DurationMs: 2000,
			},
		}

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("source"))
		Expect(got).To(HaveKey("conversation"))
		Expect(got).To(HaveKey("turn"))
		Expect(got["conversation"]).To(HaveKeyWithValue("title_generated", true))
	})

	It("stamps new events", func() {
		event := eventstream.NewTurnPersistedEvent(
			eventstream.EventSource{UserID: "user-1", Provider: "anthropic"},
			eventstream.ConversationMeta{ID: "conv-1"},
			eventstream.TurnMeta{Model: "claude-sonnet-4"},
		)

		Expect(event.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(event.EventType).To(Equal(eventstream.EventTypeTurnPersisted))
		Expect(strings.HasPrefix(event.EventID, "evt_")).To(BeTrue())
		Expect(event.EmittedAt).To(BeTemporally("~", time.Now(), time.Second))
		Expect(event.Conversation.ID).To(Equal("conv-1"))
	})

	It("defines stable event constants", func() {
		Expect(eventstream.SchemaVersionV1).To(BeNumerically(">", 0))
		Expect(eventstream.EventTypeTurnPersisted).To(Equal("agentbase.turn.persisted"))
	})

	It("provides ErrNilTurnEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilTurnEvent).NotTo(BeNil())
		Expect(eventstream.ErrNilTurnEvent).To(MatchError("nil turn event"))
	})
})
