package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/agentbase/pkg/eventstream"
	"github.com/papercomputeco/agentbase/pkg/eventstream/kafka"
)

type recordingWriter struct {
	mu       sync.Mutex
	messages []kafkago.Message
	deadline bool
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafkago.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, w.deadline = ctx.Deadline()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

var _ = Describe("Publisher", func() {
	var (
		writer    *recordingWriter
		publisher *kafka.Publisher
	)

	BeforeEach(func() {
		writer = &recordingWriter{}
		publisher = kafka.NewPublisherWithWriter(writer, time.Second)
	})

	It("requires brokers and a topic", func() {
		_, err := kafka.NewPublisher(kafka.Config{Topic: "t"})
		Expect(err).To(HaveOccurred())
		_, err = kafka.NewPublisher(kafka.Config{Brokers: []string{"localhost:9092"}})
		Expect(err).To(HaveOccurred())
	})

	It("creates a publisher without dialing", func() {
		p, err := kafka.NewPublisher(kafka.Config{Brokers: []string{"localhost:9092"}, Topic: "agentbase.turns"})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Close()).To(Succeed())
	})

	It("returns ErrNilTurnEvent for nil events", func() {
		err := publisher.PublishTurn(context.Background(), nil)
		Expect(err).To(MatchError(eventstream.ErrNilTurnEvent))
	})

	It("writes the event keyed by conversation id", func() {
		event := eventstream.NewTurnPersistedEvent(
			eventstream.EventSource{UserID: "user-1", Provider: "openrouter"},
			eventstream.ConversationMeta{ID: "conv-1", MessageCount: 2},
			eventstream.TurnMeta{Model: "gpt-4o"},
		)

		Expect(publisher.PublishTurn(context.Background(), event)).To(Succeed())
		Expect(writer.messages).To(HaveLen(1))
		Expect(writer.deadline).To(BeTrue())

		msg := writer.messages[0]
		Expect(string(msg.Key)).To(Equal("conv-1"))
		Expect(msg.Headers).To(ContainElement(kafkago.Header{Key: "event_type", Value: []byte(eventstream.EventTypeTurnPersisted)}))

		var decoded eventstream.TurnPersistedEvent
		Expect(json.Unmarshal(msg.Value, &decoded)).To(Succeed())
		Expect(decoded.EventID).To(Equal(event.EventID))
		Expect(decoded.Conversation.MessageCount).To(Equal(2))
	})

	It("wraps writer errors", func() {
		writer.err = errors.New("broker down")
		err := publisher.PublishTurn(context.Background(), &eventstream.TurnPersistedEvent{})
		Expect(err).To(MatchError(ContainSubstring("broker down")))
	})

	It("closes the writer", func() {
		Expect(publisher.Close()).To(Succeed())
		Expect(writer.closed).To(BeTrue())
	})
})
