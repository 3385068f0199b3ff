// Package worker provides an asynchronous worker pool that finishes chat turns
// after their stream has been delivered: it persists the assistant message,
// titles new conversations and publishes turn events.
//
// The pool decouples this work from the chat HTTP hot path so the client sees
// the end of the stream as soon as the upstream finishes.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/agentbase/pkg/catalog"
	"github.com/papercomputeco/agentbase/pkg/eventstream"
	"github.com/papercomputeco/agentbase/pkg/llm"
	"github.com/papercomputeco/agentbase/pkg/logger"
	"github.com/papercomputeco/agentbase/pkg/storage"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
	defaultJobTimeout        = 2 * time.Minute
)

// titleExchangeSize is the message count right after the first
// user/assistant exchange, the point at which a conversation gets its title.
const titleExchangeSize = 2

// Job is a completed assistant turn waiting to be persisted.
type Job struct {
	ConversationID string
	UserID         string

	// Model is the catalog id of the model that produced the turn.
	Model string

	// Provider is the upstream route that served the turn.
	Provider string

	Text       string
	Reasoning  string
	StopReason string
	Usage      llm.Usage

	// FirstUserMessage is the text of the first user message in the request,
	// used as input for title generation.
	FirstUserMessage string

	StartedAt time.Time
}

// Titler generates a short conversation title from the first user message.
type Titler interface {
	GenerateTitle(ctx context.Context, modelID, firstUserMessage string) (string, error)
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Driver is the storage backend for persisting messages.
	Driver storage.Driver

	// Titler generates conversation titles. Titles are skipped when nil.
	Titler Titler

	// Publisher receives a turn event after each persisted turn. Optional.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// JobTimeout bounds the work done for a single job (defaults to 2m).
	JobTimeout time.Duration

	// Logger is the provided slog logger
	Logger *slog.Logger
}

// Pool processes completed turns asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	// mu guards closed and sends on queue.
	mu     sync.RWMutex
	closed bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Driver == nil {
		return nil, fmt.Errorf("worker pool requires a storage driver")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.JobTimeout <= 0 {
		c.JobTimeout = defaultJobTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger.With("component", "worker"),
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full or the pool is closed,
// resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Error("job not queued, pool closed, job dropped",
			"conversation_id", job.ConversationID,
			"model", job.Model,
		)
		return false
	}

	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			"conversation_id", job.ConversationID,
			"model", job.Model,
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			"conversation_id", job.ConversationID,
			"model", job.Model,
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the HTTP server has stopped.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("worker stopped", "worker_id", id)
}

// processJob persists the assistant turn, titles the conversation after its
// first exchange and publishes the turn event. Failures are logged only.
func (p *Pool) processJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.JobTimeout)
	defer cancel()

	log := p.logger.With("conversation_id", job.ConversationID, "model", job.Model)

	msg, err := p.config.Driver.CreateMessage(ctx, &storage.Message{
		ConversationID: job.ConversationID,
		UserID:         job.UserID,
		Role:           storage.RoleAssistant,
		Content:        job.Text,
		ModelUsed:      job.Model,
		TokensInput:    job.Usage.PromptTokens,
		TokensOutput:   job.Usage.CompletionTokens,
	})
	if err != nil {
		log.Error("failed to persist assistant message", "error", err)
		return
	}

	log.Info("assistant turn stored",
		"message_id", msg.ID,
		"tokens_input", job.Usage.PromptTokens,
		"tokens_output", job.Usage.CompletionTokens,
	)

	count, err := p.config.Driver.CountMessages(ctx, job.ConversationID)
	if err != nil {
		log.Error("failed to count messages", "error", err)
	}

	title := ""
	if count == titleExchangeSize {
		title = p.storeTitle(ctx, log, job)
	}

	p.publish(ctx, log, job, msg, count, title)
}

// storeTitle generates and saves the conversation title, returning it, or ""
// when no title was stored.
func (p *Pool) storeTitle(ctx context.Context, log *slog.Logger, job Job) string {
	if p.config.Titler == nil || job.FirstUserMessage == "" {
		return ""
	}

	title, err := p.config.Titler.GenerateTitle(ctx, job.Model, job.FirstUserMessage)
	if err != nil {
		log.Error("failed to generate title", "error", err)
		return ""
	}
	if title == "" {
		log.Warn("title generation returned no text")
		return ""
	}

	if _, err := p.config.Driver.UpdateConversation(ctx, job.ConversationID, storage.ConversationPatch{Title: &title}); err != nil {
		log.Error("failed to store title", "error", err)
		return ""
	}

	log.Debug("conversation titled", "title", title)
	return title
}

func (p *Pool) publish(ctx context.Context, log *slog.Logger, job Job, msg *storage.Message, count int, title string) {
	if p.config.Publisher == nil {
		return
	}

	turn := eventstream.TurnMeta{
		Model:     job.Model,
		StartedAt: job.StartedAt.UTC(),
	}
	if !job.StartedAt.IsZero() {
		turn.DurationMs = time.Since(job.StartedAt).Milliseconds()
	}
	if job.Usage != (llm.Usage{}) {
		usage := job.Usage
		turn.Usage = &usage
	}
	if model, ok := catalog.ByID(job.Model); ok {
		_, _, turn.CostUSD = catalog.Cost(model, int64(job.Usage.PromptTokens), int64(job.Usage.CompletionTokens))
	}

	event := eventstream.NewTurnPersistedEvent(
		eventstream.EventSource{UserID: job.UserID, Provider: job.Provider},
		eventstream.ConversationMeta{
			ID:             job.ConversationID,
			MessageID:      msg.ID,
			MessageCount:   count,
			TitleGenerated: title != "",
			Title:          title,
		},
		turn,
	)

	if err := p.config.Publisher.PublishTurn(ctx, event); err != nil {
		log.Warn("failed to publish turn event", "error", err)
	}
}
