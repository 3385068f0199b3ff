package llm

import "strings"

// Completion accumulates the chunks of one streamed assistant turn.
type Completion struct {
	Model      string
	StopReason string
	Usage      Usage

	// Err is the last error reported inside the stream.
	Err string

	text      strings.Builder
	reasoning strings.Builder
}

// Add folds a chunk into the completion.
func (c *Completion) Add(chunk *StreamChunk) {
	if chunk == nil {
		return
	}
	if chunk.Model != "" {
		c.Model = chunk.Model
	}
	c.text.WriteString(chunk.Text)
	c.reasoning.WriteString(chunk.Reasoning)
	if chunk.StopReason != "" {
		c.StopReason = chunk.StopReason
	}
	if chunk.Error != "" {
		c.Err = chunk.Error
	}
	c.Usage.Merge(chunk.Usage)
}

// Text returns the accumulated answer text.
func (c *Completion) Text() string {
	return c.text.String()
}

// Reasoning returns the accumulated reasoning text.
func (c *Completion) Reasoning() string {
	return c.reasoning.String()
}
