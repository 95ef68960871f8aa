package core

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/vovakirdan/lobby-server/internal/store"
)

// DefaultMaxContentLength bounds message content, in runes.
const DefaultMaxContentLength = 4000

// Pipeline validates, persists and enriches inbound chat messages, then hands
// them to the broadcaster.
type Pipeline struct {
	messages    store.MessageStore
	registry    *Registry
	broadcaster *Broadcaster
	maxLen      int
	now         func() time.Time
}

// NewPipeline creates a message pipeline.
func NewPipeline(messages store.MessageStore, registry *Registry, broadcaster *Broadcaster, maxLen int) *Pipeline {
	if maxLen <= 0 {
		maxLen = DefaultMaxContentLength
	}
	return &Pipeline{
		messages:    messages,
		registry:    registry,
		broadcaster: broadcaster,
		maxLen:      maxLen,
		now:         time.Now,
	}
}

// Accept stores a message from the connection's bound identity and broadcasts it.
func (p *Pipeline) Accept(ctx context.Context, clientID, content, imageURL string) (Message, error) {
	author, ok := p.registry.Bound(clientID)
	if !ok {
		return Message{}, ErrUnauthenticated
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return Message{}, fmt.Errorf("%w: content is required", ErrValidation)
	}
	if utf8.RuneCountInString(content) > p.maxLen {
		return Message{}, fmt.Errorf("%w: content exceeds %d characters", ErrValidation, p.maxLen)
	}

	record := &store.Message{
		UserID:    author.ID,
		Content:   content,
		CreatedAt: p.now(),
	}
	if url := strings.TrimSpace(imageURL); url != "" {
		record.ImageURL = &url
	}

	if err := p.messages.AppendMessage(ctx, record); err != nil {
		return Message{}, fmt.Errorf("%w: append message: %w", ErrPersistence, err)
	}

	msg := Message{
		ID:        record.ID,
		UserID:    author.ID,
		Username:  author.Username,
		Content:   record.Content,
		ImageURL:  record.ImageURL,
		CreatedAt: record.CreatedAt,
	}
	p.broadcaster.OnMessage(msg)
	return msg, nil
}
