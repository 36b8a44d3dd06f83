package history

import (
	"context"
	"log/slog"

	"github.com/cloudwego/eino/schema"
)

// Loader replays stored turns as chat messages. A broken or missing history
// must never block a conversation, so Load degrades to an empty slice on any
// failure instead of returning an error.
type Loader struct {
	store *Store
}

// NewLoader returns a Loader over the given store. A nil store yields an
// always-empty loader.
func NewLoader(store *Store) *Loader {
	return &Loader{store: store}
}

// Load returns up to maxTurns recent exchanges, oldest first, as alternating
// user/assistant messages. It never fails: errors are logged and an empty
// slice is returned.
func (l *Loader) Load(ctx context.Context, maxTurns int) []*schema.Message {
	if l == nil || l.store == nil {
		return []*schema.Message{}
	}
	turns, err := l.store.Recent(ctx, maxTurns)
	if err != nil {
		slog.Warn("history unavailable, starting without context", "error", err)
		return []*schema.Message{}
	}
	messages := make([]*schema.Message, 0, len(turns)*2)
	for _, t := range turns {
		messages = append(messages,
			schema.UserMessage(t.UserText),
			schema.AssistantMessage(t.Assistant, nil),
		)
	}
	return messages
}
