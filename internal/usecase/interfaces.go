package usecase

import (
	"context"
	"time"

	"github.com/IA683/AstraGPT/internal/domain"
)

type Clock func() time.Time

type AccessEventRepository interface {
	Append(ctx context.Context, event domain.AccessEvent) (domain.AccessEvent, error)
	ListRecent(ctx context.Context, limit int) ([]domain.AccessEvent, error)
}

type PolicyEngine interface {
	Evaluate(ctx context.Context, input domain.PolicyInput) (domain.PolicyEvaluation, error)
}

// Completer relays an ordered message history to a chat completion backend.
// When onDelta is non-nil the reply is streamed through it chunk by chunk;
// the full reply is returned either way.
type Completer interface {
	Complete(ctx context.Context, model string, messages []domain.ChatMessage, onDelta func(string)) (string, error)
}
