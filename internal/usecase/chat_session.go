package usecase

import (
	"context"
	"errors"

	"github.com/IA683/AstraGPT/internal/domain"
)

// ChatSession keeps the ordered message history for one conversation:
// the system prompt first, then alternating user and assistant turns.
type ChatSession struct {
	Completer Completer
	Model     string

	history []domain.ChatMessage
}

func NewChatSession(completer Completer, model, systemPrompt string) *ChatSession {
	s := &ChatSession{Completer: completer, Model: model}
	if systemPrompt != "" {
		s.history = append(s.history, domain.ChatMessage{Role: domain.RoleSystem, Content: systemPrompt})
	}
	return s
}

// Send appends the user turn, relays the full history, and appends the
// assistant reply. On relay failure the user turn stays in the history so
// a retry resends it.
func (s *ChatSession) Send(ctx context.Context, input string, onDelta func(string)) (string, error) {
	if s.Completer == nil {
		return "", errors.New("chat session requires a completer")
	}
	s.history = append(s.history, domain.ChatMessage{Role: domain.RoleUser, Content: input})

	reply, err := s.Completer.Complete(ctx, s.Model, s.History(), onDelta)
	if err != nil {
		return "", err
	}
	s.history = append(s.history, domain.ChatMessage{Role: domain.RoleAssistant, Content: reply})
	return reply, nil
}

func (s *ChatSession) History() []domain.ChatMessage {
	out := make([]domain.ChatMessage, len(s.history))
	copy(out, s.history)
	return out
}
