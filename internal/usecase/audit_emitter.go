package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/IA683/AstraGPT/internal/domain"
)

type AuditEmitter struct {
	Repo  AccessEventRepository
	Clock Clock
}

func NewAuditEmitter(repo AccessEventRepository, clock Clock) *AuditEmitter {
	return &AuditEmitter{Repo: repo, Clock: clock}
}

func (e *AuditEmitter) Emit(ctx context.Context, event domain.AccessEvent) (domain.AccessEvent, error) {
	if e == nil || e.Repo == nil {
		return domain.AccessEvent{}, errors.New("audit repository required")
	}
	if event.EventType == "" || event.Result == "" {
		return domain.AccessEvent{}, errors.New("audit event missing required fields")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = e.now().UTC()
	} else {
		event.CreatedAt = event.CreatedAt.UTC()
	}
	return e.Repo.Append(ctx, event)
}

// EmitAccessValidated records a validation attempt. Only a hash of the
// candidate is stored, never the candidate itself.
func (e *AuditEmitter) EmitAccessValidated(ctx context.Context, candidate string, tier domain.AccessTier, model, remoteAddr string) error {
	result := domain.AccessResultGranted
	if tier == domain.TierRejected {
		result = domain.AccessResultDenied
	}
	_, err := e.Emit(ctx, domain.AccessEvent{
		EventType:     domain.AccessEventValidated,
		CandidateHash: sha256Hex(candidate),
		Tier:          tier,
		Model:         model,
		Result:        result,
		RemoteAddr:    remoteAddr,
	})
	return err
}

func (e *AuditEmitter) EmitChatRelayed(ctx context.Context, candidate string, tier domain.AccessTier, model, remoteAddr string, relayErr error) error {
	result := domain.AccessResultGranted
	if relayErr != nil {
		result = domain.AccessResultDenied
	}
	_, err := e.Emit(ctx, domain.AccessEvent{
		EventType:     domain.AccessEventChatRelayed,
		CandidateHash: sha256Hex(candidate),
		Tier:          tier,
		Model:         model,
		Result:        result,
		RemoteAddr:    remoteAddr,
	})
	return err
}

func (e *AuditEmitter) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now()
}
