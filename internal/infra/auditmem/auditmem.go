// Package auditmem keeps access events in memory for no-db deployments.
package auditmem

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/IA683/AstraGPT/internal/domain"
)

type Repository struct {
	mu     sync.Mutex
	events []domain.AccessEvent
	max    int
}

func New(maxEvents int) *Repository {
	if maxEvents <= 0 {
		maxEvents = 10000
	}
	return &Repository{max: maxEvents}
}

func (r *Repository) Append(_ context.Context, event domain.AccessEvent) (domain.AccessEvent, error) {
	if event.EventType == "" {
		return domain.AccessEvent{}, errors.New("event_type is required")
	}
	if event.ID == "" {
		id, err := newUUID()
		if err != nil {
			return domain.AccessEvent{}, err
		}
		event.ID = id
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	if len(r.events) > r.max {
		r.events = r.events[len(r.events)-r.max:]
	}
	return event, nil
}

func (r *Repository) ListRecent(_ context.Context, limit int) ([]domain.AccessEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 || limit > len(r.events) {
		limit = len(r.events)
	}
	out := make([]domain.AccessEvent, 0, limit)
	for i := len(r.events) - 1; i >= len(r.events)-limit; i-- {
		out = append(out, r.events[i])
	}
	return out, nil
}

func newUUID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	bytes[6] = (bytes[6] & 0x0f) | 0x40
	bytes[8] = (bytes[8] & 0x3f) | 0x80
	hexStr := hex.EncodeToString(bytes)
	return hexStr[0:8] + "-" + hexStr[8:12] + "-" + hexStr[12:16] + "-" + hexStr[16:20] + "-" + hexStr[20:32], nil
}
