package db

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/IA683/AstraGPT/internal/domain"
)

var errDBUnavailable = errors.New("database unavailable")

type AccessEventRepository struct {
	db *gorm.DB
}

func NewAccessEventRepository(db *gorm.DB) *AccessEventRepository {
	return &AccessEventRepository{db: db}
}

func (r *AccessEventRepository) Append(ctx context.Context, event domain.AccessEvent) (domain.AccessEvent, error) {
	if r.db == nil {
		return domain.AccessEvent{}, errDBUnavailable
	}
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
	} else {
		event.CreatedAt = event.CreatedAt.UTC()
	}
	event.CreatedAt = event.CreatedAt.Truncate(time.Microsecond)

	model := toModel(event)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.AccessEvent{}, err
	}
	return fromModel(model), nil
}

func (r *AccessEventRepository) ListRecent(ctx context.Context, limit int) ([]domain.AccessEvent, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	if limit <= 0 {
		limit = 100
	}
	var models []AccessEventModel
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	events := make([]domain.AccessEvent, 0, len(models))
	for _, model := range models {
		events = append(events, fromModel(model))
	}
	return events, nil
}

func toModel(event domain.AccessEvent) AccessEventModel {
	return AccessEventModel{
		ID:            event.ID,
		EventType:     string(event.EventType),
		CandidateHash: event.CandidateHash,
		Tier:          string(event.Tier),
		Model:         event.Model,
		Result:        string(event.Result),
		RemoteAddr:    event.RemoteAddr,
		CreatedAt:     event.CreatedAt,
	}
}

func fromModel(model AccessEventModel) domain.AccessEvent {
	return domain.AccessEvent{
		ID:            model.ID,
		EventType:     domain.AccessEventType(model.EventType),
		CandidateHash: model.CandidateHash,
		Tier:          domain.AccessTier(model.Tier),
		Model:         model.Model,
		Result:        domain.AccessResult(model.Result),
		RemoteAddr:    model.RemoteAddr,
		CreatedAt:     model.CreatedAt,
	}
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
