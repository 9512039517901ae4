package db

import "time"

type AccessEventModel struct {
	ID            string    `gorm:"type:uuid;primaryKey"`
	EventType     string    `gorm:"index;not null"`
	CandidateHash string    `gorm:"index;not null"`
	Tier          string    `gorm:"not null"`
	Model         string
	Result        string    `gorm:"not null"`
	RemoteAddr    string
	CreatedAt     time.Time `gorm:"index;not null"`
}

func (AccessEventModel) TableName() string {
	return "access_events"
}
