package domain

import "time"

type AccessEventType string

const (
	AccessEventValidated   AccessEventType = "access.validated"
	AccessEventChatRelayed AccessEventType = "chat.relayed"
)

type AccessResult string

const (
	AccessResultGranted AccessResult = "granted"
	AccessResultDenied  AccessResult = "denied"
)

type AccessEvent struct {
	ID            string
	EventType     AccessEventType
	CandidateHash string
	Tier          AccessTier
	Model         string
	Result        AccessResult
	RemoteAddr    string
	CreatedAt     time.Time
}
