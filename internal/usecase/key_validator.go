package usecase

import (
	"crypto/subtle"
	"time"

	"github.com/IA683/AstraGPT/internal/domain"
)

// KeyValidator classifies a candidate key against the digests derived for
// the current date. The clock is read on every call, so acceptance flips
// exactly at local midnight.
type KeyValidator struct {
	Deriver KeyDeriver
	Clock   Clock
}

func NewKeyValidator(clock Clock) *KeyValidator {
	return &KeyValidator{Clock: clock}
}

func (v *KeyValidator) Validate(candidate string) domain.AccessTier {
	date := domain.DateOf(v.now())

	normal, err := v.Deriver.Derive(date, domain.KeyModeNormal)
	if err != nil {
		return domain.TierRejected
	}
	for _, digest := range normal.Digests {
		if constantTimeEqual(candidate, digest) {
			return domain.TierStandard
		}
	}

	shared, err := v.Deriver.Derive(date, domain.KeyModeShared)
	if err != nil {
		return domain.TierRejected
	}
	if constantTimeEqual(candidate, shared.Digests[0]) {
		return domain.TierElevated
	}
	return domain.TierRejected
}

func (v *KeyValidator) now() time.Time {
	if v.Clock != nil {
		return v.Clock()
	}
	return time.Now()
}

func constantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
