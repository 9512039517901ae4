package domain

type AccessTier string

const (
	TierStandard AccessTier = "standard"
	TierElevated AccessTier = "elevated"
	TierRejected AccessTier = "rejected"
)
