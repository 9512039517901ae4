package domain

type PolicyInput struct {
	Tier AccessTier `json:"tier"`
}

type PolicyResult struct {
	Allow bool   `json:"allow"`
	Model string `json:"model"`
}

type PolicyEvaluation struct {
	BundleHash string       `json:"bundle_hash"`
	Result     PolicyResult `json:"result"`
}
