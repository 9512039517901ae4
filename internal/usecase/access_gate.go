package usecase

import (
	"context"
	"log"

	"github.com/IA683/AstraGPT/internal/domain"
)

// AccessGate ties validation to model selection: the validator yields a
// tier, the policy engine maps the tier to a completion model. Audit is
// best effort and never blocks the decision.
type AccessGate struct {
	Validator *KeyValidator
	Policy    PolicyEngine
	Audit     *AuditEmitter
}

type AccessDecision struct {
	Tier  domain.AccessTier
	Model string
}

func (g *AccessGate) Authorize(ctx context.Context, candidate, remoteAddr string) (AccessDecision, error) {
	tier := g.Validator.Validate(candidate)
	decision := AccessDecision{Tier: tier}

	if tier != domain.TierRejected && g.Policy != nil {
		eval, err := g.Policy.Evaluate(ctx, domain.PolicyInput{Tier: tier})
		if err != nil {
			return AccessDecision{}, err
		}
		if eval.Result.Allow {
			decision.Model = eval.Result.Model
		}
	}

	if g.Audit != nil {
		if err := g.Audit.EmitAccessValidated(ctx, candidate, decision.Tier, decision.Model, remoteAddr); err != nil {
			log.Printf("audit access event failed: %v", err)
		}
	}
	return decision, nil
}
