package policy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/rego"

	"github.com/IA683/AstraGPT/internal/domain"
)

const resultQuery = "data.astragate.access.result"

// defaultModule carries the built-in tier-to-model mapping. Operators can
// replace it with their own rego file via ASTRA_POLICY_PATH.
const defaultModule = `package astragate.access

default result = {"allow": false, "model": ""}

result = {"allow": true, "model": "gpt-3.5-turbo"} {
	input.tier == "standard"
}

result = {"allow": true, "model": "gpt-4o-mini"} {
	input.tier == "elevated"
}
`

type Engine struct {
	query      rego.PreparedEvalQuery
	bundleHash string
}

func NewEngine(ctx context.Context) (*Engine, error) {
	return prepare(ctx, rego.Module("astragate.rego", defaultModule), sha256Hex([]byte(defaultModule)))
}

func NewEngineFromPath(ctx context.Context, path string) (*Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}
	return prepare(ctx, rego.Load([]string{path}, nil), sha256Hex(data))
}

func prepare(ctx context.Context, source func(*rego.Rego), bundleHash string) (*Engine, error) {
	r := rego.New(
		rego.Query(resultQuery),
		rego.StrictBuiltinErrors(true),
		source,
	)
	prepared, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare policy: %w", err)
	}
	return &Engine{query: prepared, bundleHash: bundleHash}, nil
}

func (e *Engine) BundleHash() string {
	return e.bundleHash
}

func (e *Engine) Evaluate(ctx context.Context, input domain.PolicyInput) (domain.PolicyEvaluation, error) {
	if e == nil {
		return domain.PolicyEvaluation{}, errors.New("policy engine is nil")
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return domain.PolicyEvaluation{}, err
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return domain.PolicyEvaluation{}, errors.New("empty policy result")
	}
	result, err := decodeResult(results[0].Expressions[0].Value)
	if err != nil {
		return domain.PolicyEvaluation{}, err
	}
	return domain.PolicyEvaluation{BundleHash: e.bundleHash, Result: result}, nil
}

func decodeResult(value any) (domain.PolicyResult, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return domain.PolicyResult{}, err
	}
	var result domain.PolicyResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return domain.PolicyResult{}, err
	}
	return result, nil
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
