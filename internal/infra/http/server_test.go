package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/IA683/AstraGPT/internal/config"
	"github.com/IA683/AstraGPT/internal/domain"
	"github.com/IA683/AstraGPT/internal/usecase"
)

// Pinned digests for 2024-03-15.
const (
	standardKey = "3b52d12d9259faa95ece571bdf30a111a4e8f67dc6609c566ec6e99401ca6842"
	elevatedKey = "f3078265d1c4da577ae74d67a7a92f63a3297215e9f3151e8d0b1110a7edaab3"
)

func testClock() usecase.Clock {
	return func() time.Time {
		return time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
	}
}

type staticPolicy struct {
	err error
}

func (p *staticPolicy) Evaluate(_ context.Context, input domain.PolicyInput) (domain.PolicyEvaluation, error) {
	if p.err != nil {
		return domain.PolicyEvaluation{}, p.err
	}
	switch input.Tier {
	case domain.TierStandard:
		return domain.PolicyEvaluation{Result: domain.PolicyResult{Allow: true, Model: "gpt-3.5-turbo"}}, nil
	case domain.TierElevated:
		return domain.PolicyEvaluation{Result: domain.PolicyResult{Allow: true, Model: "gpt-4o-mini"}}, nil
	}
	return domain.PolicyEvaluation{Result: domain.PolicyResult{}}, nil
}

type memoryEventRepo struct {
	mu     sync.Mutex
	events []domain.AccessEvent
}

func (r *memoryEventRepo) Append(_ context.Context, event domain.AccessEvent) (domain.AccessEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return event, nil
}

func (r *memoryEventRepo) ListRecent(_ context.Context, limit int) ([]domain.AccessEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AccessEvent, len(r.events))
	copy(out, r.events)
	return out, nil
}

type echoCompleter struct {
	err      error
	lastSeen []domain.ChatMessage
}

func (e *echoCompleter) Complete(_ context.Context, model string, messages []domain.ChatMessage, _ func(string)) (string, error) {
	e.lastSeen = messages
	if e.err != nil {
		return "", e.err
	}
	return "echo from " + model, nil
}

type fakeLimiter struct {
	decision  domain.RateLimitDecision
	err       error
	lastKey   string
	lastLimit int
	calls     int
}

func (f *fakeLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (domain.RateLimitDecision, error) {
	f.lastKey = key
	f.lastLimit = limit
	f.calls++
	if f.err != nil {
		return domain.RateLimitDecision{}, f.err
	}
	decision := f.decision
	decision.Limit = limit
	return decision, nil
}

func newTestServer(t *testing.T, cfg config.Config, completer usecase.Completer, limiter domain.RateLimiter) (*Server, *memoryEventRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := &memoryEventRepo{}
	audit := usecase.NewAuditEmitter(repo, testClock())
	gate := &usecase.AccessGate{
		Validator: usecase.NewKeyValidator(testClock()),
		Policy:    &staticPolicy{},
		Audit:     audit,
	}
	server := NewServer(cfg, ServerDeps{
		Gate:        gate,
		Completer:   completer,
		Audit:       audit,
		Clock:       testClock(),
		RateLimiter: limiter,
	})
	return server, repo
}

func doJSON(s *Server, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	server, _ := newTestServer(t, config.Config{}, &echoCompleter{}, nil)
	w := doJSON(server, http.MethodGet, "/healthz", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestValidateEndpoint(t *testing.T) {
	server, repo := newTestServer(t, config.Config{}, &echoCompleter{}, nil)

	tests := []struct {
		name  string
		key   string
		tier  domain.AccessTier
		model string
	}{
		{"standard key", standardKey, domain.TierStandard, "gpt-3.5-turbo"},
		{"shared key", elevatedKey, domain.TierElevated, "gpt-4o-mini"},
		{"garbage", "not-a-real-key", domain.TierRejected, ""},
		{"empty", "", domain.TierRejected, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(server, http.MethodPost, "/v1/access/validate", validateRequest{Key: tc.key}, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
			}
			var resp validateResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Tier != tc.tier || resp.Model != tc.model {
				t.Fatalf("got %+v, want tier %s model %q", resp, tc.tier, tc.model)
			}
		})
	}

	events, _ := repo.ListRecent(context.Background(), 0)
	if len(events) != len(tests) {
		t.Fatalf("expected %d audit events, got %d", len(tests), len(events))
	}
}

func TestValidateRejectsMalformedBody(t *testing.T) {
	server, _ := newTestServer(t, config.Config{}, &echoCompleter{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/access/validate", bytes.NewReader([]byte("{broken")))
	w := httptest.NewRecorder()
	server.r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestKeysEndpointRequiresAdmin(t *testing.T) {
	cfg := config.Config{AdminAPIKey: "super-secret"}
	server, _ := newTestServer(t, cfg, &echoCompleter{}, nil)

	w := doJSON(server, http.MethodGet, "/v1/keys", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without header, got %d", w.Code)
	}

	w = doJSON(server, http.MethodGet, "/v1/keys", nil, map[string]string{"X-Admin-Key": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong key, got %d", w.Code)
	}

	w = doJSON(server, http.MethodGet, "/v1/keys?date=2024-03-15", nil, map[string]string{"X-Admin-Key": "super-secret"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp keysResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Digests) != 4 || resp.Digests[0] != standardKey {
		t.Fatalf("unexpected digests: %+v", resp)
	}
	if resp.Date != "2024-03-15" || resp.Mode != "normal" {
		t.Fatalf("unexpected metadata: %+v", resp)
	}
}

func TestKeysEndpointSharedAndBadInputs(t *testing.T) {
	cfg := config.Config{AdminAPIKey: "super-secret"}
	server, _ := newTestServer(t, cfg, &echoCompleter{}, nil)
	headers := map[string]string{"X-Admin-Key": "super-secret"}

	w := doJSON(server, http.MethodGet, "/v1/keys?date=2024-03-15&mode=shared", nil, headers)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp keysResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Digests) != 1 || resp.Digests[0] != elevatedKey {
		t.Fatalf("unexpected shared digests: %+v", resp)
	}

	if w := doJSON(server, http.MethodGet, "/v1/keys?mode=master", nil, headers); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad mode, got %d", w.Code)
	}
	if w := doJSON(server, http.MethodGet, "/v1/keys?date=15-03-2024", nil, headers); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d", w.Code)
	}
}

func TestKeysEndpointDisabledWithoutAdminKey(t *testing.T) {
	server, _ := newTestServer(t, config.Config{}, &echoCompleter{}, nil)
	w := doJSON(server, http.MethodGet, "/v1/keys", nil, map[string]string{"X-Admin-Key": ""})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestChatEndpoint(t *testing.T) {
	completer := &echoCompleter{}
	server, repo := newTestServer(t, config.Config{SystemPrompt: "You are Astra GPT."}, completer, nil)

	body := chatRequest{
		Key:      standardKey,
		Messages: []domain.ChatMessage{{Role: domain.RoleUser, Content: "hi"}},
	}
	w := doJSON(server, http.MethodPost, "/v1/chat/completions", body, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp chatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Model != "gpt-3.5-turbo" || resp.Message.Content != "echo from gpt-3.5-turbo" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(completer.lastSeen) != 2 || completer.lastSeen[0].Role != domain.RoleSystem {
		t.Fatalf("system prompt must be prepended: %+v", completer.lastSeen)
	}

	events, _ := repo.ListRecent(context.Background(), 0)
	var sawChat bool
	for _, event := range events {
		if event.EventType == domain.AccessEventChatRelayed && event.Result == domain.AccessResultGranted {
			sawChat = true
		}
	}
	if !sawChat {
		t.Fatalf("expected granted chat audit event")
	}
}

func TestChatEndpointRejectsBadKey(t *testing.T) {
	server, _ := newTestServer(t, config.Config{}, &echoCompleter{}, nil)
	body := chatRequest{
		Key:      "wrong",
		Messages: []domain.ChatMessage{{Role: domain.RoleUser, Content: "hi"}},
	}
	w := doJSON(server, http.MethodPost, "/v1/chat/completions", body, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestChatEndpointUpstreamFailure(t *testing.T) {
	completer := &echoCompleter{err: errors.New("boom")}
	server, _ := newTestServer(t, config.Config{}, completer, nil)
	body := chatRequest{
		Key:      standardKey,
		Messages: []domain.ChatMessage{{Role: domain.RoleUser, Content: "hi"}},
	}
	w := doJSON(server, http.MethodPost, "/v1/chat/completions", body, nil)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
}

func TestChatEndpointRequiresMessages(t *testing.T) {
	server, _ := newTestServer(t, config.Config{}, &echoCompleter{}, nil)
	w := doJSON(server, http.MethodPost, "/v1/chat/completions", chatRequest{Key: standardKey}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestRateLimitHeadersAndDenial(t *testing.T) {
	limiter := &fakeLimiter{decision: domain.RateLimitDecision{
		Allowed:   false,
		Remaining: 0,
		ResetAt:   time.Now().Add(30 * time.Second),
	}}
	cfg := config.Config{RateLimitRequests: 5, RateLimitWindowSeconds: 60}
	server, _ := newTestServer(t, cfg, &echoCompleter{}, limiter)

	w := doJSON(server, http.MethodPost, "/v1/access/validate", validateRequest{Key: "x"}, nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("RateLimit-Limit") != "5" {
		t.Fatalf("expected limit header, got %q", w.Header().Get("RateLimit-Limit"))
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}

func TestRateLimitPerRoute(t *testing.T) {
	limiter := &fakeLimiter{decision: domain.RateLimitDecision{
		Allowed: false,
		ResetAt: time.Now().Add(30 * time.Second),
	}}
	cfg := config.Config{RateLimitRequests: 2, RateLimitChatRequests: 0}
	server, _ := newTestServer(t, cfg, &echoCompleter{}, limiter)

	w := doJSON(server, http.MethodPost, "/v1/access/validate", validateRequest{Key: "x"}, nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("validate: expected 429, got %d", w.Code)
	}
	if limiter.lastLimit != 2 {
		t.Fatalf("validate must use its own budget, limiter saw %d", limiter.lastLimit)
	}
	if !strings.Contains(limiter.lastKey, routeValidate) {
		t.Fatalf("limiter key must carry the route, got %q", limiter.lastKey)
	}

	// chat has a zero budget, so the limiter is never consulted there
	calls := limiter.calls
	body := chatRequest{
		Key:      standardKey,
		Messages: []domain.ChatMessage{{Role: domain.RoleUser, Content: "hi"}},
	}
	if w := doJSON(server, http.MethodPost, "/v1/chat/completions", body, nil); w.Code != http.StatusOK {
		t.Fatalf("chat: expected 200, got %d", w.Code)
	}
	if limiter.calls != calls {
		t.Fatalf("chat must bypass the limiter when its budget is zero")
	}

	cfg = config.Config{RateLimitRequests: 2, RateLimitChatRequests: 7}
	limiter.decision.Allowed = true
	server, _ = newTestServer(t, cfg, &echoCompleter{}, limiter)
	if w := doJSON(server, http.MethodPost, "/v1/chat/completions", body, nil); w.Code != http.StatusOK {
		t.Fatalf("chat: expected 200, got %d", w.Code)
	}
	if limiter.lastLimit != 7 || !strings.Contains(limiter.lastKey, routeChat) {
		t.Fatalf("chat must use its own budget, limiter saw %d on %q", limiter.lastLimit, limiter.lastKey)
	}
}

func TestRateLimitFailOpenAndClosed(t *testing.T) {
	limiter := &fakeLimiter{err: errors.New("redis down")}

	cfg := config.Config{RateLimitRequests: 5}
	server, _ := newTestServer(t, cfg, &echoCompleter{}, limiter)
	if w := doJSON(server, http.MethodPost, "/v1/access/validate", validateRequest{Key: "x"}, nil); w.Code != http.StatusOK {
		t.Fatalf("fail-open: expected 200, got %d", w.Code)
	}

	cfg.RateLimitFailClosed = true
	server, _ = newTestServer(t, cfg, &echoCompleter{}, limiter)
	if w := doJSON(server, http.MethodPost, "/v1/access/validate", validateRequest{Key: "x"}, nil); w.Code != http.StatusTooManyRequests {
		t.Fatalf("fail-closed: expected 429, got %d", w.Code)
	}
}
