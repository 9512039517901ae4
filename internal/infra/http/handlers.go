package http

import (
	"crypto/subtle"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/IA683/AstraGPT/internal/domain"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Code: code, Message: message})
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type validateRequest struct {
	Key string `json:"key"`
}

type validateResponse struct {
	Tier  domain.AccessTier `json:"tier"`
	Model string            `json:"model,omitempty"`
}

func (s *Server) handleValidate(c *gin.Context) {
	if !s.enforceRateLimit(c, routeValidate) {
		return
	}
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "body must be JSON with a key field")
		return
	}
	decision, err := s.gate.Authorize(c.Request.Context(), req.Key, c.ClientIP())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "POLICY_UNAVAILABLE", "policy evaluation failed")
		return
	}
	c.JSON(http.StatusOK, validateResponse{Tier: decision.Tier, Model: decision.Model})
}

type keysResponse struct {
	Date    string   `json:"date"`
	Mode    string   `json:"mode"`
	Digests []string `json:"digests"`
}

func (s *Server) handleKeys(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}

	date := domain.DateOf(s.now())
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(c, http.StatusBadRequest, "INVALID_DATE", "date must be YYYY-MM-DD")
			return
		}
		date = domain.DateOf(parsed)
	}

	mode := domain.KeyModeNormal
	if raw := c.Query("mode"); raw != "" {
		mode = domain.KeyMode(raw)
	}

	set, err := s.deriver.Derive(date, mode)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidMode) {
			writeError(c, http.StatusBadRequest, "INVALID_MODE", "mode must be normal or shared")
			return
		}
		writeError(c, http.StatusInternalServerError, "DERIVE_FAILED", "key derivation failed")
		return
	}
	c.JSON(http.StatusOK, keysResponse{
		Date:    set.Date.String(),
		Mode:    string(set.Mode),
		Digests: set.Digests,
	})
}

type chatRequest struct {
	Key      string               `json:"key"`
	Messages []domain.ChatMessage `json:"messages"`
}

type chatResponse struct {
	Model   string             `json:"model"`
	Message domain.ChatMessage `json:"message"`
}

func (s *Server) handleChat(c *gin.Context) {
	if !s.enforceRateLimit(c, routeChat) {
		return
	}
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "body must be JSON with key and messages")
		return
	}
	if len(req.Messages) == 0 {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "messages must not be empty")
		return
	}

	decision, err := s.gate.Authorize(c.Request.Context(), req.Key, c.ClientIP())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "POLICY_UNAVAILABLE", "policy evaluation failed")
		return
	}
	if decision.Tier == domain.TierRejected || decision.Model == "" {
		writeError(c, http.StatusUnauthorized, "KEY_REJECTED", "incorrect key")
		return
	}

	messages := req.Messages
	if s.systemPrompt != "" && messages[0].Role != domain.RoleSystem {
		messages = append([]domain.ChatMessage{{Role: domain.RoleSystem, Content: s.systemPrompt}}, messages...)
	}

	reply, relayErr := s.completer.Complete(c.Request.Context(), decision.Model, messages, nil)
	if s.audit != nil {
		if err := s.audit.EmitChatRelayed(c.Request.Context(), req.Key, decision.Tier, decision.Model, c.ClientIP(), relayErr); err != nil {
			log.Printf("audit chat event failed: %v", err)
		}
	}
	if relayErr != nil {
		writeError(c, http.StatusBadGateway, "UPSTREAM_FAILED", "completion request failed")
		return
	}
	c.JSON(http.StatusOK, chatResponse{
		Model:   decision.Model,
		Message: domain.ChatMessage{Role: domain.RoleAssistant, Content: reply},
	})
}

func (s *Server) requireAdmin(c *gin.Context) bool {
	if s.adminAPIKey == "" {
		writeError(c, http.StatusServiceUnavailable, "ADMIN_DISABLED", "admin api key not configured")
		return false
	}
	provided := c.GetHeader("X-Admin-Key")
	if len(provided) != len(s.adminAPIKey) ||
		subtle.ConstantTimeCompare([]byte(provided), []byte(s.adminAPIKey)) != 1 {
		writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid admin api key")
		return false
	}
	return true
}
