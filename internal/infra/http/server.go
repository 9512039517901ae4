package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/IA683/AstraGPT/internal/config"
	"github.com/IA683/AstraGPT/internal/domain"
	"github.com/IA683/AstraGPT/internal/usecase"
)

type Server struct {
	cfg config.Config
	r   *gin.Engine

	gate      *usecase.AccessGate
	deriver   usecase.KeyDeriver
	clock     usecase.Clock
	completer usecase.Completer
	audit     *usecase.AuditEmitter

	systemPrompt string
	adminAPIKey  string

	rateLimiter         domain.RateLimiter
	rateLimits          map[string]int
	rateLimitWindow     time.Duration
	rateLimitFailClosed bool
}

type ServerDeps struct {
	Gate      *usecase.AccessGate
	Completer usecase.Completer
	Audit     *usecase.AuditEmitter
	Clock     usecase.Clock

	RateLimiter domain.RateLimiter
}

func NewServer(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:                 cfg,
		r:                   r,
		gate:                deps.Gate,
		clock:               deps.Clock,
		completer:           deps.Completer,
		audit:               deps.Audit,
		systemPrompt:        cfg.SystemPrompt,
		adminAPIKey:         cfg.AdminAPIKey,
		rateLimiter: deps.RateLimiter,
		rateLimits: map[string]int{
			routeValidate: cfg.RateLimitRequests,
			routeChat:     cfg.RateLimitChatRequests,
		},
		rateLimitWindow:     cfg.RateLimitWindow(),
		rateLimitFailClosed: cfg.RateLimitFailClosed,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.r.GET("/healthz", s.handleHealthz)

	v1 := s.r.Group("/v1")
	v1.POST("/access/validate", s.handleValidate)
	v1.GET("/keys", s.handleKeys)
	v1.POST("/chat/completions", s.handleChat)
}

func (s *Server) Run() error {
	return s.r.Run(s.cfg.HTTPAddr)
}

func (s *Server) now() time.Time {
	if s.clock != nil {
		return s.clock()
	}
	return time.Now()
}
