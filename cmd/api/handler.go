package api

import (
	"net/http"
	"time"

	agentDelivery "inbox-agent/internal/agent/delivery"
	agentUsecase "inbox-agent/internal/agent/usecase"
	authDelivery "inbox-agent/internal/auth/delivery"
	authUsecase "inbox-agent/internal/auth/usecase"
	knowledgeDelivery "inbox-agent/internal/knowledge/delivery"
	knowledgeUsecase "inbox-agent/internal/knowledge/usecase"
	operatorDelivery "inbox-agent/internal/operator/delivery"
	operatorUsecase "inbox-agent/internal/operator/usecase"
	syncDelivery "inbox-agent/internal/sync/delivery"
	"inbox-agent/pkg/ai"
	"inbox-agent/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Dependencies are the use cases the HTTP surface is built from.
type Dependencies struct {
	Auth         authUsecase.AuthUsecase
	PushVerifier authUsecase.PushVerifier
	Dispatcher   syncDelivery.NotificationDispatcher
	Leases       syncDelivery.LeaseManager
	Pipeline     agentUsecase.PipelineUsecase
	Knowledge    knowledgeUsecase.KnowledgeUsecase
	Operator     operatorUsecase.OperatorUsecase
	Settings     *ai.RuntimeSettings
}

type Handler struct {
	auth         authUsecase.AuthUsecase
	pushVerifier authUsecase.PushVerifier
	authHandler  *authDelivery.AuthHandler
	sync         *syncDelivery.SyncHandler
	agent        *agentDelivery.AgentHandler
	knowledge    *knowledgeDelivery.KnowledgeHandler
	operator     *operatorDelivery.OperatorHandler
	settings     *SettingsHandler
	logger       zerolog.Logger
}

func NewHandler(cfg *config.Config, deps Dependencies, logger zerolog.Logger) *Handler {
	return &Handler{
		auth:         deps.Auth,
		pushVerifier: deps.PushVerifier,
		authHandler:  authDelivery.NewAuthHandler(deps.Auth),
		sync:         syncDelivery.NewSyncHandler(deps.Dispatcher, deps.Leases, cfg.MailboxAddress, logger),
		agent:        agentDelivery.NewAgentHandler(deps.Pipeline),
		knowledge:    knowledgeDelivery.NewKnowledgeHandler(deps.Knowledge),
		operator:     operatorDelivery.NewOperatorHandler(deps.Operator),
		settings:     NewSettingsHandler(deps.Settings),
		logger:       logger,
	}
}

// Router builds the gin engine with middleware and all routes.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLogger())

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h)
	return r
}

// Server returns the HTTP server; the caller owns ListenAndServe and Shutdown.
func (h *Handler) Server(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if c.Request.URL.Path == "/metrics" || c.Request.URL.Path == "/api/health" {
			return
		}
		h.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
