// councilserver is a thin REST + WebSocket front door over
// council.Pipeline: POST a question and the request blocks until the
// deliberation finishes, returning the full session; sessions can be
// fetched again via GET /sessions/:id, and a session's trace events
// can be streamed over GET /sessions/:id/stream while it is running
// (routes live under /api/v1). It is a demonstration wrapper, not a
// hardened production HTTP service — no auth, no rate limiting beyond
// whatever the adapter layer already does.
package main

import (
	"context"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vasic-digital/council/internal/adapter"
	"github.com/vasic-digital/council/internal/config"
	"github.com/vasic-digital/council/internal/council"
	"github.com/vasic-digital/council/internal/events"
	"github.com/vasic-digital/council/internal/planner"
	"github.com/vasic-digital/council/internal/repository"
)

// Server wires the council pipeline behind gin routes, matching the
// teacher's NewAPIServer(port)/Start() shape.
type Server struct {
	port     string
	log      *logrus.Logger
	pipeline *council.Pipeline
	repo     repository.Repository
	bus      *events.Bus
	cfg      *config.Config
	hub      *streamHub
}

// NewServer builds a Server from a loaded Config.
func NewServer(port string, cfg *config.Config) *Server {
	log := logrus.New()
	log.SetLevel(logrus.InfoLevel)

	registry := adapter.NewRegistry()
	resolver := config.NewAdapterResolver(cfg, registry, config.DefaultTransport())

	var plannerAdapter adapter.ModelAdapter
	if cfg.Planner.PlannerModelID != "" {
		if a, err := resolver(cfg.ModelPool()[cfg.Planner.PlannerModelID]); err == nil {
			plannerAdapter = a
		}
	}
	p := planner.New(cfg.ToPlannerConfig(plannerAdapter))

	bus := events.NewBus(events.NewMemoryStore(), log)
	repo := buildRepository(cfg)
	pipeline := council.New(p, resolver, bus, repo, log)
	hub := newStreamHub(bus)

	return &Server{port: port, log: log, pipeline: pipeline, repo: repo, bus: bus, cfg: cfg, hub: hub}
}

// Start runs the gin HTTP server until the process exits.
func (s *Server) Start() error {
	r := gin.Default()

	api := r.Group("/api/v1")
	{
		api.POST("/sessions", s.handleCreateSession)
		api.GET("/sessions", s.handleListSessions)
		api.GET("/sessions/:id", s.handleGetSession)
		api.GET("/sessions/:id/stream", s.handleStream)
		api.GET("/health", s.handleHealth)
	}

	s.log.WithField("port", s.port).Info("starting council server")
	return r.Run(":" + s.port)
}

func (s *Server) handleCreateSession(c *gin.Context) {
	var req struct {
		Question string `json:"question" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionCfg := s.cfg.Session.ToSessionConfig()
	iterationCfg := s.cfg.Iteration.ToIterationConfig()
	memoryCfg := s.cfg.Memory.ToMemoryConfig()

	// Runs synchronously: this demo does not offer a background job
	// queue, so the HTTP request blocks for the deliberation's duration.
	session, err := s.pipeline.Run(c.Request.Context(), req.Question, council.RunOptions{
		SessionOverride:   &sessionCfg,
		IterationOverride: &iterationCfg,
		MemoryOverride:    &memoryCfg,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "session": session})
		return
	}
	c.JSON(http.StatusOK, session)
}

func (s *Server) handleListSessions(c *gin.Context) {
	list, err := s.repo.List(context.Background(), 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": list})
}

func (s *Server) handleGetSession(c *gin.Context) {
	id := c.Param("id")
	session, err := s.repo.Get(context.Background(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, session)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func buildRepository(cfg *config.Config) repository.Repository {
	if cfg.Repository.Backend != "redis" {
		return repository.NewMemoryRepository()
	}
	client := newRedisClient(cfg.Repository.RedisAddr)
	return repository.NewRedisRepository(client, cfg.Repository.KeyPrefix)
}

func main() {
	configPath := os.Getenv("COUNCIL_CONFIG")
	if configPath == "" {
		configPath = "council.yaml"
	}
	envPath := os.Getenv("COUNCIL_ENV_FILE")
	if envPath == "" {
		envPath = ".env"
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	loader := config.NewLoader(configPath, envPath)
	cfg, err := loader.Load()
	if err != nil {
		logrus.WithError(err).Fatal("councilserver: failed to load config")
	}

	server := NewServer(port, cfg)
	if err := server.Start(); err != nil {
		logrus.WithError(err).Fatal("councilserver: server exited")
	}
}
