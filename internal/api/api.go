package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/irrigation-controller/internal/controller"
)

// StatusSource is the read side of the controller's published state.
type StatusSource interface {
	Snapshot() controller.Snapshot
	Events() []controller.EventRecord
}

// ResetTrigger latches a reset activation for the controller to consume.
type ResetTrigger interface {
	Trigger()
}

type Server struct {
	status     StatusSource
	reset      ResetTrigger
	httpServer *http.Server
}

type HealthResponse struct {
	Status string `json:"status"`
	BootID string `json:"boot_id"`
	Fault  string `json:"fault,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

const (
	maxHeaderBytes    = 1 << 20
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 60 * time.Second
)

func NewServer(status StatusSource, reset ResetTrigger) *Server {
	return &Server{status: status, reset: reset}
}

// Routes builds the gin engine serving the status API.
func (s *Server) Routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), cors)

	router.GET("/health", s.health)
	router.GET("/ws", s.wsConnect)

	api := router.Group("/api")
	{
		api.GET("/status", s.getStatus)
		api.GET("/events", s.getEvents)
		api.POST("/reset", s.postReset)
	}

	return router
}

// Start serves the API on port until Shutdown is called.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf("0.0.0.0:%d", port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		MaxHeaderBytes:    maxHeaderBytes,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}

	log.Info().Str("address", addr).Msg("Starting status API server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("status API: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func cors(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type")

	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusOK)
		return
	}
	c.Next()
}

func (s *Server) health(c *gin.Context) {
	snap := s.status.Snapshot()
	if snap.Faulted {
		c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "faulted", BootID: snap.BootID, Fault: snap.Fault})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", BootID: snap.BootID})
}

func (s *Server) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.status.Snapshot())
}

func (s *Server) getEvents(c *gin.Context) {
	c.JSON(http.StatusOK, s.status.Events())
}

func (s *Server) postReset(c *gin.Context) {
	if s.reset == nil {
		writeError(c, http.StatusServiceUnavailable, "Reset control unavailable")
		return
	}
	if s.status.Snapshot().Faulted {
		writeError(c, http.StatusConflict, "Controller is halted")
		return
	}

	s.reset.Trigger()
	log.Info().Str("remote", c.ClientIP()).Msg("Reset requested over API")
	c.JSON(http.StatusAccepted, gin.H{"status": "reset requested"})
}

func writeError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}
