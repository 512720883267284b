// Package api exposes the encounter workspace over HTTP: encounter
// lifecycle, conversation turns, notes, body system tools, psychometric
// modules and the one-shot AI analyses.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"mediframework/internal/assist"
	"mediframework/internal/chat"
	"mediframework/internal/registry"
	"mediframework/internal/session"
	"mediframework/pkg"
)

// Server bundles the HTTP surface and its dependencies.
type Server struct {
	log     *logrus.Logger
	store   *session.Store
	mux     *chat.Multiplexer
	assist  *assist.Service
	tools   *registry.Tools
	modules *registry.Modules

	aiAvailable func() bool
	router      *gin.Engine
	server      *http.Server
}

// NewServer builds the router.  aiAvailable feeds the health endpoint
// and may be nil.
func NewServer(log *logrus.Logger, store *session.Store, mux *chat.Multiplexer, assistSvc *assist.Service, tools *registry.Tools, modules *registry.Modules, aiAvailable func() bool) *Server {
	if aiAvailable == nil {
		aiAvailable = func() bool { return false }
	}
	if log.GetLevel() != logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		log:         log,
		store:       store,
		mux:         mux,
		assist:      assistSvc,
		tools:       tools,
		modules:     modules,
		aiAvailable: aiAvailable,
		router:      router,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/encounters", s.handleListEncounters)
		v1.POST("/encounters", s.handleCreateEncounter)
		v1.GET("/encounters/active", s.handleActiveEncounter)
		v1.GET("/encounters/:id", s.handleGetEncounter)
		v1.PATCH("/encounters/:id", s.handleRenameEncounter)
		v1.DELETE("/encounters/:id", s.handleDeleteEncounter)
		v1.POST("/encounters/:id/activate", s.handleActivateEncounter)

		v1.POST("/encounters/:id/messages", s.handleSendTurn)
		v1.PUT("/encounters/:id/notes", s.handleMergeNotes)
		v1.GET("/encounters/:id/notes/export", s.handleExportNotes)
		v1.PUT("/encounters/:id/severities", s.handleSetSeverity)
		v1.PUT("/encounters/:id/patient", s.handleSetPatientData)

		v1.PUT("/active-tab", s.handleSetActiveTab)

		v1.GET("/tools", s.handleToolSnapshot)
		v1.PUT("/tools/:tool", s.handleUpdateTool)
		v1.POST("/tools/:tool/reset", s.handleResetTool)
		v1.POST("/tools/:tool/calculate", s.handleCalculateTool)
		v1.POST("/tools/:tool/analyze", s.handleAnalyzeTool)
		v1.POST("/tools/:tool/entries", s.handleAddROMEntry)

		v1.GET("/assessments", s.handleAssessmentSnapshot)
		v1.PUT("/assessments/:module", s.handleUpdateAssessment)
		v1.POST("/assessments/:module/reset", s.handleResetAssessment)

		v1.POST("/assist/predictive", s.handlePredictiveAssessment)
	}
}

// Start runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("http server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleHealth(c *gin.Context) {
	status := "healthy"
	if !s.aiAvailable() {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      status,
		"aiAvailable": s.aiAvailable(),
		"timestamp":   time.Now().UnixMilli(),
	})
}

// writeError maps the error taxonomy onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, pkg.ErrEncounterNotFound):
		status = http.StatusNotFound
	case errors.Is(err, pkg.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, pkg.ErrTurnInProgress):
		status = http.StatusConflict
	case errors.Is(err, pkg.ErrServiceUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, pkg.ErrTurnTimeout):
		status = http.StatusGatewayTimeout
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
