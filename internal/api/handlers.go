package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rx-safety-engine/internal/domain"
	"github.com/rx-safety-engine/internal/middleware"
	"github.com/rx-safety-engine/internal/scheduler"
	"github.com/rx-safety-engine/internal/service"
)

const healthCheckTimeout = 3 * time.Second

type interactionsRequest struct {
	Drugs []string `json:"drugs"`
}

type healthResponse struct {
	Status    string                           `json:"status"`
	Timestamp time.Time                        `json:"timestamp"`
	Store     storeHealth                      `json:"store"`
	Probes    map[string]scheduler.ProbeResult `json:"probes,omitempty"`
}

type storeHealth struct {
	Driver  string `json:"driver"`
	Version string `json:"version"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	resp := healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Store: storeHealth{
			Driver:  s.opts.Driver,
			Version: s.opts.Version,
			Healthy: true,
		},
	}
	if s.opts.Store != nil {
		if err := s.opts.Store.Health(ctx); err != nil {
			resp.Store.Healthy = false
			resp.Store.Error = err.Error()
		}
	}
	if s.opts.Probe != nil {
		resp.Probes = s.opts.Probe.Results()
	}

	status := http.StatusOK
	if !resp.Store.Healthy {
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

func (s *Server) handleSearch(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			middleware.AbortWithError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "limit must be a non-negative integer", raw)
			return
		}
		limit = n
	}

	results, err := s.opts.Engines.SearchDrugs(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"query": c.Query("q"), "results": results})
}

func (s *Server) handleGetDrug(c *gin.Context) {
	drug, err := s.opts.Engines.Store.Lookup(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, drug)
}

func (s *Server) handleInteractions(c *gin.Context) {
	var req interactionsRequest
	if !s.bind(c, &req) {
		return
	}
	if len(req.Drugs) < 2 {
		s.writeError(c, domain.NewValidationError("drugs", "At least two drugs are required", req.Drugs))
		return
	}
	c.JSON(http.StatusOK, s.opts.Engines.CheckInteractions(c.Request.Context(), req.Drugs))
}

func (s *Server) handleDosage(c *gin.Context) {
	var req service.DosageRequest
	if !s.bind(c, &req) {
		return
	}

	outcome, err := s.opts.Engines.RecommendDosage(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if !outcome.Available() {
		middleware.AbortWithError(c, http.StatusUnprocessableEntity, domain.ErrCodeUnavailable, "Dosage recommendation unavailable", outcome.Unavailable)
		return
	}
	c.JSON(http.StatusOK, outcome.Recommendation)
}

func (s *Server) handleAlternatives(c *gin.Context) {
	var req service.AlternativesRequest
	if !s.bind(c, &req) {
		return
	}

	result, err := s.opts.Engines.FindAlternatives(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleAnalysis(c *gin.Context) {
	var req service.AnalysisRequest
	if !s.bind(c, &req) {
		return
	}

	analysis, err := s.opts.Engines.Analyze(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (s *Server) bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "Invalid request body", err.Error())
		return false
	}
	return true
}

// writeError maps engine and store errors to HTTP responses.
func (s *Server) writeError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		middleware.AbortWithError(c, http.StatusBadRequest, domain.ErrCodeValidation, verr.Message, verr.Field)
	case errors.Is(err, domain.ErrNotFound):
		middleware.AbortWithError(c, http.StatusNotFound, domain.ErrCodeNotFound, "Not found", err.Error())
	case errors.Is(err, domain.ErrStoreUnavailable):
		middleware.AbortWithError(c, http.StatusServiceUnavailable, domain.ErrCodeStore, "Knowledge store unavailable", "")
	case errors.Is(err, context.DeadlineExceeded):
		middleware.AbortWithError(c, http.StatusGatewayTimeout, domain.ErrCodeStore, "Request timed out", "")
	default:
		s.logger.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
		middleware.AbortWithError(c, http.StatusInternalServerError, domain.ErrCodeInternalServer, "Internal server error", "")
	}
}
