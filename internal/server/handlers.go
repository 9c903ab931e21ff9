package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/verity/internal/model"
	"github.com/ppiankov/verity/internal/verify"
)

// ErrorResponse is the body of every non-2xx answer
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// PreliminaryRequest asks for the calculation-only fast path
type PreliminaryRequest struct {
	Text                string `json:"text" binding:"required"`
	ExplicitlyRequested bool   `json:"explicitly_requested"`
}

// PreviousRequest asks whether text was verified before
type PreviousRequest struct {
	Text         string            `json:"text" binding:"required"`
	SessionID    string            `json:"session_id"`
	ThoughtType  model.ThoughtType `json:"thought_type"`
	ConnectedIDs []string          `json:"connected_ids"`
}

// DeepRequest asks for a full verification of a thought
type DeepRequest struct {
	Thought              model.Thought `json:"thought"`
	ContainsCalculations bool          `json:"contains_calculations"`
	ForceVerification    bool          `json:"force_verification"`
	SessionID            string        `json:"session_id"`
}

// DeepResponse carries the result and the updated thought
type DeepResponse struct {
	Result  *model.VerificationResult `json:"result"`
	Thought model.Thought             `json:"thought"`
}

// VerifyRequest runs a thought through the whole pipeline
type VerifyRequest struct {
	Thought model.Thought `json:"thought"`
	Force   bool          `json:"force"`
}

// VerifyResponse carries the report and the updated thought
type VerifyResponse struct {
	Report  *verify.Report `json:"report"`
	Thought model.Thought  `json:"thought"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": s.version})
}

func (s *Server) handlePreliminary(c *gin.Context) {
	logger := s.log(c, "preliminary")

	var req PreliminaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("invalid request body", "error", err)
		badRequest(c)
		return
	}

	result, err := s.pipeline.PreliminaryVerify(c.Request.Context(), req.Text, req.ExplicitlyRequested)
	if err != nil {
		s.fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handlePrevious(c *gin.Context) {
	logger := s.log(c, "previous")

	var req PreviousRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("invalid request body", "error", err)
		badRequest(c)
		return
	}

	prev, err := s.pipeline.CheckPreviousVerification(c.Request.Context(), req.Text, req.SessionID, req.ThoughtType, req.ConnectedIDs)
	if err != nil {
		s.fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, prev)
}

func (s *Server) handleDeep(c *gin.Context) {
	logger := s.log(c, "deep")

	var req DeepRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Thought.Content) == "" {
		logger.Warn("invalid request body", "error", err)
		badRequest(c)
		return
	}

	thought := req.Thought
	result, err := s.pipeline.DeepVerify(c.Request.Context(), &thought, req.ContainsCalculations, req.ForceVerification, req.SessionID)
	if err != nil {
		s.fail(c, logger, err)
		return
	}
	s.remember(thought)
	logger.Info("deep verification", "thought_id", thought.ID, "status", result.Status)
	c.JSON(http.StatusOK, DeepResponse{Result: result, Thought: thought})
}

func (s *Server) handleVerify(c *gin.Context) {
	logger := s.log(c, "verify")

	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Thought.Content) == "" {
		logger.Warn("invalid request body", "error", err)
		badRequest(c)
		return
	}

	thought := req.Thought
	report, err := s.pipeline.Verify(c.Request.Context(), &thought, req.Force)
	if err != nil {
		s.fail(c, logger, err)
		return
	}
	s.remember(thought)
	c.JSON(http.StatusOK, VerifyResponse{Report: report, Thought: thought})
}

// remember records thoughts with an id in the graph
func (s *Server) remember(t model.Thought) {
	if s.graph != nil && t.ID != "" {
		s.graph.Put(t)
	}
}

func badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: "Invalid request body",
		Code:  "INVALID_REQUEST",
	})
}

func (s *Server) fail(c *gin.Context, logger *slog.Logger, err error) {
	status := http.StatusInternalServerError
	code := "VERIFICATION_FAILED"
	switch {
	case errors.Is(err, verify.ErrNilThought):
		status = http.StatusBadRequest
		code = "INVALID_REQUEST"
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
		code = "TIMEOUT"
	case errors.Is(err, context.Canceled):
		status = http.StatusServiceUnavailable
		code = "CANCELLED"
	}
	logger.Error("verification failed", "error", err)
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}
