// Package server exposes the verification pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/ppiankov/verity/internal/model"
	"github.com/ppiankov/verity/internal/verify"
)

const requestIDHeader = "X-Request-ID"

// Verifier is the pipeline surface the API serves
type Verifier interface {
	PreliminaryVerify(ctx context.Context, text string, explicitlyRequested bool) (*model.PreliminaryResult, error)
	CheckPreviousVerification(ctx context.Context, text, sessionID string, thoughtType model.ThoughtType, connectedIDs []string) (*model.PreviousVerification, error)
	DeepVerify(ctx context.Context, thought *model.Thought, containsCalculations, forceVerification bool, sessionID string) (*model.VerificationResult, error)
	Verify(ctx context.Context, thought *model.Thought, force bool) (*verify.Report, error)
}

// Options configures a Server
type Options struct {
	Pipeline Verifier
	// Graph, when set, records every verified thought so later conclusions
	// can inherit from it
	Graph *verify.MemoryGraph
	// Gatherer backs /metrics; nil omits the route
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
	Version  string
}

// Server is the HTTP API
type Server struct {
	pipeline Verifier
	graph    *verify.MemoryGraph
	logger   *slog.Logger
	version  string
	engine   *gin.Engine
}

// New builds the router
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Server{
		pipeline: opts.Pipeline,
		graph:    opts.Graph,
		logger:   opts.Logger,
		version:  opts.Version,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("verity"))
	router.Use(s.requestID())

	router.GET("/healthz", s.handleHealth)
	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/v1")
	{
		v1.POST("/preliminary", s.handlePreliminary)
		v1.POST("/previous", s.handlePrevious)
		v1.POST("/deep", s.handleDeep)
		v1.POST("/verify", s.handleVerify)
	}

	s.engine = router
	return s
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) log(c *gin.Context, handler string) *slog.Logger {
	return s.logger.With("request_id", c.GetString("request_id"), "handler", handler)
}
