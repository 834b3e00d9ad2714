// Package server exposes the request dispatcher over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"sol-swap/pkg/types"
)

const requestIDHeader = "X-Request-ID"

// Handler executes one request envelope
type Handler interface {
	Handle(ctx context.Context, req types.Request) types.Response
}

// Server is the HTTP front end of the swap engine
type Server struct {
	handler Handler
	log     zerolog.Logger
	router  *gin.Engine
}

// New builds the router with every route registered
func New(handler Handler, log zerolog.Logger) *Server {
	s := &Server{handler: handler, log: log}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/swap", s.handleSwap)

	s.router = r
	return s
}

// Router returns the underlying gin engine
func (s *Server) Router() *gin.Engine {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleSwap(c *gin.Context) {
	var req types.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse("Invalid request body: "+err.Error()))
		return
	}
	c.JSON(http.StatusOK, s.handler.Handle(c.Request.Context(), req))
}

// requestLogger tags each request with an id and logs it once it completes
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)

		log := s.log.With().Str("request_id", id).Logger()
		c.Request = c.Request.WithContext(log.WithContext(c.Request.Context()))

		start := time.Now()
		c.Next()

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}
