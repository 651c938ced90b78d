// Package server exposes the recommendation service and the chat assistant over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stock-recommender/internal/chat"
	"stock-recommender/internal/service"
)

// Recommender produces one recommendation response per call.
type Recommender interface {
	GenerateRecommendations(ctx context.Context, parallel bool) service.Response
}

// Chatter answers a conversation.
type Chatter interface {
	Reply(ctx context.Context, conversation []chat.Turn) (string, error)
}

type Server struct {
	engine *gin.Engine
	http   *http.Server
	log    *zap.Logger
}

// New builds the router. allowOrigins feeds the CORS policy for the web client.
func New(addr string, rec Recommender, chatter Chatter, log *zap.Logger, allowOrigins []string) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	corsCfg := cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowOrigins) == 0 {
		corsCfg.AllowOrigins = nil
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	}

	r := gin.New()
	r.Use(AccessLog(log), gin.Recovery(), cors.New(corsCfg))

	h := NewHandler(rec, chatter, log)
	r.GET("/", h.Health)
	r.GET("/api/recommendations", h.Recommendations)
	r.POST("/chat", h.Chat)

	return &Server{
		engine: r,
		log:    log,
		http: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until Shutdown is called. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.log.Info("HTTP server listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("HTTP server shutting down")
	return s.http.Shutdown(ctx)
}

// AccessLog writes one structured line per request.
func AccessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("query", c.Request.URL.RawQuery),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("bytes", c.Writer.Size()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			log.Error("request", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}
