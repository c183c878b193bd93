package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Server wraps the gin engine in an http.Server so shutdown can drain
// in-flight requests, including open SSE and coaching streams.
type Server struct {
	Engine *gin.Engine
	srv    *http.Server
}

func NewServer(cfg RouterConfig) *Server {
	return &Server{Engine: NewRouter(cfg)}
}

// NewServerForEngine wraps an engine that was wired elsewhere.
func NewServerForEngine(engine *gin.Engine) *Server {
	return &Server{Engine: engine}
}

// Run blocks serving the engine. A Shutdown-initiated stop returns nil.
func (s *Server) Run(address string) error {
	s.srv = &http.Server{Addr: address, Handler: s.Engine}
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for active requests until
// the context expires.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
