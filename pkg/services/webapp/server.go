/*
Package webapp exposes marketplace view controllers via HTTP JSON API.
*/
package webapp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ssoonwee/bonafide/pkg/config"
	"github.com/ssoonwee/bonafide/pkg/views"
	"go.uber.org/zap"
)

// Server is the marketplace HTTP server.
type Server struct {
	http     []*http.Server
	engine   *gin.Engine
	ops      views.Operations
	cfg      config.Webapp
	decimals int
	log      *zap.Logger
	started  bool
}

// New creates a server using the given operations to serve requests. Prices
// are accepted and presented with the given number of decimals.
func New(cfg config.Webapp, ops views.Operations, decimals int, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		engine:   gin.New(),
		ops:      ops,
		cfg:      cfg,
		decimals: decimals,
		log:      log,
	}
	s.engine.Use(gin.Recovery(), s.logRequests)
	s.routes()

	addrs := cfg.GetAddresses()
	s.http = make([]*http.Server, len(addrs))
	for i, addr := range addrs {
		s.http[i] = &http.Server{
			Addr:              addr,
			Handler:           s.engine,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	return s
}

// Handler returns HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start runs the server in background, serving errors are reported to the
// given channel. Listening errors are returned immediately.
func (s *Server) Start(errChan chan<- error) error {
	if !s.cfg.Enabled {
		s.log.Info("web server is disabled")
		return nil
	}
	if s.started {
		return errors.New("web server already started")
	}
	s.started = true
	for _, srv := range s.http {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
		}
		srv.Addr = ln.Addr().String()
		s.log.Info("starting web server", zap.String("endpoint", srv.Addr))
		go func(srv *http.Server, ln net.Listener) {
			err := srv.Serve(ln)
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.log.Error("web server failed", zap.String("endpoint", srv.Addr), zap.Error(err))
				if errChan != nil {
					errChan <- err
				}
			}
		}(srv, ln)
	}
	return nil
}

// Addresses returns the addresses the server listens on, they're resolved
// after Start.
func (s *Server) Addresses() []string {
	addrs := make([]string, len(s.http))
	for i, srv := range s.http {
		addrs[i] = srv.Addr
	}
	return addrs
}

// Shutdown stops the server.
func (s *Server) Shutdown() {
	if !s.started {
		return
	}
	for _, srv := range s.http {
		s.log.Info("shutting down web server", zap.String("endpoint", srv.Addr))
		if err := srv.Shutdown(context.Background()); err != nil {
			s.log.Warn("error during web server shutdown", zap.String("endpoint", srv.Addr), zap.Error(err))
		}
	}
	s.started = false
}

func (s *Server) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.log.Debug("request served",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", c.Writer.Status()),
		zap.Duration("took", time.Since(start)))
}
