package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/ssoonwee/bonafide/pkg/config"
	"go.uber.org/zap"
)

// Service serves metrics.
type Service struct {
	http        []*http.Server
	config      config.BasicService
	log         *zap.Logger
	serviceType string
	started     bool
}

// NewService configures logger and returns new service instance.
func NewService(name string, srvs []*http.Server, cfg config.BasicService, log *zap.Logger) *Service {
	return &Service{
		http:        srvs,
		config:      cfg,
		serviceType: name,
		log:         log.With(zap.String("service", name)),
	}
}

// Start runs http service with the exposed endpoint on the configured port.
// Listening errors are reported into errChan.
func (ms *Service) Start(errChan chan<- error) error {
	if !ms.config.Enabled {
		ms.log.Info("service hasn't started since it's disabled")
		return nil
	}
	if ms.started {
		return errors.New("service already started")
	}
	ms.started = true
	for _, srv := range ms.http {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			return err
		}
		srv.Addr = ln.Addr().String()
		ms.log.Info("starting service", zap.String("endpoint", srv.Addr))
		go func(s *http.Server, l net.Listener) {
			err := s.Serve(l)
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				ms.log.Error("failed to serve", zap.String("endpoint", s.Addr), zap.Error(err))
				if errChan != nil {
					errChan <- err
				}
			}
		}(srv, ln)
	}
	return nil
}

// Addresses returns the actual bound addresses, useful when the
// configured port is zero.
func (ms *Service) Addresses() []string {
	addrs := make([]string, len(ms.http))
	for i, srv := range ms.http {
		addrs[i] = srv.Addr
	}
	return addrs
}

// ShutDown stops the service.
func (ms *Service) ShutDown() {
	if !ms.started {
		return
	}
	ms.started = false
	for _, srv := range ms.http {
		ms.log.Info("shutting down service", zap.String("endpoint", srv.Addr))
		err := srv.Shutdown(context.Background())
		if err != nil {
			ms.log.Error("can't shut service down", zap.String("endpoint", srv.Addr), zap.Error(err))
		}
	}
}
