package service

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-jobrunner/metrics"
)

const (
	DefaultHealthzAddr = "0.0.0.0:8080"
	DefaultMetricsAddr = "0.0.0.0:7300"
)

// Config holds configuration for creating a Service. An empty address
// disables the matching server.
type Config struct {
	HealthzAddr string
	MetricsAddr string
	Log         log.Logger
}

type Service struct {
	Healthz *HealthzServer
	Metrics *MetricsServer

	cfg Config
	wg  sync.WaitGroup
}

func New(cfg Config) *Service {
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	return &Service{
		Healthz: NewHealthzServer(cfg.Log),
		Metrics: &MetricsServer{},
		cfg:     cfg,
	}
}

func (s *Service) Start(ctx context.Context) {
	s.cfg.Log.Info("service starting")

	if addr := s.cfg.HealthzAddr; addr != "" {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.cfg.Log.Info("starting healthz server", "addr", addr)
			if err := s.Healthz.Start(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.cfg.Log.Error("error starting healthz server", "err", err)
				metrics.RecordErrorDetails("error starting healthz server", err)
			}
		}()
	}

	if addr := s.cfg.MetricsAddr; addr != "" {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.cfg.Log.Info("starting metrics server", "addr", addr)
			if err := s.Metrics.Start(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.cfg.Log.Error("error starting metrics server", "err", err)
				metrics.RecordErrorDetails("error starting metrics server", err)
			}
		}()
	}

	s.cfg.Log.Info("service started")
}

// Shutdown stops both servers and waits for their goroutines.
func (s *Service) Shutdown() {
	s.cfg.Log.Info("service shutting down")

	_ = s.Healthz.Shutdown()
	s.cfg.Log.Info("healthz stopped")

	_ = s.Metrics.Shutdown()
	s.cfg.Log.Info("metrics stopped")

	s.wg.Wait()
	s.cfg.Log.Info("service stopped")
}
