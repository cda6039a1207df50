// Package app wires configuration, infrastructure and the sleep controller
// into a runnable service.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/cellsleep/api"
	"github.com/kilianp07/cellsleep/config"
	coremetrics "github.com/kilianp07/cellsleep/core/metrics"
	"github.com/kilianp07/cellsleep/core/model"
	coremon "github.com/kilianp07/cellsleep/core/monitoring"
	"github.com/kilianp07/cellsleep/core/sleep"
	"github.com/kilianp07/cellsleep/core/snapshot"
	"github.com/kilianp07/cellsleep/infra/logger"
	"github.com/kilianp07/cellsleep/infra/memnet"
	"github.com/kilianp07/cellsleep/infra/metrics"
	"github.com/kilianp07/cellsleep/infra/monitoring"
	"github.com/kilianp07/cellsleep/infra/mqtt"
	"github.com/kilianp07/cellsleep/infra/rest"
	"github.com/kilianp07/cellsleep/internal/eventbus"
)

// Service runs the sleep controller of one macro cell together with its
// metrics collector and diagnostic API.
type Service struct {
	Controller *sleep.Controller
	Network    sleep.Network

	cfg    *config.Config
	bus    *eventbus.Bus
	sink   coremetrics.MetricsSink
	store  snapshot.Store
	client *mqtt.PahoClient
	server *api.Server
	log    logger.Logger

	closers []func() error
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	svc := &Service{cfg: cfg, log: logg}
	if err := svc.build(); err != nil {
		_ = svc.release()
		return nil, err
	}
	return svc, nil
}

// build acquires every resource of the service. Each one registers its
// release so that a failure part way leaves nothing open.
func (s *Service) build() error {
	sink, err := coremetrics.NewMetricsSink(s.cfg.Metrics.Sinks)
	if err != nil {
		return fmt.Errorf("metrics sink: %w", err)
	}
	s.sink = sink
	s.onClose(func() error { return closeSink(sink) })

	store, err := snapshot.NewStore(s.cfg.Snapshot)
	if err != nil {
		return fmt.Errorf("snapshot store: %w", err)
	}
	s.store = store
	s.onClose(store.Close)

	s.bus = eventbus.New(eventbus.WithBuffer(64))
	s.onClose(func() error {
		s.bus.Close()
		if n := s.bus.Dropped(); n > 0 {
			s.log.Warnf("event bus dropped %d events", n)
		}
		return nil
	})

	if err := s.connect(); err != nil {
		return err
	}

	ctrl, err := sleep.NewController(s.cfg.Sleep, s.Network, logger.New("sleep"))
	if err != nil {
		return fmt.Errorf("controller: %w", err)
	}
	ctrl.SetEventBus(s.bus)
	ctrl.SetSnapshotWriter(store)
	s.Controller = ctrl

	if s.client != nil {
		if _, err := mqtt.NewReportListener(s.client, s.cfg.Sleep.Macro, ctrl); err != nil {
			return fmt.Errorf("report listener: %w", err)
		}
	}

	if s.cfg.HTTP.Addr != "" {
		router := api.NewRouter(api.Options{Token: s.cfg.HTTP.Token, Snapshots: store})
		shutdown := time.Duration(s.cfg.HTTP.ShutdownSeconds * float64(time.Second))
		s.server = api.NewServer(s.cfg.HTTP.Addr, router, shutdown, logger.New("api"))
	}
	return nil
}

// connect builds the network backend. Reports always arrive over MQTT except
// for the in-memory backend.
func (s *Service) connect() error {
	macro := s.cfg.Sleep.Macro
	switch s.cfg.Network.Backend {
	case config.BackendMemory:
		s.Network = memnet.New(s.cfg.Network.Memory.Cells, model.ConnectionState{})
		return nil
	case config.BackendMQTT, config.BackendREST:
	default:
		return fmt.Errorf("unknown network backend %q", s.cfg.Network.Backend)
	}

	client, err := mqtt.NewPahoClient(s.cfg.MQTT)
	if err != nil {
		return fmt.Errorf("mqtt client: %w", err)
	}
	s.client = client
	s.onClose(func() error {
		client.Disconnect()
		return nil
	})
	if s.cfg.Network.Backend == config.BackendREST {
		n, err := rest.NewNetwork(s.cfg.REST, macro)
		if err != nil {
			return fmt.Errorf("rest network: %w", err)
		}
		s.Network = n
		return nil
	}
	n, err := mqtt.NewNetwork(client, macro)
	if err != nil {
		return fmt.Errorf("mqtt network: %w", err)
	}
	s.Network = n
	return nil
}

// Run starts the service and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	metrics.StartEventCollector(ctx, s.bus, s.sink)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Controller.Run(ctx) })
	if s.server != nil {
		g.Go(func() error {
			if err := s.server.ListenAndServe(ctx); err != nil {
				return fmt.Errorf("http api: %w", err)
			}
			return nil
		})
	}
	s.log.Infof("sleep service started for macro %d on %s backend", s.cfg.Sleep.Macro, s.cfg.Network.Backend)
	return g.Wait()
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	err := s.release()
	coremon.Flush(2 * time.Second)
	return err
}

func (s *Service) onClose(f func() error) {
	s.closers = append(s.closers, f)
}

// release runs the registered releases in reverse order of acquisition.
func (s *Service) release() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}

func closeSink(sink coremetrics.MetricsSink) error {
	switch c := sink.(type) {
	case interface{ Close() error }:
		return c.Close()
	case interface{ Close() }:
		c.Close()
	}
	return nil
}
