// Package server runs the arena's long-lived services under one supervisor
// with signal handling and ordered shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Service is a long-running component. Run blocks until ctx is cancelled or
// the service fails; returning ctx's error counts as a clean stop.
type Service interface {
	Run(ctx context.Context) error
}

// ServiceFunc adapts a function into the Service interface.
type ServiceFunc func(ctx context.Context) error

// Run calls f.
func (f ServiceFunc) Run(ctx context.Context) error { return f(ctx) }

// Lifecycle supervises multiple services. Services start together and stop
// in reverse registration order, each one fully returning before the next is
// cancelled, so a front door can close before the writers behind it drain.
type Lifecycle struct {
	logger   *zap.Logger
	services []namedService
	mu       sync.Mutex
}

type namedService struct {
	name    string
	service Service
}

// NewLifecycle creates a new Lifecycle manager.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{
		logger: logger,
	}
}

// Add registers a named service for lifecycle management.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = append(l.services, namedService{name: name, service: svc})
}

type running struct {
	name   string
	cancel context.CancelFunc
	done   chan struct{}
}

// Run starts all services and blocks until ctx is cancelled, SIGINT or SIGTERM
// arrives, or a service fails. It then stops the services in reverse order.
//
// Postcondition: All services have returned. The result is the first service
// failure, or nil on a clean shutdown.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()
	l.mu.Lock()
	services := append([]namedService(nil), l.services...)
	l.mu.Unlock()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	runs := make([]running, len(services))
	for i, ns := range services {
		// Each service gets its own context so shutdown can be ordered.
		sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		r := running{name: ns.name, cancel: cancel, done: make(chan struct{})}
		runs[i] = r
		l.logger.Info("starting service", zap.String("service", ns.name))
		g.Go(func() error {
			defer close(r.done)
			svcStart := time.Now()
			err := ns.service.Run(sctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				l.logger.Error("service failed",
					zap.String("service", ns.name),
					zap.Error(err),
					zap.Duration("uptime", time.Since(svcStart)),
				)
				return fmt.Errorf("service %s: %w", ns.name, err)
			}
			return nil
		})
	}

	l.logger.Info("all services started",
		zap.Int("count", len(services)),
		zap.Duration("startup", time.Since(start)),
	)

	<-gctx.Done()
	if ctx.Err() != nil {
		l.logger.Info("shutdown requested", zap.Error(context.Cause(ctx)))
	} else {
		l.logger.Error("service error, shutting down")
	}

	l.shutdown(runs)
	err := g.Wait()

	l.logger.Info("shutdown complete",
		zap.Duration("total_uptime", time.Since(start)),
	)
	return err
}

func (l *Lifecycle) shutdown(runs []running) {
	shutdownStart := time.Now()
	for i := len(runs) - 1; i >= 0; i-- {
		r := runs[i]
		svcStart := time.Now()
		l.logger.Info("stopping service", zap.String("service", r.name))
		r.cancel()
		<-r.done
		l.logger.Info("service stopped",
			zap.String("service", r.name),
			zap.Duration("elapsed", time.Since(svcStart)),
		)
	}
	l.logger.Info("all services stopped",
		zap.Duration("shutdown_elapsed", time.Since(shutdownStart)),
	)
}
