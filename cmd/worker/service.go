package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/ordering-backend/pkg/logger"
)

const heartbeatInterval = 30 * time.Second

type pinger interface {
	Ping(context.Context) error
}

type consumer interface {
	Run(context.Context) error
}

// dependency is something the worker must reach before it starts consuming.
type dependency struct {
	name string
	conn pinger
}

type ServiceParams struct {
	Logger   *logger.Logger
	DB       pinger
	Redis    pinger
	PubSub   pinger
	Consumer consumer
}

// Service runs the order notification consumer once its dependencies answer,
// alongside a debug heartbeat.
type Service struct {
	logg      *logger.Logger
	deps      []dependency
	consumer  consumer
	heartbeat time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Consumer == nil {
		return nil, errors.New("notification consumer is required")
	}
	deps := []dependency{
		{name: "database", conn: params.DB},
		{name: "redis", conn: params.Redis},
		{name: "pubsub", conn: params.PubSub},
	}
	for _, dep := range deps {
		if dep.conn == nil {
			return nil, fmt.Errorf("%s client is required", dep.name)
		}
	}
	return &Service{
		logg:      params.Logger,
		deps:      deps,
		consumer:  params.Consumer,
		heartbeat: heartbeatInterval,
	}, nil
}

func (s *Service) ready(ctx context.Context) error {
	for _, dep := range s.deps {
		if err := dep.conn.Ping(ctx); err != nil {
			s.logg.Error(ctx, dep.name+" ping failed", err)
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

// Run returns when ctx is canceled or the consumer stops.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := s.consumer.Run(gctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logg.Error(gctx, "consumer stopped unexpectedly", err)
		}
		if err == nil {
			// a clean return still ends the worker
			err = context.Canceled
		}
		return err
	})
	g.Go(func() error {
		ticker := time.NewTicker(s.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				s.logg.Debug(gctx, "worker heartbeat")
			}
		}
	})
	return g.Wait()
}
