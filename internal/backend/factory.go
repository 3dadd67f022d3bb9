package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ahorro/internal/amqp"
	"ahorro/internal/docstore"
	"ahorro/internal/docstore/memory"
	"ahorro/internal/events"
	"ahorro/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store docstore.Store
		ping  func(context.Context) error
	)
	switch config.Type {
	case SQLiteBackend:
		s, err := storage.NewSQLiteStore(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		store, ping = s, s.Ping
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		store = memory.New()
		ping = func(context.Context) error { return nil }
		f.logger.InfoContext(ctx, "Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	broker := f.createBroker(ctx, config)

	return &BackendResult{
		Store:  store,
		Broker: broker,
		Ping:   ping,
		Cleanup: func() error {
			return errors.Join(broker.Close(), store.Close())
		},
	}, nil
}

// createBroker falls back to the in-process broker when RabbitMQ is
// unreachable; live friend notifications then only reach this instance.
func (f *DefaultFactory) createBroker(ctx context.Context, config Config) events.Broker {
	buffer := config.BrokerBuffer
	if buffer <= 0 {
		buffer = defaultBrokerBuffer
	}
	if config.AMQPURL == "" {
		f.logger.InfoContext(ctx, "Using in-process event broker")
		return events.NewMemoryBroker(buffer)
	}

	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, using in-process broker", "error", err)
		return events.NewMemoryBroker(buffer)
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client
}
