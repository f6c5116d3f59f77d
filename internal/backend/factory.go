package backend

import (
	"context"
	"fmt"

	"braces/internal/amqp"
	"braces/internal/ledger"
	"braces/internal/ledger/memory"
	"braces/internal/log"
	"braces/internal/services"
	"braces/internal/storage"
)

// PublisherDialer opens the event publisher. Tests replace it to avoid a broker.
type PublisherDialer func(url, exchange string) (services.EventPublisher, error)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
	dial   PublisherDialer
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
		dial: func(url, exchange string) (services.EventPublisher, error) {
			c, err := amqp.NewClient(url, exchange)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
	}
}

// WithDialer swaps the publisher dialer.
func (f *DefaultFactory) WithDialer(d PublisherDialer) *DefaultFactory {
	f.dial = d
	return f
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var store ledger.Store
	switch config.Type {
	case MemoryBackend:
		store = f.createMemoryStore(config)
	case SQLiteBackend:
		repo, err := f.createSQLiteStore(ctx, config)
		if err != nil {
			return nil, err
		}
		store = repo
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	// Event publishing is optional; the store stays authoritative without it.
	var publisher services.EventPublisher
	if config.AMQPURL != "" {
		p, err := f.dial(config.AMQPURL, config.AMQPExchange)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			publisher = p
			f.logger.Info("Initialized AMQP client", "exchange", config.AMQPExchange)
		}
	}

	svc := services.NewLedgerService(store, publisher, f.logger)
	return &BackendResult{
		Store:   svc,
		Service: svc,
		Cleanup: svc.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryStore(config Config) *memory.Store {
	var store *memory.Store
	if config.SeedSample {
		store = memory.NewWithSample()
	} else {
		store = memory.New()
	}
	f.logger.Info("Initialized memory backend", "seeded", config.SeedSample, "patients", store.Len())
	return store
}

func (f *DefaultFactory) createSQLiteStore(ctx context.Context, config Config) (*storage.SQLiteRepository, error) {
	var (
		repo *storage.SQLiteRepository
		err  error
	)
	if config.SeedSample {
		repo, err = storage.NewSQLiteRepositoryWithSample(ctx)
	} else {
		repo, err = storage.NewSQLiteRepository(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized in-memory SQLite backend", "seeded", config.SeedSample)
	return repo, nil
}
