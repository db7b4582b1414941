package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/naramuhl/finance-friend-central/internal/amqp"
	"github.com/naramuhl/finance-friend-central/internal/records"
	"github.com/naramuhl/finance-friend-central/internal/records/memory"
	"github.com/naramuhl/finance-friend-central/internal/services"
	"github.com/naramuhl/finance-friend-central/internal/storage"
)

type snapshotPublisher interface {
	services.SnapshotPublisher
	Close() error
}

// dialPublisher connects the snapshot publisher; tests replace it.
var dialPublisher = func(url, exchange, queue string) (snapshotPublisher, error) {
	client, err := amqp.NewClient(url, exchange, queue)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store records.Store
		err   error
	)
	switch config.Type {
	case SQLiteBackend:
		store, err = storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		store = memory.New()
		f.logger.Info("Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	result := &BackendResult{Store: store, Cleanup: store.Close}

	// Only a SQLite store is shared with the snapshot consumer; published
	// snapshots from a memory store would land in another process. A broker
	// that cannot be reached at startup is not fatal; snapshots are written
	// straight to the store instead.
	var publisher services.SnapshotPublisher
	switch {
	case config.AMQPURL == "":
	case config.Type != SQLiteBackend:
		f.logger.WarnContext(ctx, "AMQP is only used with the sqlite backend, writing snapshots directly",
			"backend", config.Type)
	default:
		client, err := dialPublisher(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, writing snapshots directly", "error", err)
			break
		}
		f.logger.Info("Initialized AMQP client",
			"exchange", config.AMQPExchange,
			"queue", config.AMQPQueue)
		publisher = client
		result.AMQPEnabled = true
		result.Cleanup = func() error {
			return errors.Join(client.Close(), store.Close())
		}
	}
	result.Snapshots = services.NewSnapshotService(store, publisher)

	return result, nil
}
