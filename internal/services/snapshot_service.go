package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/naramuhl/finance-friend-central/internal/amqp"
	"github.com/naramuhl/finance-friend-central/internal/core"
	"github.com/naramuhl/finance-friend-central/internal/records"
)

// SnapshotRecorder records the patrimony total of a user for one day.
type SnapshotRecorder interface {
	Record(ctx context.Context, userID string, day core.Date, total core.Money) error
}

// SnapshotPublisher is the outbound AMQP port used by SnapshotService.
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, msg amqp.SnapshotMessage) error
}

// SnapshotService writes snapshots through the store, or hands them to the
// worker over AMQP when a publisher is configured.
type SnapshotService struct {
	store     records.SnapshotStore
	publisher SnapshotPublisher
}

func NewSnapshotService(store records.SnapshotStore, publisher SnapshotPublisher) *SnapshotService {
	return &SnapshotService{store: store, publisher: publisher}
}

// Record publishes the snapshot, falling back to a direct upsert when the
// broker is unavailable.
func (s *SnapshotService) Record(ctx context.Context, userID string, day core.Date, total core.Money) error {
	if s.publisher != nil {
		msg := amqp.NewSnapshotMessage(userID, day, total)
		err := s.publisher.PublishSnapshot(ctx, msg)
		if err == nil {
			return nil
		}
		slog.WarnContext(ctx, "Failed to publish snapshot message, writing directly",
			"user_id", userID, "snapshot_date", msg.SnapshotDate, "error", err)
	}

	if _, err := s.store.UpsertSnapshot(ctx, userID, day, total); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}
