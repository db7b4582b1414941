package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/naramuhl/finance-friend-central/internal/amqp"
	"github.com/naramuhl/finance-friend-central/internal/core"
	"github.com/naramuhl/finance-friend-central/internal/services"
)

// SnapshotStore is the subset of records.Store the worker needs.
type SnapshotStore interface {
	ListAccountOwners(ctx context.Context) ([]string, error)
	ListAccounts(ctx context.Context, userID string) ([]core.Account, error)
	UpsertSnapshot(ctx context.Context, userID string, day core.Date, total core.Money) (core.PatrimonySnapshot, error)
}

// SnapshotWorker applies snapshot messages from AMQP and periodically
// recomputes today's snapshot for every user, so that lost messages are
// repaired on the next pass.
type SnapshotWorker struct {
	store SnapshotStore
	now   func() time.Time
}

func NewSnapshotWorker(store SnapshotStore) *SnapshotWorker {
	return &SnapshotWorker{store: store, now: time.Now}
}

// WithClock sets the clock used to pick the snapshot day.
func (w *SnapshotWorker) WithClock(now func() time.Time) *SnapshotWorker {
	w.now = now
	return w
}

// HandleSnapshotMessage processes a single snapshot message from AMQP
func (w *SnapshotWorker) HandleSnapshotMessage(ctx context.Context, msg *amqp.SnapshotMessage) error {
	day, err := msg.Day()
	if err != nil {
		return fmt.Errorf("parse snapshot date: %w", err)
	}

	slog.InfoContext(ctx, "Processing snapshot message",
		"user_id", msg.UserID,
		"snapshot_date", msg.SnapshotDate,
		"total_cents", msg.TotalCents)

	if _, err := w.store.UpsertSnapshot(ctx, msg.UserID, day, core.Money{Cents: msg.TotalCents}); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// RecordDailySnapshots recomputes the total balance of every user with
// accounts and stores it as today's snapshot. A failing user is logged and
// skipped.
func (w *SnapshotWorker) RecordDailySnapshots(ctx context.Context) error {
	owners, err := w.store.ListAccountOwners(ctx)
	if err != nil {
		return fmt.Errorf("list account owners: %w", err)
	}
	if len(owners) == 0 {
		return nil
	}

	today := core.DateOf(w.now())
	successCount := 0
	errorCount := 0

	for _, userID := range owners {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.recordUser(ctx, userID, today); err != nil {
			slog.ErrorContext(ctx, "Failed to record daily snapshot",
				"user_id", userID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Daily snapshots recorded",
		"snapshot_date", today.String(),
		"total", len(owners),
		"recorded", successCount,
		"errors", errorCount)
	return nil
}

func (w *SnapshotWorker) recordUser(ctx context.Context, userID string, day core.Date) error {
	accounts, err := w.store.ListAccounts(ctx, userID)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}
	_, err = w.store.UpsertSnapshot(ctx, userID, day, services.TotalBalance(accounts))
	return err
}

// Run records snapshots every interval until ctx is done.
func (w *SnapshotWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.RecordDailySnapshots(ctx); err != nil && ctx.Err() == nil {
				slog.ErrorContext(ctx, "Periodic snapshot pass failed", "error", err)
			}
		}
	}
}
