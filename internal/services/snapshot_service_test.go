package services

import (
	"context"
	"errors"
	"testing"

	"github.com/naramuhl/finance-friend-central/internal/amqp"
	"github.com/naramuhl/finance-friend-central/internal/core"
	"github.com/naramuhl/finance-friend-central/internal/records/memory"
)

type fakePublisher struct {
	err  error
	sent []amqp.SnapshotMessage
}

func (f *fakePublisher) PublishSnapshot(_ context.Context, msg amqp.SnapshotMessage) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func TestSnapshotServiceRecord(t *testing.T) {
	ctx := context.Background()
	day := core.NewDate(2025, 2, 14)

	t.Run("direct write without publisher", func(t *testing.T) {
		store := memory.New()
		if err := NewSnapshotService(store, nil).Record(ctx, "u1", day, core.Money{Cents: 500}); err != nil {
			t.Fatal(err)
		}
		snaps, _ := store.ListSnapshots(ctx, "u1", day, day)
		if len(snaps) != 1 || snaps[0].TotalBalance.Cents != 500 {
			t.Fatalf("unexpected snapshots: %+v", snaps)
		}
	})

	t.Run("published messages skip the store", func(t *testing.T) {
		store := memory.New()
		pub := &fakePublisher{}
		if err := NewSnapshotService(store, pub).Record(ctx, "u1", day, core.Money{Cents: 700}); err != nil {
			t.Fatal(err)
		}
		if len(pub.sent) != 1 || pub.sent[0].TotalCents != 700 || pub.sent[0].SnapshotDate != "2025-02-14" {
			t.Fatalf("unexpected messages: %+v", pub.sent)
		}
		if snaps, _ := store.ListSnapshots(ctx, "u1", day, day); len(snaps) != 0 {
			t.Fatalf("store written despite publish: %+v", snaps)
		}
	})

	t.Run("publish failure falls back to the store", func(t *testing.T) {
		store := memory.New()
		pub := &fakePublisher{err: errors.New("connection refused")}
		if err := NewSnapshotService(store, pub).Record(ctx, "u1", day, core.Money{Cents: 900}); err != nil {
			t.Fatal(err)
		}
		if snaps, _ := store.ListSnapshots(ctx, "u1", day, day); len(snaps) != 1 {
			t.Fatalf("expected fallback write, got %+v", snaps)
		}
	})
}
