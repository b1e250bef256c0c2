package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/moodpulse/go-sync-engine/internal/domain"
	"github.com/moodpulse/go-sync-engine/internal/repo"
)

func TestDLQReplay(t *testing.T) {
	db := newTestDB(t)
	svc := NewDLQService(db, 30*24*time.Hour, 14*24*time.Hour, zerolog.Nop())
	ctx := context.Background()
	now := time.Now().UTC()

	it := testItem("00000000-0000-0000-0000-000000000501", "o1", domain.KindMoodEntry, now.Add(-time.Hour))
	it.RetryCount = 8
	if err := repo.InsertItem(ctx, db, it); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := repo.ArchiveDeadLetter(ctx, db, it, "gave up", now); err != nil {
		t.Fatalf("archive: %v", err)
	}

	revived, err := svc.Replay(ctx, it.ID)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if revived.RetryCount != 0 || revived.ID != it.ID {
		t.Fatalf("replayed item wrong: %+v", revived)
	}
	if n, _ := repo.CountDeadLetters(ctx, db); n != 0 {
		t.Fatalf("dlq depth = %d; want 0", n)
	}
}

func TestDLQReplay_NotFound(t *testing.T) {
	db := newTestDB(t)
	svc := NewDLQService(db, 30*24*time.Hour, 14*24*time.Hour, zerolog.Nop())

	_, err := svc.Replay(context.Background(), "00000000-0000-0000-0000-0000000005ff")
	if !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("err = %v; want ErrItemNotFound", err)
	}
}

func TestDLQListPage(t *testing.T) {
	db := newTestDB(t)
	svc := NewDLQService(db, 30*24*time.Hour, 14*24*time.Hour, zerolog.Nop())
	ctx := context.Background()
	now := time.Now().UTC()

	for i, id := range []string{
		"00000000-0000-0000-0000-000000000511",
		"00000000-0000-0000-0000-000000000512",
		"00000000-0000-0000-0000-000000000513",
	} {
		it := testItem(id, "o1", domain.KindMoodEntry, now.Add(-time.Hour))
		if err := repo.InsertItem(ctx, db, it); err != nil {
			t.Fatalf("insert: %v", err)
		}
		if _, err := repo.ArchiveDeadLetter(ctx, db, it, "x", now.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("archive: %v", err)
		}
	}

	items, total, err := svc.ListPage(ctx, 1, 2)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if total != 3 || len(items) != 2 {
		t.Fatalf("total=%d len=%d; want 3/2", total, len(items))
	}
	if items[0].ID != "00000000-0000-0000-0000-000000000513" {
		t.Fatalf("expected newest first, got %s", items[0].ID)
	}
}

func TestDLQMaintain(t *testing.T) {
	db := newTestDB(t)
	svc := NewDLQService(db, 30*24*time.Hour, 14*24*time.Hour, zerolog.Nop())
	ctx := context.Background()
	now := time.Now().UTC()

	// An archived item past retention and a live item past staleness.
	old := testItem("00000000-0000-0000-0000-000000000521", "o1", domain.KindMoodEntry, now.Add(-60*24*time.Hour))
	if err := repo.InsertItem(ctx, db, old); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := repo.ArchiveDeadLetter(ctx, db, old, "x", now.Add(-45*24*time.Hour)); err != nil {
		t.Fatalf("archive: %v", err)
	}

	stale := testItem("00000000-0000-0000-0000-000000000522", "o2", domain.KindMoodEntry, now.Add(-20*24*time.Hour))
	fresh := testItem("00000000-0000-0000-0000-000000000523", "o3", domain.KindMoodEntry, now)
	for _, it := range []*domain.SyncQueueItem{stale, fresh} {
		if err := repo.InsertItem(ctx, db, it); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	svc.Maintain(ctx)

	if n, _ := repo.CountDeadLetters(ctx, db); n != 0 {
		t.Fatalf("retention purge failed, dlq depth = %d", n)
	}
	if n, _ := repo.CountPending(ctx, db); n != 1 {
		t.Fatalf("stale sweep failed, live depth = %d", n)
	}
}
