package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"capa-grader/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
)

func TestStateStoreRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewStateStore(newClient(mr), time.Hour)
	ctx := context.Background()

	cm := domain.NewCorrectMap()
	cm.Set("p1_2_1", domain.CorrectMapEntry{
		Correctness:    domain.Incomplete,
		PointsPossible: 1,
		Queue:          &domain.QueueState{Key: "abc", SubmittedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
	})
	cm.Set("p1_3_1", domain.CorrectMapEntry{
		Correctness: domain.Correct, PointsEarned: 2, PointsPossible: 2, Hint: "nice",
	})

	if err := store.Put(ctx, "alice", "p1", cm); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := store.Get(ctx, "alice", "p1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	queued, _ := got.Get("p1_2_1")
	if !queued.IsQueued() || queued.Queue.Key != "abc" {
		t.Errorf("queued entry = %+v, want queue state preserved", queued)
	}
	settled, _ := got.Get("p1_3_1")
	if !settled.IsCorrect() || settled.Hint != "nice" {
		t.Errorf("settled entry = %+v", settled)
	}
}

func TestStateStoreMissing(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewStateStore(newClient(mr), 0)
	if _, err := store.Get(context.Background(), "ghost", "p1"); !errors.Is(err, domain.ErrStateNotFound) {
		t.Errorf("err = %v, want ErrStateNotFound", err)
	}
}

func TestStateStoreTTL(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewStateStore(newClient(mr), time.Minute)
	ctx := context.Background()
	cm := domain.NewSingleCorrectMap("p1_2_1", domain.CorrectMapEntry{Correctness: domain.Correct})
	if err := store.Put(ctx, "alice", "p1", cm); err != nil {
		t.Fatalf("Put: %v", err)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := store.Get(ctx, "alice", "p1"); !errors.Is(err, domain.ErrStateNotFound) {
		t.Errorf("err after TTL = %v, want ErrStateNotFound", err)
	}
}
