package core

import (
	"context"
	"testing"
	"time"
)

func TestStore_GetOrCreate(t *testing.T) {
	store := NewStore(time.Hour, 20)

	sess, created := store.GetOrCreate("")
	if !created || sess.ID == "" {
		t.Fatalf("GetOrCreate(\"\") = %v, created=%v", sess, created)
	}
	if got := sess.Snapshot(0).Page.Size; got != 20 {
		t.Errorf("default page size = %d, want 20", got)
	}

	again, created := store.GetOrCreate(sess.ID)
	if created || again != sess {
		t.Error("GetOrCreate with known id should return the same session")
	}

	other, created := store.GetOrCreate("unknown-id")
	if !created || other.ID == "unknown-id" {
		t.Error("unknown ids must not be adopted")
	}

	if store.Len() != 2 {
		t.Errorf("Len = %d, want 2", store.Len())
	}
	if _, ok := store.Get(other.ID); !ok {
		t.Error("created session not found by id")
	}
}

func TestStore_Sweep(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewStore(time.Hour, DefaultPageSize)
	store.now = func() time.Time { return now }

	stale := store.Create()
	fresh := store.Create()

	now = now.Add(45 * time.Minute)
	store.Get(fresh.ID)

	now = now.Add(30 * time.Minute)
	if n := store.Sweep(); n != 1 {
		t.Errorf("Sweep removed %d, want 1", n)
	}
	if _, ok := store.Get(stale.ID); ok {
		t.Error("stale session survived sweep")
	}
	if _, ok := store.Get(fresh.ID); !ok {
		t.Error("fresh session was swept")
	}
}

func TestStore_RunJanitorStops(t *testing.T) {
	store := NewStore(time.Hour, DefaultPageSize)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		store.RunJanitor(ctx, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
