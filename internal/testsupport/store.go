package testsupport

import (
	"context"
	"testing"

	"scorepub/internal/config"
	"scorepub/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// Enqueue inserts a request for tests using the provided store.
func Enqueue(t testing.TB, store *queue.Store, axis queue.Axis, entity string, activity queue.Activity, argument string) *queue.Request {
	t.Helper()

	req, err := store.Enqueue(context.Background(), queue.NewRequest{
		Axis:     axis,
		Entity:   entity,
		Activity: activity,
		Argument: argument,
	})
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return req
}

// Pending lists the pending requests for axis.
func Pending(t testing.TB, store *queue.Store, axis queue.Axis) []*queue.Request {
	t.Helper()

	reqs, err := store.List(context.Background(), axis, false)
	if err != nil {
		t.Fatalf("store.List: %v", err)
	}
	return reqs
}
