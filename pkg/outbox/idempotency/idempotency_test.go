package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

type fakeStore struct {
	getResult   string
	getError    error
	setNXResult bool
	setNXError  error
	lastKey     string
	lastTTL     time.Duration
	lastDeleted string
}

func (f *fakeStore) Get(context.Context, string) (string, error) {
	return f.getResult, f.getError
}

func (f *fakeStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.lastKey = key
	f.lastTTL = ttl
	return f.setNXResult, f.setNXError
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "sf:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	if len(keys) > 0 {
		f.lastDeleted = keys[0]
	}
	return nil
}

func TestCheckAndMarkProcessed_FirstTime(t *testing.T) {
	store := &fakeStore{setNXResult: true}
	manager, err := NewManager(store, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	eventID := uuid.New()
	already, err := manager.CheckAndMarkProcessed(context.Background(), "payment-finalizer", eventID)
	if err != nil {
		t.Fatalf("CheckAndMarkProcessed: %v", err)
	}
	if already {
		t.Fatalf("expected first call to return false, got true")
	}

	expectedKey := "sf:idempotency:evt:processed:payment-finalizer:" + eventID.String()
	if store.lastKey != expectedKey {
		t.Fatalf("unexpected key: %q", store.lastKey)
	}
	if store.lastTTL != 24*time.Hour {
		t.Fatalf("unexpected ttl: %v", store.lastTTL)
	}
}

func TestCheckAndMarkProcessed_AlreadyProcessed(t *testing.T) {
	store := &fakeStore{setNXResult: false}
	manager, err := NewManager(store, 12*time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	already, err := manager.CheckAndMarkProcessed(context.Background(), "payment-finalizer", uuid.New())
	if err != nil {
		t.Fatalf("CheckAndMarkProcessed: %v", err)
	}
	if !already {
		t.Fatalf("expected already processed, got false")
	}
}

func TestCheckAndMarkProcessed_Error(t *testing.T) {
	store := &fakeStore{setNXError: errors.New("boom")}
	manager, err := NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	_, err = manager.CheckAndMarkProcessed(context.Background(), "payment-finalizer", uuid.New())
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestIsProcessed(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		store := &fakeStore{getError: goredis.Nil}
		manager, err := NewManager(store, time.Hour)
		if err != nil {
			t.Fatalf("NewManager: %v", err)
		}

		processed, err := manager.IsProcessed(context.Background(), "payment-finalizer", uuid.New())
		if err != nil {
			t.Fatalf("IsProcessed: %v", err)
		}
		if processed {
			t.Fatal("expected missing key to read as unprocessed")
		}
	})

	t.Run("present key", func(t *testing.T) {
		store := &fakeStore{getResult: "1"}
		manager, err := NewManager(store, time.Hour)
		if err != nil {
			t.Fatalf("NewManager: %v", err)
		}

		processed, err := manager.IsProcessed(context.Background(), "payment-finalizer", uuid.New())
		if err != nil {
			t.Fatalf("IsProcessed: %v", err)
		}
		if !processed {
			t.Fatal("expected present key to read as processed")
		}
	})

	t.Run("does not write", func(t *testing.T) {
		store := &fakeStore{getError: goredis.Nil}
		manager, err := NewManager(store, time.Hour)
		if err != nil {
			t.Fatalf("NewManager: %v", err)
		}

		if _, err := manager.IsProcessed(context.Background(), "payment-finalizer", uuid.New()); err != nil {
			t.Fatalf("IsProcessed: %v", err)
		}
		if store.lastKey != "" {
			t.Fatalf("expected no SetNX call, key was written: %q", store.lastKey)
		}
	})
}

func TestMarkProcessed(t *testing.T) {
	store := &fakeStore{setNXResult: true}
	manager, err := NewManager(store, 6*time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	eventID := uuid.New()
	if err := manager.MarkProcessed(context.Background(), "payment-finalizer", eventID); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}
	expected := "sf:idempotency:evt:processed:payment-finalizer:" + eventID.String()
	if store.lastKey != expected {
		t.Fatalf("unexpected key: %q", store.lastKey)
	}
	if store.lastTTL != 6*time.Hour {
		t.Fatalf("unexpected ttl: %v", store.lastTTL)
	}
}

func TestDeleteProcessed(t *testing.T) {
	store := &fakeStore{}
	manager, err := NewManager(store, 1*time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	eventID := uuid.New()
	if err := manager.Delete(context.Background(), "payment-finalizer", eventID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	expected := "sf:idempotency:evt:processed:payment-finalizer:" + eventID.String()
	if store.lastDeleted != expected {
		t.Fatalf("unexpected deleted key %q", store.lastDeleted)
	}
}
