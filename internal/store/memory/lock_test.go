package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clawarena/arena/internal/domain"
	"github.com/clawarena/arena/internal/store/memory"
)

func TestLockManagerMutualExclusion(t *testing.T) {
	lm := memory.NewLockManager()
	ctx := context.Background()

	unlock, err := lm.Acquire(ctx, "resolve:m1", 30*time.Second)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	if _, err := lm.Acquire(ctx, "resolve:m1", 30*time.Second); !errors.Is(err, domain.ErrLockHeld) {
		t.Fatalf("err = %v, want ErrLockHeld", err)
	}

	// Other keys are independent.
	other, err := lm.Acquire(ctx, "resolve:m2", 30*time.Second)
	if err != nil {
		t.Fatalf("Acquire other key: %v", err)
	}
	other()

	// Release is idempotent and frees the key for reacquisition.
	unlock()
	unlock()
	again, err := lm.Acquire(ctx, "resolve:m1", 30*time.Second)
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	again()
}

func TestSignalBusDelivery(t *testing.T) {
	bus := memory.NewSignalBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Subscribe(ctx, "bets")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := bus.Publish(context.Background(), "bets", []byte(`{"market_id":"m1"}`)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	// Publishing on a channel nobody listens to must not error.
	if err := bus.Publish(context.Background(), "votes", []byte("{}")); err != nil {
		t.Fatalf("Publish unsubscribed: %v", err)
	}

	select {
	case got := <-ch:
		if string(got) != `{"market_id":"m1"}` {
			t.Fatalf("payload = %s", got)
		}
	case <-time.After(time.Second):
		t.Fatal("no delivery")
	}

	// Cancelling the subscription closes the channel.
	cancel()
	select {
	case _, open := <-ch:
		if open {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}
