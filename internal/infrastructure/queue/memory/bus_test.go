package memory

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/sanitary-filing/internal/core/domain"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestBusDeliversEachRequestOnce(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var first, second atomic.Int32
	go func() {
		_ = bus.SubscribeValidationRequests(ctx, func(context.Context, domain.ValidationRequest) error {
			first.Add(1)
			return nil
		})
	}()
	go func() {
		_ = bus.SubscribeValidationRequests(ctx, func(context.Context, domain.ValidationRequest) error {
			second.Add(1)
			return nil
		})
	}()
	waitFor(t, func() bool { r, _ := bus.Subscribers(); return r == 2 })

	for i := 0; i < 4; i++ {
		if err := bus.PublishValidationRequest(ctx, domain.ValidationRequest{RequestID: "r"}); err != nil {
			t.Fatalf("PublishValidationRequest() error = %v", err)
		}
	}
	bus.Wait()
	if first.Load()+second.Load() != 4 {
		t.Fatalf("expected 4 deliveries, got %d", first.Load()+second.Load())
	}
	if first.Load() != 2 || second.Load() != 2 {
		t.Fatalf("expected round-robin delivery, got %d/%d", first.Load(), second.Load())
	}
}

func TestBusBroadcastsResponses(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())

	var got atomic.Int32
	for i := 0; i < 2; i++ {
		go func() {
			_ = bus.SubscribeValidationResponses(ctx, func(context.Context, domain.ValidationResponse) error {
				got.Add(1)
				return nil
			})
		}()
	}
	waitFor(t, func() bool { _, r := bus.Subscribers(); return r == 2 })

	if err := bus.PublishValidationResponse(ctx, domain.ValidationResponse{RequestID: "r"}); err != nil {
		t.Fatalf("PublishValidationResponse() error = %v", err)
	}
	bus.Wait()
	if got.Load() != 2 {
		t.Fatalf("expected every subscriber to see the response, got %d", got.Load())
	}

	cancel()
	waitFor(t, func() bool { _, r := bus.Subscribers(); return r == 0 })
}

func TestBusWithoutSubscribersDropsRequest(t *testing.T) {
	bus := NewBus()
	if err := bus.PublishValidationRequest(context.Background(), domain.ValidationRequest{RequestID: "r"}); err != nil {
		t.Fatalf("expected unrouted request to be dropped silently, got %v", err)
	}
}
