package nats

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/sanitary-filing/internal/core/domain"
)

func TestClassifyNATSError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retryable bool
		record    bool
	}{
		{"nil", nil, false, false},
		{"cancelled", context.Canceled, false, false},
		{"no servers", fmt.Errorf("publish: %w", nats.ErrNoServers), true, true},
		{"reconnecting", nats.ErrConnectionReconnecting, true, true},
		{"breaker open", gobreaker.ErrOpenState, true, true},
		{"bad subject", nats.ErrBadSubject, false, true},
	}
	for _, tc := range cases {
		got := classifyNATSError(tc.err)
		if got.Retryable != tc.retryable || got.RecordFailure != tc.record {
			t.Fatalf("%s: unexpected classification %+v", tc.name, got)
		}
	}
}

func TestWrapTemporaryIfNeeded(t *testing.T) {
	err := wrapTemporaryIfNeeded(fmt.Errorf("publish: %w", nats.ErrConnectionClosed))
	if !domain.IsKind(err, domain.ErrTemporary) || !errors.Is(err, nats.ErrConnectionClosed) {
		t.Fatalf("expected temporary wrap preserving cause, got %v", err)
	}
	if again := wrapTemporaryIfNeeded(err); again != err {
		t.Fatalf("already-temporary errors must pass through unchanged")
	}
	plain := errors.New("encode failure")
	if got := wrapTemporaryIfNeeded(plain); got != plain {
		t.Fatalf("non-connection errors must pass through, got %v", got)
	}
	if wrapTemporaryIfNeeded(nil) != nil {
		t.Fatalf("nil must stay nil")
	}
}
