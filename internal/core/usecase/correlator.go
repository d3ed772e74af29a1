package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/sanitary-filing/internal/core/domain"
	"github.com/kirillkom/sanitary-filing/internal/core/ports"
)

const (
	OutcomeAnswered = "answered"
	OutcomeTimeout  = "timeout"
	OutcomeOrphaned = "orphaned"
	OutcomeExpired  = "expired"
)

// ValidationObserver receives correlator outcomes; metrics implement it.
type ValidationObserver interface {
	ObserveValidation(kind domain.ValidationKind, outcome string, wait time.Duration)
}

type pendingValidation struct {
	kind      domain.ValidationKind
	responses chan domain.ValidationResponse
	createdAt time.Time
	claimed   atomic.Bool
}

// Correlator pairs validation requests published on the bus with the responses
// sister modules publish back. Each pending request owns a one-slot channel, so
// the first response wins and later ones are dropped.
type Correlator struct {
	bus            ports.ValidationBus
	defaultTimeout time.Duration
	observer       ValidationObserver

	pending sync.Map // request id -> *pendingValidation
	now     func() time.Time
}

func NewCorrelator(bus ports.ValidationBus, defaultTimeout time.Duration, observer ValidationObserver) *Correlator {
	if defaultTimeout <= 0 {
		defaultTimeout = 5 * time.Second
	}
	return &Correlator{
		bus:            bus,
		defaultTimeout: defaultTimeout,
		observer:       observer,
		now:            time.Now,
	}
}

// Request registers the pending entry, then publishes. It returns as soon as the
// request is on the bus.
func (c *Correlator) Request(ctx context.Context, kind domain.ValidationKind, payload domain.ValidationPayload) (string, error) {
	requestID := uuid.NewString()
	entry := &pendingValidation{
		kind:      kind,
		responses: make(chan domain.ValidationResponse, 1),
		createdAt: c.now(),
	}
	c.pending.Store(requestID, entry)

	req := domain.ValidationRequest{
		RequestID:         requestID,
		Kind:              kind,
		FilingID:          payload.FilingID,
		OwnerEntity:       payload.OwnerEntity,
		DocumentIDs:       payload.DocumentIDs,
		RequiredTemplates: payload.RequiredTemplates,
		PaymentID:         payload.PaymentID,
		RequestedAt:       entry.createdAt.UTC(),
	}
	if err := c.bus.PublishValidationRequest(ctx, req); err != nil {
		c.pending.Delete(requestID)
		return "", fmt.Errorf("publish %s validation request: %w", kind, err)
	}
	return requestID, nil
}

// AwaitResponse blocks until the response for requestID arrives or timeout
// elapses. It takes no context: the wait is bounded by timeout alone. The
// pending entry is removed on every path.
func (c *Correlator) AwaitResponse(requestID string, timeout time.Duration) (domain.ValidationResponse, error) {
	value, ok := c.pending.Load(requestID)
	if !ok {
		return domain.ValidationResponse{}, domain.NewError(domain.ErrNotFound, "await validation", "no pending request %s", requestID)
	}
	entry := value.(*pendingValidation)
	if !entry.claimed.CompareAndSwap(false, true) {
		return domain.ValidationResponse{}, domain.NewError(domain.ErrInvalidInput, "await validation", "request %s is already being awaited", requestID)
	}
	defer c.pending.Delete(requestID)

	if timeout <= 0 {
		timeout = c.defaultTimeout
	}
	start := c.now()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-entry.responses:
		c.observe(entry.kind, OutcomeAnswered, c.now().Sub(start))
		return resp, nil
	case <-timer.C:
		c.observe(entry.kind, OutcomeTimeout, c.now().Sub(start))
		return domain.ValidationResponse{}, domain.NewError(domain.ErrValidationTimeout, "await validation",
			"no %s response for request %s within %s", entry.kind, requestID, timeout)
	}
}

// Ask is Request followed by AwaitResponse.
func (c *Correlator) Ask(ctx context.Context, kind domain.ValidationKind, payload domain.ValidationPayload, timeout time.Duration) (domain.ValidationResponse, error) {
	requestID, err := c.Request(ctx, kind, payload)
	if err != nil {
		return domain.ValidationResponse{}, err
	}
	return c.AwaitResponse(requestID, timeout)
}

// Deliver is the bus listener. Unknown, late and duplicate responses are dropped.
func (c *Correlator) Deliver(_ context.Context, resp domain.ValidationResponse) error {
	value, ok := c.pending.Load(resp.RequestID)
	if !ok {
		c.orphan(resp, "no pending request")
		return nil
	}
	entry := value.(*pendingValidation)
	select {
	case entry.responses <- resp:
	default:
		c.orphan(resp, "duplicate response")
	}
	return nil
}

// Sweep drops entries nobody awaited within maxAge and reports how many were removed.
func (c *Correlator) Sweep(maxAge time.Duration) int {
	now := c.now()
	removed := 0
	c.pending.Range(func(key, value any) bool {
		entry := value.(*pendingValidation)
		if entry.claimed.Load() || now.Sub(entry.createdAt) <= maxAge {
			return true
		}
		c.pending.Delete(key)
		removed++
		c.observe(entry.kind, OutcomeExpired, now.Sub(entry.createdAt))
		return true
	})
	return removed
}

// RunSweeper sweeps every interval until ctx is done, expiring entries older than twice the default timeout.
func (c *Correlator) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = c.defaultTimeout
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Sweep(2 * c.defaultTimeout); n > 0 {
				slog.Warn("validation_requests_expired", "count", n)
			}
		}
	}
}

// Pending reports the number of tracked requests.
func (c *Correlator) Pending() int {
	n := 0
	c.pending.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}

func (c *Correlator) orphan(resp domain.ValidationResponse, reason string) {
	slog.Warn("validation_response_orphaned",
		"request_id", resp.RequestID,
		"kind", resp.Kind,
		"reason", reason,
	)
	c.observe(resp.Kind, OutcomeOrphaned, 0)
}

func (c *Correlator) observe(kind domain.ValidationKind, outcome string, wait time.Duration) {
	if c.observer != nil {
		c.observer.ObserveValidation(kind, outcome, wait)
	}
}
