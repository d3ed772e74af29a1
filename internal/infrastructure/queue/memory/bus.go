package memory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/kirillkom/sanitary-filing/internal/core/domain"
	"github.com/kirillkom/sanitary-filing/internal/core/ports"
)

type requestHandler = func(context.Context, domain.ValidationRequest) error
type responseHandler = func(context.Context, domain.ValidationResponse) error

// Bus is an in-process ValidationBus with the delivery shape of the NATS one:
// each request reaches one request subscriber, each response reaches every
// response subscriber, and handlers run on their own goroutine.
type Bus struct {
	mu        sync.Mutex
	requests  map[int]requestHandler
	responses map[int]responseHandler
	nextID    int
	cursor    int
	wg        sync.WaitGroup
}

var _ ports.ValidationBus = (*Bus)(nil)

func NewBus() *Bus {
	return &Bus{
		requests:  map[int]requestHandler{},
		responses: map[int]responseHandler{},
	}
}

func (b *Bus) PublishValidationRequest(ctx context.Context, req domain.ValidationRequest) error {
	b.mu.Lock()
	handler := b.pickRequestHandler()
	b.mu.Unlock()
	if handler == nil {
		slog.Warn("validation_request_unrouted", "request_id", req.RequestID, "kind", req.Kind)
		return nil
	}
	b.run(func() {
		if err := handler(context.WithoutCancel(ctx), req); err != nil {
			slog.Error("memory_bus_handler_failed", "request_id", req.RequestID, "error", err)
		}
	})
	return nil
}

func (b *Bus) PublishValidationResponse(ctx context.Context, resp domain.ValidationResponse) error {
	b.mu.Lock()
	handlers := make([]responseHandler, 0, len(b.responses))
	for _, h := range b.responses {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()
	for _, handler := range handlers {
		b.run(func() {
			if err := handler(context.WithoutCancel(ctx), resp); err != nil {
				slog.Error("memory_bus_handler_failed", "request_id", resp.RequestID, "error", err)
			}
		})
	}
	return nil
}

func (b *Bus) SubscribeValidationRequests(ctx context.Context, handler func(context.Context, domain.ValidationRequest) error) error {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.requests[id] = handler
	b.mu.Unlock()

	<-ctx.Done()
	b.mu.Lock()
	delete(b.requests, id)
	b.mu.Unlock()
	return nil
}

func (b *Bus) SubscribeValidationResponses(ctx context.Context, handler func(context.Context, domain.ValidationResponse) error) error {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.responses[id] = handler
	b.mu.Unlock()

	<-ctx.Done()
	b.mu.Lock()
	delete(b.responses, id)
	b.mu.Unlock()
	return nil
}

// Subscribers reports how many request and response handlers are attached.
func (b *Bus) Subscribers() (requests, responses int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests), len(b.responses)
}

// Wait blocks until every in-flight handler returned.
func (b *Bus) Wait() {
	b.wg.Wait()
}

func (b *Bus) run(fn func()) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		fn()
	}()
}

// pickRequestHandler round-robins over subscribers in id order. Caller holds mu.
func (b *Bus) pickRequestHandler() requestHandler {
	if len(b.requests) == 0 {
		return nil
	}
	for i := 0; i < b.nextID; i++ {
		id := (b.cursor + i) % b.nextID
		if h, ok := b.requests[id]; ok {
			b.cursor = id + 1
			return h
		}
	}
	return nil
}
