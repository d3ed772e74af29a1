package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/kirillkom/sanitary-filing/internal/core/domain"
	"github.com/kirillkom/sanitary-filing/internal/infrastructure/resilience"
)

const defaultQueueGroup = "validators"

type Subjects struct {
	Requests  string
	Responses string
}

type Options struct {
	Name                 string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	// QueueGroup load-balances requests across responder replicas.
	QueueGroup         string
	ResilienceExecutor *resilience.Executor
}

// Bus is the NATS validation bus. Requests fan out to one responder of the queue
// group; responses come back on a subject private to this process, so several
// API replicas never see each other's answers.
type Bus struct {
	conn       *nats.Conn
	subjects   Subjects
	replyTo    string
	queueGroup string
	executor   *resilience.Executor
}

func New(url string, subjects Subjects, options Options) (*Bus, error) {
	if strings.TrimSpace(subjects.Requests) == "" || strings.TrimSpace(subjects.Responses) == "" {
		return nil, fmt.Errorf("nats: request and response subjects are required")
	}
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	name := options.Name
	if name == "" {
		name = "sanitary-filing"
	}
	queueGroup := options.QueueGroup
	if queueGroup == "" {
		queueGroup = defaultQueueGroup
	}

	conn, err := nats.Connect(
		url,
		nats.Name(name),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Bus{
		conn:       conn,
		subjects:   subjects,
		replyTo:    subjects.Responses + "." + uuid.NewString(),
		queueGroup: queueGroup,
		executor:   options.ResilienceExecutor,
	}, nil
}

func (b *Bus) Close() {
	if b.conn != nil {
		b.conn.Close()
	}
}

// Healthy reports whether the connection is currently usable.
func (b *Bus) Healthy() bool {
	return b.conn != nil && b.conn.IsConnected()
}

func (b *Bus) PublishValidationRequest(ctx context.Context, req domain.ValidationRequest) error {
	if req.ReplyTo == "" {
		req.ReplyTo = b.replyTo
	}
	return b.publish(ctx, "nats.publish.request", b.subjects.Requests, req)
}

func (b *Bus) PublishValidationResponse(ctx context.Context, resp domain.ValidationResponse) error {
	subject := resp.ReplyTo
	if subject == "" {
		subject = b.subjects.Responses
	}
	return b.publish(ctx, "nats.publish.response", subject, resp)
}

func (b *Bus) SubscribeValidationRequests(ctx context.Context, handler func(context.Context, domain.ValidationRequest) error) error {
	return b.consume(ctx, b.subjects.Requests, b.queueGroup, func(handlerCtx context.Context, data []byte) error {
		var req domain.ValidationRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return fmt.Errorf("decode validation request: %w", err)
		}
		return handler(handlerCtx, req)
	})
}

// SubscribeValidationResponses listens on this process's reply subject and on the
// shared response subject, for responders that ignore reply routing.
func (b *Bus) SubscribeValidationResponses(ctx context.Context, handler func(context.Context, domain.ValidationResponse) error) error {
	decode := func(handlerCtx context.Context, data []byte) error {
		var resp domain.ValidationResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return fmt.Errorf("decode validation response: %w", err)
		}
		return handler(handlerCtx, resp)
	}
	shared, err := b.conn.Subscribe(b.subjects.Responses, b.dispatch(ctx, b.subjects.Responses, decode))
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", b.subjects.Responses, err)
	}
	defer func() { _ = shared.Unsubscribe() }()
	return b.consume(ctx, b.replyTo, "", decode)
}

func (b *Bus) publish(ctx context.Context, operation, subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", subject, err)
	}
	call := func(_ context.Context) error {
		if err := b.conn.Publish(subject, data); err != nil {
			return wrapTemporaryIfNeeded(fmt.Errorf("nats publish %s: %w", subject, err))
		}
		return nil
	}

	if b.executor != nil {
		err = b.executor.Execute(ctx, operation, call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// consume subscribes, then blocks until ctx is done and drains the subscription.
func (b *Bus) consume(ctx context.Context, subject, queue string, handle func(context.Context, []byte) error) error {
	var (
		sub *nats.Subscription
		err error
	)
	if queue != "" {
		sub, err = b.conn.QueueSubscribe(subject, queue, b.dispatch(ctx, subject, handle))
	} else {
		sub, err = b.conn.Subscribe(subject, b.dispatch(ctx, subject, handle))
	}
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", subject, err)
	}
	if err := b.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := b.conn.FlushTimeout(5 * time.Second); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func (b *Bus) dispatch(ctx context.Context, subject string, handle func(context.Context, []byte) error) nats.MsgHandler {
	return func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handle(handlerCtx, msg.Data); err != nil {
			slog.Error("nats_handler_failed", "subject", subject, "error", err)
		}
	}
}
