// Package events is the Postgres-backed pub/sub bus for item events, built on
// Watermill's SQL transport. The item store publishes through PublishTx inside
// its write transaction, so an item.created/updated/deleted event exists if and
// only if the write committed. With the forwarder enabled those messages land
// in an outbox queue and the API process relays them to their topics.
//
// Subscribers in the same consumer group share delivery: each message is
// handled by one worker instance. Handlers must be idempotent. A failing
// handler is retried with exponential backoff and the message is Nacked once
// retries run out. Errors wrapped with Permanent are not retried; the message
// is acked and the error reported, since redelivery cannot fix it.
//
// OTel trace context is injected into message metadata on publish and
// restored in Subscribe, so a worker span continues the request that wrote it.
package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	watermillsql "github.com/ThreeDotsLabs/watermill-sql/v3/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/components/forwarder"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"

	"github.com/ghuser/inventory/pkg/config"
	"github.com/ghuser/inventory/pkg/logger"
)

const (
	maxRetries      = 3
	retryBaseDelay  = time.Second
	shutdownTimeout = 30 * time.Second
	forwarderTopic  = "_forwarder_queue" // outbox queue drained by the forwarder
)

// EventBus publishes item events inside store transactions and delivers them
// to subscribers. Delivery uses FOR UPDATE SKIP LOCKED, so several worker
// instances can consume the same topic safely.
type EventBus struct {
	subscriber   *watermillsql.Subscriber
	fwd          *forwarder.Forwarder // set by StartForwarder
	db           *sql.DB
	log          logger.Logger
	handled      metric.Int64Counter
	wg           sync.WaitGroup
	useForwarder bool
}

// NewEventBus opens a bus for consumers. Instances with the same
// cfg.ServiceName share a consumer group, so each message is handled once.
func NewEventBus(cfg *config.Config, log logger.Logger) (*EventBus, error) {
	return newEventBus(cfg, log, false)
}

// NewEventBusWithForwarder opens a bus whose transactional publishes are
// written to the outbox queue rather than straight to their topics. Call
// StartForwarder to relay them; a crash between commit and relay loses nothing.
func NewEventBusWithForwarder(cfg *config.Config, log logger.Logger) (*EventBus, error) {
	return newEventBus(cfg, log, true)
}

func newEventBus(cfg *config.Config, log logger.Logger, useForwarder bool) (*EventBus, error) {
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("events: open db: %w", err)
	}

	sub, err := watermillsql.NewSubscriber(
		db,
		watermillsql.SubscriberConfig{
			SchemaAdapter:    watermillsql.DefaultPostgreSQLSchema{},
			OffsetsAdapter:   watermillsql.DefaultPostgreSQLOffsetsAdapter{},
			InitializeSchema: true,
			ConsumerGroup:    cfg.ServiceName + "-consumer",
		},
		&slogAdapter{log: log},
	)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("events: new subscriber: %w", err)
	}

	return &EventBus{
		subscriber:   sub,
		db:           db,
		log:          log,
		handled:      handledCounter(),
		useForwarder: useForwarder,
	}, nil
}

func handledCounter() metric.Int64Counter {
	c, err := otel.Meter("github.com/ghuser/inventory/pkg/events").Int64Counter(
		"events.handled",
		metric.WithDescription("Event deliveries by topic and outcome (ack, nack, dropped)"),
	)
	if err != nil {
		return noop.Int64Counter{}
	}
	return c
}

// StartForwarder starts relaying the outbox queue to target topics. It
// returns once the relay is running. Only valid on a bus created with
// NewEventBusWithForwarder, and only once.
func (q *EventBus) StartForwarder(ctx context.Context) error {
	if !q.useForwarder {
		return errors.New("events: StartForwarder called on non-forwarder EventBus")
	}
	if q.fwd != nil {
		return errors.New("events: forwarder already started")
	}

	wlog := &slogAdapter{log: q.log}

	fwdSub, err := watermillsql.NewSubscriber(
		q.db,
		watermillsql.SubscriberConfig{
			SchemaAdapter:    watermillsql.DefaultPostgreSQLSchema{},
			OffsetsAdapter:   watermillsql.DefaultPostgreSQLOffsetsAdapter{},
			InitializeSchema: true,
			ConsumerGroup:    "forwarder-consumer",
		},
		wlog,
	)
	if err != nil {
		return fmt.Errorf("events: new forwarder subscriber: %w", err)
	}

	targetPub, err := watermillsql.NewPublisher(
		q.db,
		watermillsql.PublisherConfig{
			SchemaAdapter:        watermillsql.DefaultPostgreSQLSchema{},
			AutoInitializeSchema: true,
		},
		wlog,
	)
	if err != nil {
		_ = fwdSub.Close()
		return fmt.Errorf("events: new forwarder target publisher: %w", err)
	}

	fwd, err := forwarder.NewForwarder(fwdSub, targetPub, wlog, forwarder.Config{
		ForwarderTopic: forwarderTopic,
	})
	if err != nil {
		_ = targetPub.Close()
		_ = fwdSub.Close()
		return fmt.Errorf("events: create forwarder: %w", err)
	}
	q.fwd = fwd

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.log.InfoContext(ctx, "events: forwarder started")
		if err := fwd.Run(ctx); err != nil {
			q.log.ErrorContext(ctx, "events: forwarder stopped with error", "error", err)
			return
		}
		q.log.InfoContext(ctx, "events: forwarder stopped")
	}()

	select {
	case <-fwd.Running():
	case <-ctx.Done():
		return fmt.Errorf("events: context cancelled waiting for forwarder: %w", ctx.Err())
	}
	return nil
}

// NewJSONMessage marshals payload into a message whose metadata carries the
// domain event id and schema version.
func NewJSONMessage(eventID string, version int, payload any) (*message.Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("events: marshal payload: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("event_id", eventID)
	msg.Metadata.Set("event_version", strconv.Itoa(version))
	return msg, nil
}

// PublishTx publishes msgs to topic as part of tx. Nothing is delivered
// unless tx commits. OTel trace context from ctx travels in the metadata.
func (q *EventBus) PublishTx(ctx context.Context, tx *sql.Tx, topic string, msgs ...*message.Message) error {
	// Tables are created by the subscriber side (worker or forwarder) so the
	// publisher never runs DDL inside the caller's transaction.
	pub, err := watermillsql.NewPublisher(
		tx,
		watermillsql.PublisherConfig{SchemaAdapter: watermillsql.DefaultPostgreSQLSchema{}},
		&slogAdapter{log: q.log},
	)
	if err != nil {
		return fmt.Errorf("events: new tx publisher: %w", err)
	}
	var p message.Publisher = pub
	if q.useForwarder {
		p = forwarder.NewPublisher(pub, forwarder.PublisherConfig{ForwarderTopic: forwarderTopic})
	}

	injectTrace(ctx, msgs)
	if err := p.Publish(topic, msgs...); err != nil { //nolint:contextcheck
		return fmt.Errorf("events: publish to %s in tx: %w", topic, err)
	}
	return nil
}

// Subscribe registers handler to process messages from topic asynchronously.
// The handler's context carries the publisher's trace.
//
//   - handler returns nil: Ack
//   - handler returns an error: retried up to 3 times (1s, 2s, 4s), then Nack
//   - handler returns a Permanent error: Ack without retry
//
// Failures are sent on the returned channel (capacity 100), which callers
// must drain. All in-flight handlers complete before Close returns.
func (q *EventBus) Subscribe(ctx context.Context, topic string, handler func(context.Context, *message.Message) error) (<-chan error, error) {
	ch, err := q.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("events: subscribe to %s: %w", topic, err)
	}

	errCh := make(chan error, 100)
	propagator := otel.GetTextMapPropagator()

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		defer close(errCh)

		for msg := range ch {
			carrier := propagation.MapCarrier{}
			for k, v := range msg.Metadata {
				carrier[k] = v
			}
			msgCtx := propagator.Extract(ctx, carrier)

			err := retryWithBackoff(msgCtx, msg, handler, maxRetries, retryBaseDelay, q.log)
			outcome := settle(msg, err)
			q.handled.Add(msgCtx, 1, metric.WithAttributes(
				attribute.String("topic", topic),
				attribute.String("outcome", outcome),
			))
			if err == nil {
				continue
			}
			err = fmt.Errorf("%s event %s: %w", topic, msg.Metadata.Get("event_id"), err)
			select {
			case errCh <- err:
			default:
				q.log.ErrorContext(msgCtx, "events: error channel full, dropping error",
					"error", err, "topic", topic)
			}
		}
	}()

	return errCh, nil
}

// settle acks or nacks msg for the handler result and names the outcome.
func settle(msg *message.Message, err error) string {
	switch {
	case err == nil:
		msg.Ack()
		return "ack"
	case IsPermanent(err):
		msg.Ack()
		return "dropped"
	default:
		msg.Nack()
		return "nack"
	}
}

func injectTrace(ctx context.Context, msgs []*message.Message) {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for _, msg := range msgs {
		for k, v := range carrier {
			msg.Metadata.Set(k, v)
		}
	}
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as one redelivery cannot fix, such as a payload that
// does not decode. The bus acks the message instead of retrying it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// retryWithBackoff calls handler up to maxRetries times with exponential
// backoff. Permanent errors end the loop at once.
func retryWithBackoff(
	ctx context.Context,
	msg *message.Message,
	handler func(context.Context, *message.Message) error,
	maxRetries int,
	baseDelay time.Duration,
	log logger.Logger,
) error {
	delay := baseDelay
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err = handler(ctx, msg); err == nil {
			return nil
		}
		if IsPermanent(err) {
			return err
		}
		if attempt < maxRetries {
			log.WarnContext(ctx, "events: handler failed, retrying",
				"attempt", attempt,
				"max_retries", maxRetries,
				"next_delay", delay,
				"error", err,
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}
	return fmt.Errorf("events: handler failed after %d retries: %w", maxRetries, err)
}

// Ping checks the EventBus database connection health.
func (q *EventBus) Ping(ctx context.Context) error {
	if err := q.db.PingContext(ctx); err != nil {
		return fmt.Errorf("events: ping db: %w", err)
	}
	return nil
}

// Close stops the subscriber and forwarder, waits up to 30s for in-flight
// handlers, then closes the database connection.
func (q *EventBus) Close() error {
	if err := q.subscriber.Close(); err != nil {
		return fmt.Errorf("events: close subscriber: %w", err)
	}

	if q.fwd != nil {
		if err := q.fwd.Close(); err != nil {
			return fmt.Errorf("events: close forwarder: %w", err)
		}
	}

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		q.log.Error("events: timed out waiting for in-flight handlers to complete")
	}

	return q.db.Close()
}

// slogAdapter bridges logger.Logger to watermill.LoggerAdapter.
type slogAdapter struct{ log logger.Logger }

func (a *slogAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.log.Error(msg, append(fieldsToArgs(fields), "error", err)...)
}
func (a *slogAdapter) Info(msg string, fields watermill.LogFields) {
	a.log.Info(msg, fieldsToArgs(fields)...)
}
func (a *slogAdapter) Debug(msg string, fields watermill.LogFields) {
	a.log.Debug(msg, fieldsToArgs(fields)...)
}
func (a *slogAdapter) Trace(msg string, fields watermill.LogFields) {
	a.log.Debug(msg, fieldsToArgs(fields)...)
}
func (a *slogAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &slogAdapter{log: a.log.With(fieldsToArgs(fields)...)}
}

func fieldsToArgs(fields watermill.LogFields) []any {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return args
}
