package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	amqp "github.com/rabbitmq/amqp091-go"

	"club-recruitment-service/internal/broker"
	"club-recruitment-service/internal/domain"
	"club-recruitment-service/internal/logger"
)

var errConnectionLost = errors.New("broker delivery channel closed")

// Handler processes one decoded event.
type Handler interface {
	Handle(ctx context.Context, ev domain.Event) error
}

// Topology names the exchange, queue and bindings the consumer declares.
type Topology struct {
	Exchange           string
	Queue              string
	DeadLetterExchange string
	MessageTTL         time.Duration
	Prefetch           int
	RoutingKeys        []string
}

// Reconnect bounds the exponential backoff used to (re)establish a session.
type Reconnect struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxAttempts  uint
}

// Consumer reads identity events from the broker until its context ends.
// Messages are acked only after the handler succeeds.
type Consumer struct {
	source    ChannelSource
	topology  Topology
	reconnect Reconnect
	handler   Handler
	health    func(serving bool)
	log       *slog.Logger
}

func NewConsumer(source ChannelSource, topology Topology, reconnect Reconnect, handler Handler) *Consumer {
	return &Consumer{
		source:    source,
		topology:  topology,
		reconnect: reconnect,
		handler:   handler,
		health:    func(bool) {},
		log:       logger.WithComponent("identity-consumer"),
	}
}

// OnHealthChange registers a callback told whether the consumer holds a
// live session.
func (c *Consumer) OnHealthChange(fn func(serving bool)) {
	c.health = fn
}

// Run consumes until ctx is cancelled (returning nil) or reconnecting gives
// up (returning the last connection error).
func (c *Consumer) Run(ctx context.Context) error {
	for {
		ch, deliveries, err := c.connect(ctx)
		if err != nil {
			c.health(false)
			if ctx.Err() != nil {
				return nil
			}
			c.log.Error("Giving up on broker", "attempts", c.reconnect.MaxAttempts, "error", err)
			return fmt.Errorf("identity consumer stopped: %w", err)
		}

		c.health(true)
		c.log.Info("Consuming identity events", "queue", c.topology.Queue)
		err = c.serve(ctx, deliveries)
		c.health(false)
		_ = ch.Close()

		if ctx.Err() != nil {
			c.log.Info("Identity consumer stopped")
			return nil
		}
		c.log.Warn("Broker session lost, reconnecting", "error", err)
	}
}

func (c *Consumer) connect(ctx context.Context) (broker.Channel, <-chan amqp.Delivery, error) {
	type session struct {
		ch         broker.Channel
		deliveries <-chan amqp.Delivery
	}

	policy := &backoff.ExponentialBackOff{
		InitialInterval:     c.reconnect.InitialDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         c.reconnect.MaxDelay,
	}
	s, err := backoff.Retry(ctx, func() (session, error) {
		ch, err := c.source.Channel()
		if err != nil {
			return session{}, err
		}
		deliveries, err := c.declare(ch)
		if err != nil {
			_ = ch.Close()
			return session{}, err
		}
		return session{ch: ch, deliveries: deliveries}, nil
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(c.reconnect.MaxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.log.Warn("Broker connection failed", "error", err, "retryIn", next)
		}),
	)
	if err != nil {
		return nil, nil, err
	}
	return s.ch, s.deliveries, nil
}

func (c *Consumer) declare(ch broker.Channel) (<-chan amqp.Delivery, error) {
	t := c.topology
	if err := ch.ExchangeDeclare(t.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", t.Exchange, err)
	}
	args := amqp.Table{
		"x-message-ttl":          t.MessageTTL.Milliseconds(),
		"x-dead-letter-exchange": t.DeadLetterExchange,
	}
	if _, err := ch.QueueDeclare(t.Queue, true, false, false, false, args); err != nil {
		return nil, fmt.Errorf("failed to declare queue %s: %w", t.Queue, err)
	}
	for _, key := range t.RoutingKeys {
		if err := ch.QueueBind(t.Queue, key, t.Exchange, false, nil); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	if err := ch.Qos(t.Prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set prefetch: %w", err)
	}
	deliveries, err := ch.Consume(t.Queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to consume %s: %w", t.Queue, err)
	}
	return deliveries, nil
}

func (c *Consumer) serve(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errConnectionLost
			}
			c.handle(ctx, d)
		}
	}
}

// handle settles a delivery. A first failure is requeued; a failure on
// redelivery or a malformed message is rejected without requeue so the
// dead-letter exchange takes it.
func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	ev, err := Decode(d.Body)
	if err == nil {
		if ev.Type == "" {
			ev.Type = d.RoutingKey
		}
		err = c.handler.Handle(ctx, ev)
	} else {
		err = fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch {
	case err == nil:
		c.settle(d.Ack(false), d)
	case errors.Is(err, ErrUnknownEvent):
		c.log.Warn("Ignoring event", "type", ev.Type, "messageID", d.MessageId)
		c.settle(d.Ack(false), d)
	case errors.Is(err, ErrMalformed), errors.Is(err, domain.ErrValidation):
		c.log.Error("Dead-lettering malformed event", "messageID", d.MessageId, "error", err)
		c.settle(d.Nack(false, false), d)
	case d.Redelivered:
		c.log.Error("Dead-lettering event after retry", "type", ev.Type, "eventID", ev.ID, "error", err)
		c.settle(d.Nack(false, false), d)
	default:
		c.log.Warn("Requeueing event", "type", ev.Type, "eventID", ev.ID, "error", err)
		c.settle(d.Nack(false, true), d)
	}
}

func (c *Consumer) settle(err error, d amqp.Delivery) {
	if err != nil {
		c.log.Error("Failed to settle delivery", "messageID", d.MessageId, "error", err)
	}
}
