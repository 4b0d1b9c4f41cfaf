package events

import (
	"context"
	"encoding/json"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"club-recruitment-service/internal/broker"
	"club-recruitment-service/internal/logger"
)

// ChannelSource opens broker channels. *broker.Client implements it.
type ChannelSource interface {
	Channel() (broker.Channel, error)
}

// Publisher sends club events to the topic exchange with the event type as
// routing key. Publishing is fire-and-forget: failures are logged and
// dropped, never returned to the caller.
type Publisher struct {
	source   ChannelSource
	exchange string
	envelope Envelope

	mu sync.Mutex
	ch broker.Channel
}

func NewPublisher(source ChannelSource, exchange string, envelope Envelope) *Publisher {
	return &Publisher{source: source, exchange: exchange, envelope: envelope}
}

func (p *Publisher) Publish(ctx context.Context, eventType string, data any) {
	ev, err := p.envelope.Build(ctx, eventType, data)
	if err != nil {
		logger.Error("Failed to build event", "type", eventType, "error", err)
		return
	}
	body, err := json.Marshal(ev)
	if err != nil {
		logger.Error("Failed to encode event", "type", eventType, "error", err)
		return
	}

	logger.ExternalServiceCall("amqp", "publish", "exchange", p.exchange, "type", eventType, "eventID", ev.ID)
	err = p.send(ctx, eventType, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     ev.ID,
		CorrelationId: ev.CorrelationID,
		Timestamp:     ev.Timestamp,
		Type:          eventType,
		AppId:         ev.Source,
		Body:          body,
	})
	logger.ExternalServiceResult("amqp", "publish", err, "type", eventType, "eventID", ev.ID)
}

func (p *Publisher) send(ctx context.Context, key string, msg amqp.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil {
		ch, err := p.source.Channel()
		if err != nil {
			return err
		}
		if err := ch.ExchangeDeclare(p.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			return err
		}
		p.ch = ch
	}

	if err := p.ch.PublishWithContext(ctx, p.exchange, key, false, false, msg); err != nil {
		// The channel is likely dead; reopen on the next publish.
		_ = p.ch.Close()
		p.ch = nil
		return err
	}
	return nil
}

// Close releases the publishing channel. The broker connection itself is
// owned by the client.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
}
