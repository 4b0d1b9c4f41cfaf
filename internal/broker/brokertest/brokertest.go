// Package brokertest provides in-memory broker connections and channels
// for tests of code built on the broker package.
package brokertest

import (
	"context"
	"errors"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"club-recruitment-service/internal/broker"
)

// Connection is an in-memory broker.Connection.
type Connection struct {
	mu       sync.Mutex
	closed   bool
	channels []*Channel

	// OpenChannel, when set, builds the next channel.
	OpenChannel func() (*Channel, error)
}

func (c *Connection) Channel() (broker.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, amqp.ErrClosed
	}
	ch := NewChannel()
	if c.OpenChannel != nil {
		var err error
		if ch, err = c.OpenChannel(); err != nil {
			return nil, err
		}
	}
	c.channels = append(c.channels, ch)
	return ch, nil
}

func (c *Connection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Drop simulates the broker closing the connection.
func (c *Connection) Drop() {
	c.mu.Lock()
	c.closed = true
	chans := c.channels
	c.mu.Unlock()
	for _, ch := range chans {
		ch.Close()
	}
}

// Channels returns the channels opened so far.
func (c *Connection) Channels() []*Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Channel(nil), c.channels...)
}

// Binding records a QueueBind call.
type Binding struct {
	Queue, Key, Exchange string
}

// Channel is an in-memory broker.Channel. It records declarations and
// publishes, and delivers whatever is sent on Deliveries to the consumer.
type Channel struct {
	mu         sync.Mutex
	closed     bool
	Exchanges  map[string]string
	Queues     map[string]amqp.Table
	Bindings   []Binding
	Prefetch   int
	Published  []amqp.Publishing
	Keys       []string
	Deliveries chan amqp.Delivery

	// PublishErr, when set, is returned by PublishWithContext.
	PublishErr error
}

func NewChannel() *Channel {
	return &Channel{
		Exchanges:  make(map[string]string),
		Queues:     make(map[string]amqp.Table),
		Deliveries: make(chan amqp.Delivery, 16),
	}
}

func (c *Channel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Exchanges[name] = kind
	return nil
}

func (c *Channel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Queues[name] = args
	return amqp.Queue{Name: name}, nil
}

func (c *Channel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Bindings = append(c.Bindings, Binding{Queue: name, Key: key, Exchange: exchange})
	return nil
}

func (c *Channel) Qos(prefetchCount, prefetchSize int, global bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Prefetch = prefetchCount
	return nil
}

func (c *Channel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	if autoAck {
		return nil, errors.New("in-memory channel only supports manual acks")
	}
	return c.Deliveries, nil
}

func (c *Channel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return amqp.ErrClosed
	}
	if c.PublishErr != nil {
		return c.PublishErr
	}
	c.Published = append(c.Published, msg)
	c.Keys = append(c.Keys, key)
	return nil
}

func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Deliveries)
	}
	return nil
}

func (c *Channel) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// PublishedMessages returns a snapshot of what was published.
func (c *Channel) PublishedMessages() ([]string, []amqp.Publishing) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.Keys...), append([]amqp.Publishing(nil), c.Published...)
}

// Acknowledger records how a delivery was settled.
type Acknowledger struct {
	mu      sync.Mutex
	Acked   int
	Nacked  int
	Requeue []bool
}

func (a *Acknowledger) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Acked++
	return nil
}

func (a *Acknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Nacked++
	a.Requeue = append(a.Requeue, requeue)
	return nil
}

func (a *Acknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

// Settled returns the ack and nack counts.
func (a *Acknowledger) Settled() (acked, nacked int, requeue []bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Acked, a.Nacked, append([]bool(nil), a.Requeue...)
}

var (
	_ broker.Connection = (*Connection)(nil)
	_ broker.Channel    = (*Channel)(nil)
	_ amqp.Acknowledger = (*Acknowledger)(nil)
)
