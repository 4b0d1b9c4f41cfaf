// Package broker owns the AMQP connection shared by the event publisher and
// the identity consumer. The connection is dialled on first use, cached, and
// re-dialled after it drops.
package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"club-recruitment-service/internal/domain"
	"club-recruitment-service/internal/logger"
)

// ErrClosed is returned once Close has been called.
var ErrClosed = errors.New("broker client closed")

// Channel is the subset of *amqp.Channel used by this service.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Connection is a live broker connection able to open channels.
type Connection interface {
	Channel() (Channel, error)
	IsClosed() bool
	Close() error
}

// Dialer opens a new connection to url.
type Dialer func(url string) (Connection, error)

// DialAMQP returns a Dialer for a real RabbitMQ broker. Each attempt is
// bounded by timeout.
func DialAMQP(timeout time.Duration) Dialer {
	return func(url string) (Connection, error) {
		conn, err := amqp.DialConfig(url, amqp.Config{
			Dial:      amqp.DefaultDial(timeout),
			Heartbeat: 10 * time.Second,
			Properties: amqp.Table{
				"connection_name": "club-recruitment-service",
			},
		})
		if err != nil {
			return nil, err
		}
		return &amqpConnection{conn: conn}, nil
	}
}

type amqpConnection struct {
	conn *amqp.Connection
}

func (c *amqpConnection) Channel() (Channel, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func (c *amqpConnection) IsClosed() bool { return c.conn.IsClosed() }
func (c *amqpConnection) Close() error   { return c.conn.Close() }

// Client hands out channels on a lazily dialled, cached connection.
type Client struct {
	url  string
	dial Dialer

	mu     sync.Mutex
	conn   Connection
	closed bool
}

func NewClient(url string, dial Dialer) *Client {
	return &Client{url: url, dial: dial}
}

// Channel opens a channel, dialling first when there is no live connection.
func (c *Client) Channel() (Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if c.conn == nil || c.conn.IsClosed() {
		logger.ExternalServiceCall("amqp", "dial")
		conn, err := c.dial(c.url)
		logger.ExternalServiceResult("amqp", "dial", err)
		if err != nil {
			return nil, domain.NewTransportError("failed to connect to broker", err)
		}
		c.conn = conn
	}

	ch, err := c.conn.Channel()
	if err != nil {
		// A connection that cannot open channels is unusable; drop it so the
		// next call re-dials.
		_ = c.conn.Close()
		c.conn = nil
		return nil, domain.NewTransportError("failed to open broker channel", err)
	}
	return ch, nil
}

// Connected reports whether a live connection is cached.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.conn.IsClosed()
}

// Close releases the connection. Channel fails afterwards.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.conn == nil || c.conn.IsClosed() {
		c.conn = nil
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	if err != nil && !errors.Is(err, amqp.ErrClosed) {
		return fmt.Errorf("failed to close broker connection: %w", err)
	}
	return nil
}
