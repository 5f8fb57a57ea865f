// Package notify announces finished imports on an AMQP topic exchange.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/matchlog/pkg/logger"
	"github.com/okian/matchlog/pkg/metrics"
	"github.com/streadway/amqp"
)

// Defaults for the publisher.
const (
	DefaultExchange    = "matchlog"
	RoutingKeyImported = "match.imported"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("notifier closed")

// Message is the body of a match.imported notification.
type Message struct {
	Event      string    `json:"event"`
	JobID      string    `json:"job_id,omitempty"`
	MatchID    uint      `json:"match_id"`
	Batch      string    `json:"batch"`
	Profile    string    `json:"profile"`
	SourcePath string    `json:"source_path"`
	Events     int       `json:"events"`
	Defects    int       `json:"defects"`
	ImportedAt time.Time `json:"imported_at"`
}

// Notifier publishes import notifications.
type Notifier interface {
	Notify(ctx context.Context, m Message) error
	Close() error
}

// Nop discards every message.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, Message) error { return nil }

// Close implements Notifier.
func (Nop) Close() error { return nil }

// Option configures an AMQPPublisher.
type Option func(*AMQPPublisher)

// WithExchange sets the topic exchange name.
func WithExchange(name string) Option {
	return func(p *AMQPPublisher) {
		if name != "" {
			p.exchange = name
		}
	}
}

// WithLogger sets the publisher logger.
func WithLogger(l logger.Logger) Option {
	return func(p *AMQPPublisher) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithHeartbeat sets the connection heartbeat.
func WithHeartbeat(d time.Duration) Option {
	return func(p *AMQPPublisher) {
		if d > 0 {
			p.heartbeat = d
		}
	}
}

// AMQPPublisher publishes to a durable topic exchange. It connects on first
// use and redials after the connection drops.
type AMQPPublisher struct {
	url       string
	exchange  string
	heartbeat time.Duration
	logger    logger.Logger

	mu     sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed bool
}

// NewAMQPPublisher creates a publisher for url. No connection is made yet.
func NewAMQPPublisher(url string, opts ...Option) *AMQPPublisher {
	p := &AMQPPublisher{
		url:       url,
		exchange:  DefaultExchange,
		heartbeat: 30 * time.Second,
		logger:    logger.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Notify publishes m with the match.imported routing key.
func (p *AMQPPublisher) Notify(ctx context.Context, m Message) error {
	if m.Event == "" {
		m.Event = RoutingKeyImported
	}
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.connect(); err != nil {
		metrics.RecordNotification("error")
		return err
	}

	err = p.ch.Publish(p.exchange, RoutingKeyImported, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    m.JobID,
		Timestamp:    m.ImportedAt,
		Body:         body,
	})
	if err != nil {
		p.reset()
		metrics.RecordNotification("error")
		return fmt.Errorf("publishing %s: %w", RoutingKeyImported, err)
	}
	metrics.RecordNotification("ok")
	p.logger.Debug(ctx, "import notification published",
		logger.String("exchange", p.exchange),
		logger.Int("match_id", int(m.MatchID)),
	)
	return nil
}

// connect dials and declares the exchange. Must be called with p.mu held.
func (p *AMQPPublisher) connect() error {
	if p.ch != nil && p.conn != nil && !p.conn.IsClosed() {
		return nil
	}
	p.reset()

	conn, err := amqp.DialConfig(p.url, amqp.Config{Heartbeat: p.heartbeat, Locale: "en_US"})
	if err != nil {
		return fmt.Errorf("failed to connect to AMQP: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to create channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		p.exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to declare exchange %s: %w", p.exchange, err)
	}
	p.conn, p.ch = conn, ch
	return nil
}

func (p *AMQPPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

// Close closes the connection. Later Notify calls return ErrClosed.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.reset()
	return nil
}
