package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/backoffice-api/internal/queue"
)

// RabbitPublisher publishes domain events to a durable topic exchange.  The
// connection is opened lazily and re-dialled after the broker closes it;
// publishing never panics and errors are returned so the caller can ignore
// them.
type RabbitPublisher struct {
	url      string
	exchange string
	log      *slog.Logger

	// dialTimeout bounds connecting and the AMQP handshake; after a failed
	// dial no new attempt is made for retryAfter.
	dialTimeout time.Duration
	retryAfter  time.Duration
	now         func() time.Time

	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	nextDial time.Time
}

var errBrokerBackoff = errors.New("rabbitmq: waiting before next dial")

func NewRabbitPublisher(url, exchange string, logger *slog.Logger) *RabbitPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &RabbitPublisher{
		url:         url,
		exchange:    exchange,
		log:         logger,
		dialTimeout: 3 * time.Second,
		retryAfter:  5 * time.Second,
		now:         time.Now,
	}
}

// channel returns an open channel, dialling the broker and declaring the
// exchange when needed.  The caller holds p.mu.
func (p *RabbitPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	if p.conn == nil || p.conn.IsClosed() {
		if p.now().Before(p.nextDial) {
			return nil, errBrokerBackoff
		}
		conn, err := amqp.DialConfig(p.url, amqp.Config{
			Dial:      amqp.DefaultDial(p.dialTimeout),
			Heartbeat: 10 * time.Second,
			Locale:    "en_US",
		})
		if err != nil {
			p.nextDial = p.now().Add(p.retryAfter)
			return nil, fmt.Errorf("rabbitmq dial: %w", err)
		}
		p.nextDial = time.Time{}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel open: %w", err)
	}
	// Durable so the exchange survives broker restarts.
	if err := ch.ExchangeDeclare(p.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}
	p.ch = ch
	return ch, nil
}

// Publish sends ev with routingKey as a persistent JSON message.
func (p *RabbitPublisher) Publish(ctx context.Context, routingKey string, ev queue.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		p.log.Warn("rabbitmq unavailable", "err", err)
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, pub); err != nil {
		// Drop the channel so the next call opens a fresh one.
		_ = ch.Close()
		p.ch = nil
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

// Close releases the channel and the connection.
func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
		p.ch = nil
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
		p.conn = nil
	}
	return errors.Join(errs...)
}
