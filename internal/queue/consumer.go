package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AuditConsumer binds a durable queue to every routing key of the events
// exchange and appends one line per event to <Dir>/events.log.
type AuditConsumer struct {
	URL      string
	Exchange string
	Queue    string
	Dir      string
	Logger   *slog.Logger
}

// Run connects to the broker and consumes until ctx is cancelled.  Lost
// connections are re-dialled with an exponential backoff capped at 30s.
func (a *AuditConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(a.URL)
		if err != nil {
			a.Logger.Warn("audit consumer: dial failed", "err", err, "retry_in", backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = a.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.Logger.Warn("audit consumer: consume loop ended, reconnecting", "err", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

func (a *AuditConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		a.Logger.Warn("audit consumer: set QoS failed", "err", err)
	}
	if err := ch.ExchangeDeclare(a.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	if _, err := ch.QueueDeclare(a.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(a.Queue, "#", a.Exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	msgs, err := ch.Consume(a.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := a.handle(d.Body); err != nil {
				a.Logger.Error("audit consumer: handle message failed", "err", err, "routing_key", d.RoutingKey)
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (a *AuditConsumer) handle(body []byte) error {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line, err := FormatLine(ev)
	if err != nil {
		return err
	}
	return AppendLine(a.Dir, line)
}

// FormatLine renders ev as a single human readable line.
func FormatLine(ev Event) (string, error) {
	actor := "system"
	if ev.ActorID != nil {
		actor = fmt.Sprintf("%d", *ev.ActorID)
	}
	prefix := fmt.Sprintf("[%s] %s | actor=%s", ev.OccurredAt.UTC().Format(time.RFC3339), ev.Type, actor)

	switch ev.Type {
	case OrderCreated, OrderCancelled, OrderStatusChanged:
		var p OrderEvent
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return "", fmt.Errorf("decode %s: %w", ev.Type, err)
		}
		status := p.Status
		if p.OldStatus != "" {
			status = p.OldStatus + "->" + p.Status
		}
		return fmt.Sprintf("%s | order_id=%d | user_id=%d | status=%s | total=%s | lines=%d\n",
			prefix, p.OrderID, p.UserID, status, p.TotalAmount.StringFixed(2), len(p.Lines)), nil
	case ReturnProcessed:
		var p ReturnEvent
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return "", fmt.Errorf("decode %s: %w", ev.Type, err)
		}
		return fmt.Sprintf("%s | return_id=%d | order_item_id=%d | product_id=%d | quantity=%d | status=%s\n",
			prefix, p.ReturnID, p.OrderItemID, p.ProductID, p.Quantity, p.Status), nil
	case DeliveryUpdated:
		var p DeliveryEvent
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return "", fmt.Errorf("decode %s: %w", ev.Type, err)
		}
		return fmt.Sprintf("%s | delivery_id=%d | order_id=%d | tracking=%q | status=%s\n",
			prefix, p.DeliveryID, p.OrderID, p.TrackingNumber, p.Status), nil
	}
	return fmt.Sprintf("%s | payload=%s\n", prefix, string(ev.Payload)), nil
}

// AppendLine appends line to dir/events.log, creating both as needed.
func AppendLine(dir, line string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "events.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
