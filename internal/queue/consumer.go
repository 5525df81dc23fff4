package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// AuditConsumer reads booking events from the status queue and appends
// one line per event to an audit log file.
type AuditConsumer struct {
	url     string
	queue   string
	logPath string
	log     *logrus.Entry
}

// NewAuditConsumer returns a consumer for the broker at url writing to
// logPath (logs/booking.log when empty).
func NewAuditConsumer(url, logPath string) *AuditConsumer {
	if logPath == "" {
		logPath = filepath.Join("logs", "booking.log")
	}
	return &AuditConsumer{
		url:     url,
		queue:   StatusChangedQueue,
		logPath: logPath,
		log:     logrus.WithField("component", "booking-audit"),
	}
}

// Run consumes until ctx is cancelled, reconnecting with exponential
// backoff (1s doubling up to 30s) whenever the broker is unreachable or
// the delivery channel closes.  It returns nil on cancellation.
func (c *AuditConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.WithError(err).Warnf("failed to dial broker; retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return nil
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		c.log.WithError(err).Warn("consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return nil
		}
	}
}

func (c *AuditConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.WithError(err).Warn("set QoS failed")
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	c.log.WithField("queue", c.queue).Info("consuming booking events")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handleMessage(d.Body); err != nil {
				c.log.WithError(err).Error("handle message failed")
				_ = d.Nack(false, false) // reject without requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *AuditConsumer) handleMessage(body []byte) error {
	var ev BookingStatusChangedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.BookingID == "" || !ev.To.Valid() {
		return fmt.Errorf("incomplete event: booking_id=%q to=%q", ev.BookingID, ev.To)
	}
	if err := os.MkdirAll(filepath.Dir(c.logPath), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(c.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(auditLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func auditLine(ev BookingStatusChangedEvent) string {
	from := string(ev.From)
	if from == "" {
		from = "-"
	}
	return fmt.Sprintf("[%s] Booking %s | booking_id=%s | %s -> %s | product=%q | customer_id=%s | actor=%s/%s | total=%d\n",
		ev.OccurredAt.UTC().Format(time.RFC3339), ev.To.Display().Label, ev.BookingID, from, ev.To,
		ev.ProductName, ev.CustomerID, ev.ActorRole, ev.ActorID, ev.TotalPrice)
}

// sleep waits for d or until ctx is done.  It reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
