package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/whosaidit/internal/logging"
)

// MailConsumer drains the password reset queue into an outbox file,
// logs/mail.log by default. Actual SMTP delivery is done by whatever tails
// the outbox.
type MailConsumer struct {
	URL string
	Dir string
}

// Run connects, consumes and reconnects with exponential backoff until ctx
// is cancelled.
func (m MailConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(m.URL)
		if err != nil {
			logging.Warn().Err(err).Dur("retry_in", backoff).Msg("mail-consumer: failed to dial broker")
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = m.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logging.Warn().Err(err).Msg("mail-consumer: consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (m MailConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logging.Warn().Err(err).Msg("mail-consumer: set QoS failed")
	}
	if err := declare(ch, PasswordResetQueue); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(PasswordResetQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	logging.Info().Str("queue", PasswordResetQueue).Msg("mail-consumer: consuming")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			m.settle(d)
		}
	}
}

// settle handles one delivery and acks it, or nacks it without requeue so a
// bad message cannot loop.
func (m MailConsumer) settle(d amqp.Delivery) {
	if err := m.handle(d.Body); err != nil {
		logging.Error().Err(err).Msg("mail-consumer: handle message failed")
		if err := d.Nack(false, false); err != nil {
			logging.Warn().Err(err).Uint64("delivery_tag", d.DeliveryTag).Msg("mail-consumer: nack failed")
		}
		return
	}
	if err := d.Ack(false); err != nil {
		logging.Warn().Err(err).Uint64("delivery_tag", d.DeliveryTag).Msg("mail-consumer: ack failed")
	}
}

// handle appends the rendered mail to the outbox file.
func (m MailConsumer) handle(body []byte) error {
	var ev PasswordResetRequestedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Email == "" || ev.ResetURL == "" {
		return errors.New("event missing email or reset_url")
	}

	dir := m.Dir
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "mail.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open outbox: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(renderPasswordReset(ev)); err != nil {
		return fmt.Errorf("write outbox: %w", err)
	}
	logging.Info().Uint64("user_id", ev.UserID).Msg("mail-consumer: password reset mail queued for delivery")
	return nil
}

func renderPasswordReset(ev PasswordResetRequestedEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] to=%s subject=%q\n", ev.RequestedAt.UTC().Format(time.RFC3339), ev.Email, "Password Reset Requested")
	fmt.Fprintf(&b, "  A password reset was requested for your WhoSaidIt account, %s. If this wasn't you, you can safely ignore this email.\n", ev.Username)
	fmt.Fprintf(&b, "  To reset your password, open: %s\n", ev.ResetURL)
	if ev.ExpiresIn > 0 {
		fmt.Fprintf(&b, "  This link will expire after %d minutes.\n", ev.ExpiresIn)
	}
	return b.String()
}

// sleep waits for d or ctx, reporting false when ctx ended first.
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
