package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/whosaidit/internal/logging"
)

// Publisher sends events to RabbitMQ, dialing once per publish.
type Publisher struct {
	url string
}

func NewPublisher(url string) *Publisher { return &Publisher{url: url} }

// PublishPasswordReset queues a reset mail.
func (p *Publisher) PublishPasswordReset(ctx context.Context, ev PasswordResetRequestedEvent) error {
	id, err := p.publish(ctx, PasswordResetQueue, ev)
	if err != nil {
		logging.Error().Err(err).Uint64("user_id", ev.UserID).Msg("password reset mail not queued")
		return err
	}
	logging.Debug().Str("message_id", id).Uint64("user_id", ev.UserID).Msg("password reset mail queued")
	return nil
}

// publish sends v as persistent JSON on the default exchange and returns
// the message id.
func (p *Publisher) publish(ctx context.Context, queue string, v any) (string, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("rabbitmq: marshal: %w", err)
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return "", fmt.Errorf("rabbitmq: dial: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return "", fmt.Errorf("rabbitmq: channel: %w", err)
	}
	defer ch.Close()

	if err := declare(ch, queue); err != nil {
		return "", fmt.Errorf("rabbitmq: declare %s: %w", queue, err)
	}

	msg := amqp.Publishing{
		MessageId:    uuid.NewString(),
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, msg); err != nil {
		return "", fmt.Errorf("rabbitmq: publish to %s: %w", queue, err)
	}
	return msg.MessageId, nil
}

// declare makes sure the durable queue exists.
func declare(ch *amqp.Channel, queue string) error {
	_, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	return err
}
