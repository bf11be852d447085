// Package queue carries outbound mail over RabbitMQ: event payloads, the
// publisher used by the API and the consumer run by cmd/mailer.
package queue

import "time"

// PasswordResetQueue is the durable queue password reset mails go through.
const PasswordResetQueue = "mail.password-reset"

// PasswordResetRequestedEvent is published when a user asks for a reset
// link. It carries everything needed to render the mail so the consumer
// never touches the database.
type PasswordResetRequestedEvent struct {
	UserID      uint64    `json:"user_id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	ResetURL    string    `json:"reset_url"`
	ExpiresIn   int       `json:"expires_in_minutes"`
	RequestedAt time.Time `json:"requested_at"`
}
