// Command mailer drains the password reset queue into the mail outbox.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/iliyamo/whosaidit/internal/config"
	"github.com/iliyamo/whosaidit/internal/logging"
	"github.com/iliyamo/whosaidit/internal/queue"
)

func main() {
	_ = godotenv.Load()
	logging.Init(logging.Config{Level: os.Getenv("LOG_LEVEL"), Format: os.Getenv("LOG_FORMAT")})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := queue.MailConsumer{URL: config.AMQPURL(), Dir: os.Getenv("MAIL_OUTBOX_DIR")}
	logging.Info().Str("queue", queue.PasswordResetQueue).Msg("mailer started")
	if err := c.Run(ctx); err != nil && ctx.Err() == nil {
		logging.Fatal().Err(err).Msg("mailer stopped")
	}
	logging.Info().Msg("mailer stopped")
}
