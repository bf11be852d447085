package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/iliyamo/whosaidit/internal/config"
	"github.com/iliyamo/whosaidit/internal/database"
	"github.com/iliyamo/whosaidit/internal/handler"
	"github.com/iliyamo/whosaidit/internal/logging"
	"github.com/iliyamo/whosaidit/internal/middleware"
	"github.com/iliyamo/whosaidit/internal/queue"
	"github.com/iliyamo/whosaidit/internal/repository"
	"github.com/iliyamo/whosaidit/internal/router"
	"github.com/iliyamo/whosaidit/internal/security"
	"github.com/iliyamo/whosaidit/internal/service"
)

func main() {
	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logging.Fatal().Err(err).Msg("open db failed")
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	groupChats := repository.NewGroupChatRepo(db)
	participants := repository.NewParticipantRepo(db)
	messages := repository.NewMessageRepo(db)
	quizzes := repository.NewQuizRepo(db)
	leaderboard := repository.NewLeaderboardRepo(db)

	codec, err := security.NewCodec(cfg.JWTSecret)
	if err != nil {
		logging.Fatal().Err(err).Msg("token codec")
	}
	issuer := security.NewIssuer(codec, security.TTLs{
		Access:        cfg.AccessTTL(),
		Refresh:       cfg.RefreshTTL(),
		PasswordReset: cfg.PasswordResetTTL(),
	})
	resolver := security.NewResolver(codec, users)
	policy := security.NewPolicy(security.PolicyDeps{
		Quizzes: quizzes,
		Oracles: security.Oracles{
			GroupChats:   groupChats,
			Messages:     messages,
			Participants: participants,
			Leaderboard:  leaderboard,
		},
		QuizOwners: quizzes,
	})

	authSvc := service.NewAuthService(users, quizzes, issuer, resolver,
		queue.NewPublisher(cfg.AMQPURL), service.AuthConfig{
			BcryptCost:       cfg.BcryptCost,
			FrontendURL:      cfg.FrontendURL,
			PasswordResetTTL: cfg.PasswordResetTTL(),
		})

	rdb := config.NewRedisClient()
	if rdb == nil {
		logging.Warn().Msg("redis unavailable, auth rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	e := router.New(router.Deps{
		Resolver:    resolver,
		Decider:     policy,
		RateLimit:   middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		CORSOrigins: cfg.CORSOrigins,
	}, handler.NewAuthHandler(authSvc), &handler.ResourceHandler{
		Users:        users,
		GroupChats:   groupChats,
		Participants: participants,
		Messages:     messages,
		Quizzes:      quizzes,
		Leaderboard:  leaderboard,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.Port
	go func() {
		logging.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("shutdown")
	}
	logging.Info().Msg("stopped")
}
