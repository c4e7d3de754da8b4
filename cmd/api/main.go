package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/smartdoc/tracker-api/internal/config"
	"github.com/smartdoc/tracker-api/internal/handler"
	bindingHandler "github.com/smartdoc/tracker-api/internal/handler/binding"
	notificationHandler "github.com/smartdoc/tracker-api/internal/handler/notification"
	settingsHandler "github.com/smartdoc/tracker-api/internal/handler/settings"
	"github.com/smartdoc/tracker-api/internal/middleware"
	"github.com/smartdoc/tracker-api/internal/notifier"
	"github.com/smartdoc/tracker-api/internal/notifier/email"
	"github.com/smartdoc/tracker-api/internal/notifier/telegram"
	"github.com/smartdoc/tracker-api/internal/repository/postgres"
	"github.com/smartdoc/tracker-api/internal/router"
	bindingService "github.com/smartdoc/tracker-api/internal/service/binding"
	"github.com/smartdoc/tracker-api/internal/service/dispatcher"
	"github.com/smartdoc/tracker-api/pkg/logger"
	"github.com/smartdoc/tracker-api/pkg/messaging"
	redisBroker "github.com/smartdoc/tracker-api/pkg/messaging/redis"
	"github.com/smartdoc/tracker-api/pkg/metrics"
	"github.com/smartdoc/tracker-api/pkg/validator"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	if err := validator.Register(); err != nil {
		log.Fatal().Err(err).Msg("failed to register validations")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	base := postgres.NewBaseRepository(db)
	eventRepo := postgres.NewEventRepository(base)
	projectRepo := postgres.NewProjectRepository(base)
	ruleRepo := postgres.NewRuleRepository(base)
	logRepo := postgres.NewNotificationLogRepository(base)
	profileRepo := postgres.NewProfileRepository(base)
	settingsRepo := postgres.NewSettingsRepository(base)

	m := metrics.New("tracker")

	loc, err := cfg.Notifier.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid notifier timezone")
	}

	var broker messaging.Broker
	if cfg.Redis.URL != "" {
		broker, err = redisBroker.NewRedisBroker(redisBroker.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, &log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer broker.Close()
	}

	senders := []notifier.Sender{
		email.New(cfg.Email, settingsRepo, appLogger),
	}
	if cfg.Chat.BotToken != "" {
		bot, err := tgbotapi.NewBotAPI(cfg.Chat.BotToken)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize chat bot")
		}
		senders = append(senders, telegram.NewSender(bot, appLogger))
	}

	dispatcherSvc := dispatcher.NewService(
		eventRepo, projectRepo, ruleRepo, logRepo,
		senders, broker, appLogger, m,
		dispatcher.Options{
			Location:    loc,
			Workers:     cfg.Notifier.Workers,
			SendTimeout: cfg.Notifier.SendTimeout,
		},
	)

	bindingSvc := bindingService.NewService(profileRepo, appLogger, m)

	authMiddleware := middleware.NewAuthMiddleware(cfg.Auth.TokenSecret)

	h := handler.NewHandler()
	notificationH := notificationHandler.NewHandler(ruleRepo, logRepo, dispatcherSvc)
	bindingH := bindingHandler.NewHandler(bindingSvc)
	settingsH := settingsHandler.NewHandler(settingsRepo)

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.Server.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
	}

	r := router.NewRouter(
		authMiddleware,
		notificationH,
		bindingH,
		settingsH,
		h,
		router.RouterConfig{
			RateLimit:     rate.Limit(cfg.Server.RateLimitRPS),
			RateBurst:     cfg.Server.RateLimitBurst,
			CORSConfig:    corsConfig,
			MetricsPrefix: "tracker_api",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
