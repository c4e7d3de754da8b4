package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/smartdoc/tracker-api/internal/config"
	"github.com/smartdoc/tracker-api/internal/notifier"
	"github.com/smartdoc/tracker-api/internal/notifier/email"
	"github.com/smartdoc/tracker-api/internal/notifier/telegram"
	"github.com/smartdoc/tracker-api/internal/repository/postgres"
	bindingService "github.com/smartdoc/tracker-api/internal/service/binding"
	"github.com/smartdoc/tracker-api/internal/service/dispatcher"
	taskService "github.com/smartdoc/tracker-api/internal/service/task"
	"github.com/smartdoc/tracker-api/internal/worker"
	"github.com/smartdoc/tracker-api/pkg/logger"
	"github.com/smartdoc/tracker-api/pkg/messaging"
	redisBroker "github.com/smartdoc/tracker-api/pkg/messaging/redis"
	"github.com/smartdoc/tracker-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

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

	m := metrics.New("tracker_worker")

	loc, err := cfg.Notifier.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid notifier timezone")
	}

	hour, minute, err := cfg.Notifier.DailyTime()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid notifier schedule")
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

	var bot *tgbotapi.BotAPI
	if cfg.Chat.BotToken != "" {
		bot, err = tgbotapi.NewBotAPI(cfg.Chat.BotToken)
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if bot != nil {
		bindingSvc := bindingService.NewService(profileRepo, appLogger, m)
		taskSvc := taskService.NewService(eventRepo, projectRepo, profileRepo, appLogger)
		chatRouter := telegram.NewRouter(bot, bindingSvc, taskSvc, appLogger)
		go chatRouter.Run(ctx)
	}

	scheduler := worker.NewScheduler(hour, minute, loc, func(ctx context.Context) error {
		_, err := dispatcherSvc.Run(ctx)
		return err
	}, appLogger)
	go scheduler.Run(ctx)

	setupHealthServer(cfg.Notifier.HealthPort)

	log.Info().
		Str("daily_at", cfg.Notifier.DailyAt).
		Str("timezone", loc.String()).
		Msg("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down worker...")
	cancel()
}

func setupHealthServer(port int) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
			log.Error().Err(err).Msg("health server failed")
			os.Exit(1)
		}
	}()
}
