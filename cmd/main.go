package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"debtster-collector/internal/clients"
	"debtster-collector/internal/config"
	"debtster-collector/internal/repository"
	"debtster-collector/internal/scheduler"
	"debtster-collector/internal/service"
	"debtster-collector/internal/transport/auth"
	"debtster-collector/internal/transport/rest"
	"debtster-collector/internal/transport/websocket"
	"debtster-collector/pkg/database/postgres"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system env or defaults")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalw("config load failed", "error", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := postgres.NewPostgresConnection(postgres.ConnectionInfo{
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Username: cfg.Postgres.User,
		DBName:   cfg.Postgres.DBName,
		SSLMode:  cfg.Postgres.SSLMode,
		Password: cfg.Postgres.Password,
	})
	if err != nil {
		sugar.Fatalw("postgres init failed", "error", err)
	}
	defer postgres.Close(db)

	var redisClient *clients.RedisClient
	if cfg.Redis.Addr != "" {
		redisClient, err = clients.NewRedisClient(clients.RedisConfig{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			MaxRetries:  cfg.Redis.MaxRetries,
			DialTimeout: time.Duration(cfg.Redis.DialTimeout) * time.Second,
			Timeout:     time.Duration(cfg.Redis.Timeout) * time.Second,
			Prefix:      cfg.Redis.Prefix,
		})
		if err != nil {
			sugar.Fatalw("redis init failed", "error", err)
		}
		defer redisClient.Close()
	} else {
		sugar.Warn("redis not configured: reports and reminder claims disabled")
	}

	var s3Client *clients.S3Client
	if cfg.S3.Endpoint != "" {
		s3Client, err = clients.NewS3Client(ctx, clients.S3Config{
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Bucket:          cfg.S3.Bucket,
			UseSSL:          cfg.S3.UseSSL,
			Region:          cfg.S3.Region,
			Prefix:          cfg.S3.Prefix,
		})
		if err != nil {
			sugar.Fatalw("s3 init failed", "error", err)
		}
	} else {
		sugar.Warn("s3 not configured: report upload disabled")
	}

	whatsapp, err := clients.NewWhatsAppClient(clients.WhatsAppConfig{
		AccountSID: cfg.Twilio.AccountSID,
		AuthToken:  cfg.Twilio.AuthToken,
		FromNumber: cfg.Twilio.FromNumber,
	})
	if err != nil {
		sugar.Fatalw("twilio init failed", "error", err)
	}

	var intel service.TextIntelligence
	if cfg.Gemini.APIKey != "" {
		gemini, err := clients.NewGeminiClient(ctx, clients.GeminiConfig{
			APIKey: cfg.Gemini.APIKey,
			Model:  cfg.Gemini.Model,
		})
		if err != nil {
			sugar.Fatalw("gemini init failed", "error", err)
		}
		intel = gemini
	} else {
		sugar.Warn("gemini not configured: using template messages only")
		intel = clients.NewTemplateIntelligence()
	}

	hub := websocket.NewHub()
	go hub.Run(ctx)
	events := clients.NewEventNotifier(hub)

	debtRepo := repository.NewDebtRepository(db)
	debtorRepo := repository.NewDebtorRepository(db)
	reminderLogRepo := repository.NewReminderLogRepository(db)
	responseLogRepo := repository.NewResponseLogRepository(db)
	tokenRepo := repository.NewPersonalAccessTokenRepository(db)
	userRepo := repository.NewUserRepository(db)

	policy := cfg.ReminderPolicy()
	locks := service.NewDebtLocks()

	ledger := service.NewLedgerService(debtRepo, debtorRepo, policy, cfg.RatingThresholds(), locks, sugar)
	outreach := service.NewOutreachService(
		debtRepo, reminderLogRepo, whatsapp, intel, events,
		policy, cfg.Collection.InterMessageDelay, locks, sugar,
	)
	if redisClient != nil && cfg.Collection.ReminderClaimTTL > 0 {
		outreach = outreach.WithReminderClaims(redisClient, cfg.Collection.ReminderClaimTTL)
	}
	responses := service.NewResponseService(
		debtRepo, responseLogRepo, outreach, whatsapp, intel, events, policy, sugar,
	)

	var reports *service.ReportService
	if redisClient != nil && s3Client != nil {
		reports = service.NewReportService(debtRepo, redisClient, s3Client, events, sugar)
	}

	sched := scheduler.New(ledger, outreach, reports, scheduler.Config{
		ReminderInterval:   cfg.Collection.ReminderSweepInterval,
		EscalationInterval: cfg.Collection.EscalationSweepInterval,
		DailyInterval:      cfg.Collection.DailySweepInterval,
		ReportInterval:     cfg.Collection.ReportSweepInterval,
		InterMessageDelay:  cfg.Collection.InterMessageDelay,
		Timezone:           cfg.Collection.Timezone,
	}, sugar)
	sched.Start(ctx)

	handler := rest.NewHandler(ledger, outreach, responses, reports, userRepo, hub, sugar)
	router := handler.InitRouter(auth.SanctumMiddleware(tokenRepo))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sugar.Infow("http server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("server stopped", "error", err)
	}
	sugar.Info("shutdown complete")
}
