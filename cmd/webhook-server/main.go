// cmd/webhook-server/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/gofiber/fiber/v2"

	"visaflow/internal/audit"
	"visaflow/internal/common/aws"
	"visaflow/internal/common/config"
	"visaflow/internal/common/database"
	"visaflow/internal/common/logger"
	"visaflow/internal/common/observability"
	"visaflow/internal/pipeline/dedup"
	"visaflow/internal/pipeline/lock"
	"visaflow/internal/pipeline/notify"
	"visaflow/internal/pipeline/transition"
	"visaflow/internal/pipeline/verify"
	"visaflow/internal/store"
	"visaflow/internal/webhook"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting webhook server...",
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New("webhook-server")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Application Record Store ---
	var appStore store.Store
	if cfg.Database.Firestore.ProjectID != "" {
		var fs *database.FirestoreClient
		err = retryWithBackoff(func() error {
			var err error
			fs, err = database.NewFirestore(ctx, cfg.Database.Firestore)
			return err
		}, 10, 2*time.Second, zapLog, "Firestore client initialization")
		if err != nil {
			zapLog.Fatal("firestore failed after retries", zap.Error(err))
		}
		defer fs.Close()
		appStore = store.NewFirestore(fs.Client, cfg.Database.Firestore.Collection)
		zapLog.Info("Firestore connected successfully")
	} else {
		// Local development fallback; nothing survives a restart.
		appStore = store.NewMemory()
		zapLog.Warn("no Firestore project configured, using in-memory store")
	}

	// --- Init PostgreSQL notification log (optional) ---
	var records *notify.Log
	if cfg.Database.Postgres.Host != "" {
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		records = notify.NewLog(pg.DB)
		zapLog.Info("PostgreSQL connected successfully")
	}

	// --- Init Redis dedup cache (optional) ---
	var cache *dedup.Cache
	if cfg.Database.Redis.Address != "" {
		var rds *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rds, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rds.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rds.Close()
		cache = dedup.NewCache(rds.Client, cfg.Pipeline.DedupTTL, log)
		zapLog.Info("Redis connected successfully")
	}

	// --- Init Elasticsearch delivery audit (optional) ---
	var auditor *audit.Recorder
	if len(cfg.Database.Elasticsearch.Addresses) > 0 {
		var es *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		auditor = audit.NewRecorder(es.Client, cfg.Database.Elasticsearch.AuditIndex, log)
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Init AWS clients ---
	awsClients, err := aws.NewClients(ctx, cfg.Notifications.AWS.Region)
	if err != nil {
		zapLog.Fatal("aws client initialization failed", zap.Error(err))
	}

	// --- Assemble the pipeline ---
	locks := lock.NewManager(appStore, log, cfg.Pipeline.LockTTL)
	dispatcher := notify.NewDispatcher(notify.Config{
		Enabled:     cfg.Notifications.Email.Enabled,
		FromEmail:   cfg.Notifications.Email.FromEmail,
		AdminEmail:  cfg.Notifications.Email.AdminEmail,
		SiteBaseURL: cfg.Notifications.SiteBaseURL,
	}, awsClients.SES, records, log)
	alerter := notify.NewAlerter(awsClients.SNS, cfg.Notifications.Alerts.TopicARN, log)

	pipeline := webhook.NewPipeline(webhook.PipelineParams{
		Verifier:   verify.NewVerifier(cfg.Stripe.WebhookSecret, log),
		Cache:      cache,
		Locks:      locks,
		Store:      appStore,
		Dispatcher: dispatcher,
		Applier:    transition.NewApplier(appStore, log),
		Alerter:    alerter,
		Auditor:    auditor,
		Obs:        obs,
		Logger:     log,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Millisecond,
	})
	handler := webhook.NewHandler(pipeline, time.Duration(cfg.Pipeline.Timeout)*time.Millisecond, log)
	handler.Register(app)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		zapLog.Info("HTTP server listening", zap.String("addr", addr))
		if err := app.Listen(addr); err != nil {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLog.Info("Shutting down webhook server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		zapLog.Error("server shutdown failed", zap.Error(err))
	}
	zapLog.Info("Webhook server stopped")
}
