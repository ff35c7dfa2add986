// Command worker runs the pipeline's queue worker pool: it pulls stage
// tasks off the broker and executes them through the registered handler
// for every stage, fan-out planner, and ticket aggregator.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"

	"github.com/shopdesk/pipeline/pkg/aggregator"
	"github.com/shopdesk/pipeline/pkg/broker"
	"github.com/shopdesk/pipeline/pkg/config"
	"github.com/shopdesk/pipeline/pkg/database"
	"github.com/shopdesk/pipeline/pkg/eventlog"
	"github.com/shopdesk/pipeline/pkg/fanout"
	"github.com/shopdesk/pipeline/pkg/helpdesk"
	"github.com/shopdesk/pipeline/pkg/ml"
	"github.com/shopdesk/pipeline/pkg/queue"
	"github.com/shopdesk/pipeline/pkg/retry"
	"github.com/shopdesk/pipeline/pkg/stages"
	"github.com/shopdesk/pipeline/pkg/storage"
	"github.com/shopdesk/pipeline/pkg/store"
	"github.com/shopdesk/pipeline/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	podID := flag.String("pod-id", getEnv("POD_ID", "worker-0"), "Unique identifier for this worker pod")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v", envPath, err)
	}

	log.Printf("starting %s", version.Full())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("failed to initialize configuration: %v", err)
	}

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("failed to load database config: %v", err)
	}
	db, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	slog.Info("connected to postgres")

	messages := store.NewMessageStore(db)
	events := store.NewEventStore(db)
	tickets := store.NewTicketStore(db)
	log := eventlog.New(events)

	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Broker.Addr,
		Password: cfg.Broker.Password,
		DB:       cfg.Broker.DB,
	})
	defer redisClient.Close()
	b := broker.NewRedisBroker(redisClient)

	objectStore := newStorage(ctx, cfg.Storage)
	hdClient := newHelpdesk(cfg.Helpdesk)

	// Every inference model this pipeline depends on (ASR/DocQA/VQA/
	// Classify) has no real production client in this port — the source
	// system's model-serving stubs are the only implementation available
	// (see DESIGN.md) — so the worker always wires the deterministic
	// sandbox regardless of cfg.StageSandbox. The config toggle is kept so
	// a real model client can be slotted in later without touching the
	// stage handlers.
	model := ml.Sandbox{}

	handlers := stages.Handlers(log, messages, messages,
		stages.ASR{Storage: objectStore, Model: model},
		stages.DocQA{Storage: objectStore, Model: model},
		stages.VQA{Storage: objectStore, Model: model},
		stages.Classify{Model: model},
	)

	planner := fanout.New(log, messages, b)
	handlers[fanout.TaskIngestedFanout] = planner.Handler()

	agg := aggregator.New(log, tickets, hdClient)
	handlers[aggregator.TaskCreateTicket] = agg.Handler()

	policy := retry.FromConfig(cfg.Defaults.Retry)
	pool := queue.NewWorkerPool(*podID, b, cfg.Queue, policy, handlers)
	if err := pool.Start(ctx); err != nil {
		log2 := slog.Default()
		log2.Error("failed to start worker pool", "error", err)
		os.Exit(1)
	}

	slog.Info("worker pool running", "pod_id", *podID, "worker_count", cfg.Queue.WorkerCount)
	<-ctx.Done()
	slog.Info("shutdown signal received, stopping worker pool")
	pool.Stop()
}

func newStorage(ctx context.Context, cfg *config.StorageYAMLConfig) storage.Store {
	if cfg == nil || cfg.Sandbox != "false" {
		slog.Info("storage running in sandbox mode")
		return storage.NewSandbox()
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		log.Fatalf("failed to load aws config: %v", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = &cfg.Endpoint
			o.UsePathStyle = true
		}
	})
	presigner := s3.NewPresignClient(client)
	return storage.NewS3Store(client, presigner, cfg.Bucket)
}

func newHelpdesk(cfg *config.HelpdeskYAMLConfig) helpdesk.Client {
	if cfg == nil || cfg.Sandbox == nil || *cfg.Sandbox {
		slog.Info("helpdesk running in sandbox mode")
		return helpdesk.NewSandbox()
	}
	email := os.Getenv(cfg.EmailEnv)
	token := os.Getenv(cfg.TokenEnv)
	return helpdesk.NewClientWithAPIURL(cfg.BaseURL, email, token)
}
