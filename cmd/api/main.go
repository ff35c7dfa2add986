// Command api runs the thin HTTP surface in front of the pipeline: a
// message/attachment upload endpoint that hands off to pkg/ingest, and a
// health check exposing database connectivity.
package main

import (
	"context"
	"database/sql"
	"flag"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"

	"github.com/shopdesk/pipeline/pkg/broker"
	"github.com/shopdesk/pipeline/pkg/config"
	"github.com/shopdesk/pipeline/pkg/database"
	"github.com/shopdesk/pipeline/pkg/ingest"
	"github.com/shopdesk/pipeline/pkg/orchestrator"
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
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v", envPath, err)
	}

	log.Printf("starting %s", version.Full())

	httpPort := getEnv("HTTP_PORT", "8080")
	gin.SetMode(getEnv("GIN_MODE", "debug"))

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

	messages := store.NewMessageStore(db)

	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Broker.Addr,
		Password: cfg.Broker.Password,
		DB:       cfg.Broker.DB,
	})
	defer redisClient.Close()
	b := broker.NewRedisBroker(redisClient)
	orch := orchestrator.New(b, cfg.Defaults.Orchestrator)

	objectStore := newStorage(ctx, cfg.Storage)

	svc := ingest.New(messages, objectStore, orch)

	router := gin.Default()
	router.POST("/messages", uploadHandler(svc))
	router.GET("/health", healthHandler(db))

	srv := &http.Server{Addr: ":" + httpPort, Handler: router}
	go func() {
		slog.Info("http server listening", "port", httpPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received, stopping http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("error during http server shutdown", "error", err)
	}
}

// uploadHandler serves the upload endpoint. The multipart form it accepts has
// one required "source" field, optional "external_id"/"subject"/"from"/
// "body_text" fields, and zero or more "attachments" files.
func uploadHandler(svc *ingest.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		source := c.PostForm("source")
		if source == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "source is required"})
			return
		}

		in := ingest.MessageInput{Source: source}
		if v, ok := c.GetPostForm("external_id"); ok {
			in.ExternalID = &v
		}
		if v, ok := c.GetPostForm("subject"); ok {
			in.Subject = &v
		}
		if v, ok := c.GetPostForm("from"); ok {
			in.FromAddr = &v
		}
		if v, ok := c.GetPostForm("body_text"); ok {
			in.BodyText = &v
		}

		form, err := c.MultipartForm()
		if err == nil {
			for _, fh := range form.File["attachments"] {
				f, err := fh.Open()
				if err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": "could not open attachment " + fh.Filename})
					return
				}
				data, err := io.ReadAll(f)
				f.Close()
				if err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": "could not read attachment " + fh.Filename})
					return
				}
				mime := fh.Header.Get("Content-Type")
				if mime == "" {
					mime = "application/octet-stream"
				}
				in.Attachments = append(in.Attachments, ingest.AttachmentInput{
					Filename: fh.Filename,
					MIME:     mime,
					Data:     data,
				})
			}
		}

		messageID, err := svc.Ingest(c.Request.Context(), in)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{"message_id": messageID})
	}
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

func healthHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		dbHealth, err := database.Health(reqCtx, db)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": dbHealth,
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"database": dbHealth,
		})
	}
}
