// Command webhook runs the inbound push-notification receiver: Gmail
// Pub/Sub, Google Chat, and the ticketing desk. Structured after
// cmd/tarsy's flag/env/godotenv bootstrap.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/sukru-can1/agent1go/internal/config"
	"github.com/sukru-can1/agent1go/internal/kv"
	"github.com/sukru-can1/agent1go/internal/queue"
	"github.com/sukru-can1/agent1go/internal/store"
	"github.com/sukru-can1/agent1go/internal/webhook"
)

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	envPath := flag.String("env-file", getEnv("ENV_FILE", ".env"), "Path to .env file")
	flag.Parse()

	if err := godotenv.Load(*envPath); err != nil {
		log.Printf("no .env file loaded from %s: %v", *envPath, err)
	}

	cfg, err := config.Load(*envPath, getEnv("CONFIG_YAML", ""))
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{}))
	slog.SetDefault(logger)

	ctx := context.Background()

	dbCfg, err := store.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("loading database config: %v", err)
	}
	db, err := store.NewStore(ctx, dbCfg)
	if err != nil {
		log.Fatalf("connecting to database: %v", err)
	}
	defer db.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("parsing REDIS_URL: %v", err)
	}
	kvStore := kv.New(redis.NewClient(redisOpts))
	publisher := queue.NewPublisher(kvStore, db)

	srv := webhook.NewServer(kvStore, publisher, logger)
	if len(cfg.Webhook.GoogleAudiences) > 0 {
		srv.ChatVerifier = &webhook.GoogleChatVerifier{Audiences: cfg.Webhook.GoogleAudiences}
	}
	if cfg.Webhook.TicketingSecret != "" {
		srv.TicketingGuard = &webhook.SharedSecretTicketingGuard{Secret: cfg.Webhook.TicketingSecret}
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	addr := cfg.Webhook.Host + ":" + strconv.Itoa(cfg.Webhook.Port)
	logger.Info("webhook_listening", "addr", addr)
	if err := srv.Router().Run(addr); err != nil {
		log.Fatalf("webhook server exited: %v", err)
	}
}
