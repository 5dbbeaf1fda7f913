// Command api runs the operator-facing admin HTTP server: status, draft and
// proposal review, DLQ management, config, and analytics. Structured after
// cmd/tarsy's flag/env/godotenv bootstrap.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/sukru-can1/agent1go/internal/api"
	"github.com/sukru-can1/agent1go/internal/approval"
	"github.com/sukru-can1/agent1go/internal/config"
	"github.com/sukru-can1/agent1go/internal/kv"
	"github.com/sukru-can1/agent1go/internal/queue"
	"github.com/sukru-can1/agent1go/internal/store"
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
	draftReviewer := approval.NewDraftReviewer(db, nil)
	proposalReviewer := approval.NewProposalReviewer(db, nil, publisher, nil)

	srv := api.NewServer(db, kvStore, publisher, draftReviewer, proposalReviewer, cfg, logger)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	addr := getEnv("ADMIN_API_ADDR", ":8090")
	logger.Info("admin_api_listening", "addr", addr)
	if err := srv.Router().Run(addr); err != nil {
		log.Fatalf("admin API server exited: %v", err)
	}
}
