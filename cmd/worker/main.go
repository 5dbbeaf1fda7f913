// Command worker runs the background event-processing side of the agent:
// the poller scheduler and the queue worker pool that drains events
// through the classify/guardrail/context/reason pipeline. Structured
// after cmd/tarsy's flag/env/godotenv bootstrap.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
	driveapi "google.golang.org/api/drive/v3"
	gmailapi "google.golang.org/api/gmail/v1"
	chatapi "google.golang.org/api/chat/v1"
	googleoption "google.golang.org/api/option"

	"github.com/sukru-can1/agent1go/internal/alert"
	appconfig "github.com/sukru-can1/agent1go/internal/config"
	ctxengine "github.com/sukru-can1/agent1go/internal/context"
	"github.com/sukru-can1/agent1go/internal/classify"
	"github.com/sukru-can1/agent1go/internal/feedback"
	"github.com/sukru-can1/agent1go/internal/guardrail"
	"github.com/sukru-can1/agent1go/internal/kv"
	"github.com/sukru-can1/agent1go/internal/llm"
	"github.com/sukru-can1/agent1go/internal/pattern"
	"github.com/sukru-can1/agent1go/internal/pipeline"
	"github.com/sukru-can1/agent1go/internal/poller"
	"github.com/sukru-can1/agent1go/internal/poller/source"
	"github.com/sukru-can1/agent1go/internal/queue"
	"github.com/sukru-can1/agent1go/internal/reason"
	"github.com/sukru-can1/agent1go/internal/sandbox"
	"github.com/sukru-can1/agent1go/internal/scheduler"
	"github.com/sukru-can1/agent1go/internal/session"
	"github.com/sukru-can1/agent1go/internal/store"
	"github.com/sukru-can1/agent1go/internal/tool"

	dockerclient "github.com/docker/docker/client"
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

	cfg, err := appconfig.Load(*envPath, getEnv("CONFIG_YAML", ""))
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	// --- LLM providers -------------------------------------------------
	clients := map[string]llm.Client{}
	if cfg.AnthropicAPIKey != "" {
		anthropicClient, err := llm.NewAnthropicClient(cfg.AnthropicAPIKey, llm.TierModels{
			Flash: cfg.Gemini.ModelFlash, Fast: cfg.Gemini.ModelFast,
			Default: cfg.Gemini.ModelDefault, Pro: cfg.Gemini.ModelPro,
		})
		if err != nil {
			log.Fatalf("configuring anthropic client: %v", err)
		}
		clients[llm.ProviderAnthropic] = anthropicClient
	}

	var bedrockRuntime *bedrockruntime.Client
	if cfg.AWSRegion != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			log.Fatalf("loading AWS config: %v", err)
		}
		bedrockRuntime = bedrockruntime.NewFromConfig(awsCfg)
		bedrockClient, err := llm.NewBedrockClient(bedrockRuntime, llm.TierModels{
			Flash: cfg.OpenRouter.ModelFlash, Fast: cfg.OpenRouter.ModelFast,
			Default: cfg.OpenRouter.ModelDefault, Pro: cfg.OpenRouter.ModelPro,
		})
		if err != nil {
			log.Fatalf("configuring bedrock client: %v", err)
		}
		clients[llm.ProviderBedrock] = bedrockClient
	}

	defaultProvider := llm.ProviderAnthropic
	if cfg.LLMProvider == "bedrock" || cfg.LLMProvider == "openrouter" {
		defaultProvider = llm.ProviderBedrock
	}
	providers := llm.NewProviderSwitch(kvStore, defaultProvider, clients)

	var embedder llm.Embedder
	if bedrockRuntime != nil {
		embedder = llm.NewBedrockEmbedder(bedrockRuntime, cfg.Voyage.Model)
	}

	// --- Google OAuth2 client, shared across mail/chat/drive -----------
	var googleTokenSource oauth2.TokenSource
	if cfg.Google.RefreshToken != "" {
		oauthCfg := &oauth2.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			Endpoint:     googleOAuthEndpoint(),
		}
		googleTokenSource = oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.Google.RefreshToken})
	}

	// --- Pollers ---------------------------------------------------
	var pollers []poller.Source
	if mailPoller, err := source.NewMail(ctx, source.MailConfig{TokenSource: googleTokenSource}); err != nil {
		log.Fatalf("constructing mail poller: %v", err)
	} else if mailPoller != nil {
		pollers = append(pollers, mailPoller)
	}
	if chatPoller, err := source.NewChat(ctx, source.ChatConfig{
		TokenSource: googleTokenSource, Spaces: cfg.GChat.PollSpaces, UserEmail: cfg.GChat.UserEmail,
	}); err != nil {
		log.Fatalf("constructing chat poller: %v", err)
	} else if chatPoller != nil {
		pollers = append(pollers, chatPoller)
	}
	if drivePoller, err := source.NewDrive(ctx, source.DriveConfig{TokenSource: googleTokenSource}, kvStore, db); err != nil {
		log.Fatalf("constructing drive poller: %v", err)
	} else if drivePoller != nil {
		pollers = append(pollers, drivePoller)
	}
	if ticketingPoller := source.NewTicketing(source.TicketingConfig{
		Domain: cfg.Ticketing.Domain, APIKey: cfg.Ticketing.APIKey,
	}); ticketingPoller != nil {
		pollers = append(pollers, ticketingPoller)
	}
	if pmPoller := source.NewProjectManagement(source.ProjectManagementConfig{
		BaseURL: cfg.ProjectMgmt.BaseURL, APIKey: cfg.ProjectMgmt.APIKey,
	}); pmPoller != nil {
		pollers = append(pollers, pmPoller)
	}

	var surveyPool *pgxpool.Pool
	if cfg.Survey.DatabaseURL != "" {
		surveyPool, err = pgxpool.New(ctx, cfg.Survey.DatabaseURL)
		if err != nil {
			log.Fatalf("connecting to feedback database: %v", err)
		}
		defer surveyPool.Close()
		if surveyPoller := source.NewSurvey(surveyPool); surveyPoller != nil {
			pollers = append(pollers, surveyPoller)
		}
	}

	// --- Tool registry ---------------------------------------------
	guardrails, err := guardrail.New(ctx, kvStore, cfg.RestrictedContacts, toGuardrailRateLimits(cfg.RateLimits))
	if err != nil {
		log.Fatalf("compiling guardrail policy: %v", err)
	}

	registry := tool.New(cfg.BuildCredentialChecker(), guardrails)
	if googleTokenSource != nil {
		if gmailSvc, err := gmailapi.NewService(ctx, googleoption.WithTokenSource(googleTokenSource)); err == nil {
			_ = tool.RegisterMailTools(registry, gmailSvc)
		}
		if driveSvc, err := driveapi.NewService(ctx, googleoption.WithTokenSource(googleTokenSource)); err == nil {
			_ = tool.RegisterDriveTools(registry, driveSvc)
		}
		if chatSvc, err := chatapi.NewService(ctx, googleoption.WithTokenSource(googleTokenSource)); err == nil {
			_ = tool.RegisterChatTools(registry, chatSvc, nil)
		}
	}
	_ = tool.RegisterMemoryTools(registry, db, embedder)
	_ = tool.RegisterTicketingTools(registry, tool.TicketingConfig{Domain: cfg.Ticketing.Domain, APIKey: cfg.Ticketing.APIKey})
	_ = tool.RegisterProjectManagementTools(registry, tool.ProjectManagementConfig{BaseURL: cfg.ProjectMgmt.BaseURL, APIKey: cfg.ProjectMgmt.APIKey})
	if surveyPool != nil {
		_ = tool.RegisterSurveyTools(registry, surveyPool)
	}
	if dockerCli, err := dockerclient.NewClientWithOpts(dockerclient.FromEnv, dockerclient.WithAPIVersionNegotiation()); err == nil {
		sandboxRunner := sandbox.NewRunner(dockerCli, "", 0)
		_ = tool.RegisterAdminTools(registry, db, sandboxRunner)
	}

	// --- Pipeline stages ---------------------------------------------
	classifier := classify.New(pickFastClient(clients), llm.TierFast)
	enricher := ctxengine.New(db, embedder, ctxengine.DefaultConfig())
	reasoner := reason.New(providers, registry)
	sessions := session.New(db, kvStore, providers, session.DefaultConfig())

	handler := pipeline.New(db, classifier, guardrails, enricher, reasoner, sessions, logger)

	queueCfg := queue.DefaultConfig()
	pool := queue.NewWorkerPool(kvStore, db, handler, queueCfg, buildAlertService(cfg))

	// --- Scheduler -----------------------------------------------------
	runner := poller.NewRunner(kvStore, publisher)
	detector := pattern.New(db, kvStore, publisher, surveyPool, logger)
	feedbackAnalyzer := feedback.New(db, logger)
	sched := scheduler.New(scheduler.DefaultConfig(), kvStore, runner, publisher, pollers, detector, detector, feedbackAnalyzer, sessions)

	sched.Start(ctx)
	defer sched.Stop()

	logger.Info("worker_starting", "workers", queueCfg.WorkerCount, "pollers", len(pollers))
	pool.Start(ctx)
	defer pool.Stop()

	<-ctx.Done()
}

func googleOAuthEndpoint() oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:  "https://accounts.google.com/o/oauth2/auth",
		TokenURL: "https://oauth2.googleapis.com/token",
	}
}

func toGuardrailRateLimits(in map[string]appconfig.RateLimit) map[string]guardrail.RateLimit {
	out := make(map[string]guardrail.RateLimit, len(in))
	for k, v := range in {
		out[k] = guardrail.RateLimit{Max: v.Max, Window: v.Window}
	}
	return out
}

func pickFastClient(clients map[string]llm.Client) llm.Client {
	if c, ok := clients[llm.ProviderAnthropic]; ok {
		return c
	}
	for _, c := range clients {
		return c
	}
	return nil
}

func buildAlertService(cfg *appconfig.Config) *alert.Service {
	return alert.NewService(alert.ServiceConfig{Token: cfg.SlackToken, Channel: cfg.SlackChannel})
}
