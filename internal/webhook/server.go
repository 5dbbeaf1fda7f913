package webhook

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sukru-can1/agent1go/internal/kv"
	"github.com/sukru-can1/agent1go/internal/model"
	"github.com/sukru-can1/agent1go/internal/queue"
)

// dedupTTL bounds how long a webhook's per-item dedup mark survives,
// matching internal/poller.DedupTTL's tolerance for a missed redelivery.
const dedupTTL = 48 * time.Hour

// Server wires every provider route onto a gin engine, sharing the same
// dedup-then-publish plumbing internal/poller.Runner uses for pollers
// (spec.md §9 "dedup at publish, uniformly").
type Server struct {
	kv        *kv.Store
	publisher *queue.Publisher
	log       *slog.Logger

	ChatVerifier   ChatVerifier
	TicketingGuard TicketingGuard
}

// NewServer constructs a Server. ChatVerifier/TicketingGuard may be left
// zero-valued (NoopChatVerifier/NoopTicketingGuard) to run unauthenticated,
// matching the original's development-mode skip.
func NewServer(kvStore *kv.Store, publisher *queue.Publisher, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{kv: kvStore, publisher: publisher, log: log, ChatVerifier: NoopChatVerifier{}, TicketingGuard: NoopTicketingGuard{}}
}

// Router builds the gin engine with every webhook route registered under
// /webhooks, plus /health.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(s.log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	group := r.Group("/webhooks")
	group.POST("/mail", s.handleMail)
	group.POST("/chat", s.handleChat)
	group.POST("/ticketing", s.handleTicketing)

	return r
}

// publishIfNew applies the is-duplicate / publish / mark-processed
// sequence shared with internal/poller.Runner, keyed by this server's own
// "webhook" dedup namespace plus the provider name.
func (s *Server) publishIfNew(ctx context.Context, provider, dedupKey string, ev *model.Event) (bool, error) {
	namespace := "webhook:" + provider
	dup, err := s.kv.IsDuplicate(ctx, namespace, dedupKey)
	if err != nil {
		return false, err
	}
	if dup {
		return false, nil
	}
	ok, err := s.publisher.Publish(ctx, ev)
	if err != nil {
		return false, err
	}
	if err := s.kv.MarkProcessed(ctx, namespace, dedupKey, dedupTTL); err != nil {
		return false, err
	}
	return ok, nil
}
