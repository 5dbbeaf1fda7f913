// Package api implements the operator-facing admin HTTP surface: status,
// draft/proposal review, DLQ management, config, analytics, and manual
// event injection. Grounded on
// original_source/src/agent1/webhook/routes/admin.py, reusing
// internal/webhook's gin + RequestID-middleware shape rather than
// duplicating it.
package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/sukru-can1/agent1go/internal/approval"
	"github.com/sukru-can1/agent1go/internal/config"
	"github.com/sukru-can1/agent1go/internal/kv"
	"github.com/sukru-can1/agent1go/internal/queue"
	"github.com/sukru-can1/agent1go/internal/store"
	"github.com/sukru-can1/agent1go/internal/webhook"
)

// Server wires the admin routes to the store, queue, and review workflows.
type Server struct {
	store            *store.Store
	kv               *kv.Store
	publisher        *queue.Publisher
	draftReviewer    *approval.DraftReviewer
	proposalReviewer *approval.ProposalReviewer
	cfg              *config.Config
	log              *slog.Logger
}

// NewServer constructs a Server. cfg is used only for the /admin/integrations
// status check and the inject-event defaults.
func NewServer(
	st *store.Store,
	kvStore *kv.Store,
	publisher *queue.Publisher,
	draftReviewer *approval.DraftReviewer,
	proposalReviewer *approval.ProposalReviewer,
	cfg *config.Config,
	log *slog.Logger,
) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		store: st, kv: kvStore, publisher: publisher,
		draftReviewer: draftReviewer, proposalReviewer: proposalReviewer,
		cfg: cfg, log: log,
	}
}

// Router builds the gin engine serving every admin route under /admin, plus
// a top-level /health.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), webhook.RequestID(s.log))

	r.GET("/health", s.handleHealth)

	admin := r.Group("/admin")
	admin.GET("/status", s.handleStatus)
	admin.GET("/drafts", s.handleListDrafts)
	admin.POST("/drafts/:id/approve", s.handleApproveDraft)
	admin.POST("/drafts/:id/reject", s.handleRejectDraft)
	admin.GET("/events", s.handleListEvents)
	admin.GET("/events/:id", s.handleGetEvent)
	admin.POST("/config/:key", s.handleUpdateConfig)
	admin.GET("/config", s.handleListConfig)
	admin.GET("/dlq", s.handleListDLQ)
	admin.POST("/dlq/:id/retry", s.handleRetryDLQ)
	admin.POST("/dlq/:id/resolve", s.handleResolveDLQ)
	admin.POST("/queue/pause", s.handlePauseQueue)
	admin.POST("/queue/resume", s.handleResumeQueue)
	admin.GET("/analytics/daily-costs", s.handleDailyCosts)
	admin.GET("/analytics/approval-rate", s.handleApprovalRate)
	admin.GET("/analytics/response-time", s.handleResponseTime)
	admin.GET("/analytics/summary", s.handleAnalyticsSummary)
	admin.POST("/inject-event", s.handleInjectEvent)
	admin.GET("/knowledge", s.handleListKnowledge)
	admin.POST("/knowledge", s.handleStoreKnowledge)
	admin.GET("/actions", s.handleListActions)
	admin.GET("/actions/:id", s.handleGetAction)
	admin.GET("/chat-history", s.handleChatHistory)
	admin.GET("/integrations", s.handleIntegrations)
	admin.GET("/proposals", s.handleListProposals)
	admin.GET("/proposals/stats", s.handleProposalStats)
	admin.GET("/proposals/:id", s.handleGetProposal)
	admin.POST("/proposals/:id/approve", s.handleApproveProposal)
	admin.POST("/proposals/:id/reject", s.handleRejectProposal)
	admin.GET("/solutions", s.handleListSolutions)

	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
