package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleStatus reports queue depth, pending drafts/proposals, DLQ count,
// pause state, and the last recorded action, matching
// routes/admin.py's admin_status.
func (s *Server) handleStatus(c *gin.Context) {
	ctx := c.Request.Context()

	queueDepth, err := s.kv.QueueDepth(ctx)
	if err != nil {
		s.internalError(c, err)
		return
	}
	isPaused, err := s.kv.IsPaused(ctx)
	if err != nil {
		s.internalError(c, err)
		return
	}
	pendingDrafts, err := s.store.CountDrafts(ctx, "pending")
	if err != nil {
		s.internalError(c, err)
		return
	}
	dlqCount, err := s.store.CountUnresolvedDeadLetters(ctx)
	if err != nil {
		s.internalError(c, err)
		return
	}
	pendingProposals, err := s.store.CountPendingProposals(ctx)
	if err != nil {
		s.internalError(c, err)
		return
	}

	var lastAction any
	actions, err := s.store.ListActionLogs(ctx, "", 1)
	if err != nil {
		s.internalError(c, err)
		return
	}
	if len(actions) > 0 {
		lastAction = actions[0]
	}

	c.JSON(http.StatusOK, gin.H{
		"queue_depth":       queueDepth,
		"pending_drafts":    pendingDrafts,
		"dlq_count":         dlqCount,
		"pending_proposals": pendingProposals,
		"is_paused":         isPaused,
		"last_action":       lastAction,
	})
}
