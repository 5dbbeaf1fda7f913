package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sukru-can1/agent1go/internal/model"
)

func (s *Server) handleListDLQ(c *gin.Context) {
	limit := queryInt(c, "limit", 20)
	entries, err := s.store.ListDeadLetters(c.Request.Context(), limit)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// handleRetryDLQ re-publishes a dead letter's original event and marks the
// entry resolved, matching queue/dlq.py's retry_dlq_entry.
func (s *Server) handleRetryDLQ(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dlq id"})
		return
	}

	ctx := c.Request.Context()
	dl, err := s.store.GetDeadLetter(ctx, id)
	if err != nil || dl.ResolvedAt != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "DLQ entry not found or already resolved"})
		return
	}

	ev := model.NewEvent(dl.Source, dl.EventType, dl.Priority, dl.Payload)
	if _, err := s.publisher.Publish(ctx, ev); err != nil {
		s.internalError(c, err)
		return
	}
	if err := s.store.ResolveDeadLetter(ctx, id, "admin:retry"); err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "retried"})
}

func (s *Server) handleResolveDLQ(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dlq id"})
		return
	}

	ctx := c.Request.Context()
	dl, err := s.store.GetDeadLetter(ctx, id)
	if err != nil || dl.ResolvedAt != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "DLQ entry not found or already resolved"})
		return
	}
	if err := s.store.ResolveDeadLetter(ctx, id, "admin"); err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "resolved"})
}
