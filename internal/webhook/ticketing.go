package webhook

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sukru-can1/agent1go/internal/model"
)

// ticketingPriorityMap mirrors internal/poller/source.ticketingPriorityMap;
// duplicated here rather than imported to keep webhook and poller
// independently wireable (the same choice made for
// internal/tool/projectmanagement.go's duplicated decode shapes).
var ticketingPriorityMap = map[int]model.Priority{
	4: model.PriorityCritical,
	3: model.PriorityHigh,
	2: model.PriorityMedium,
	1: model.PriorityLow,
}

// handleTicketing processes a ticketing-desk webhook event, matching
// routes/freshdesk.py's freshdesk_webhook.
func (s *Server) handleTicketing(c *gin.Context) {
	if err := s.TicketingGuard.Verify(c.Query("secret"), c.GetHeader("X-Webhook-Secret")); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}

	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ticketID, _ := raw["ticket_id"].(float64)
	action, _ := raw["triggered_event"].(string)
	if action == "" {
		action = "ticket_updated"
	}
	updatedAt, _ := raw["updated_at"].(string)
	ticketPriority := 2
	if p, ok := raw["ticket_priority"].(float64); ok {
		ticketPriority = int(p)
	}

	priority := model.PriorityMedium
	if mapped, ok := ticketingPriorityMap[ticketPriority]; ok {
		priority = mapped
	} else if ticketPriority >= 3 {
		priority = model.PriorityHigh
	}

	s.log.Info("ticketing_webhook_received", "ticket_id", ticketID, "action", action)

	ev := model.NewEvent(model.SourceTicketing, "ticket_"+action, priority, raw)
	ev.IdempotencyKey = fmt.Sprintf("ticketing:%.0f:%s", ticketID, updatedAt)

	if _, err := s.publishIfNew(c.Request.Context(), "ticketing", ev.IdempotencyKey, ev); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}
