package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sukru-can1/agent1go/internal/model"
)

type injectEventBody struct {
	Source    string `json:"source"`
	EventType string `json:"event_type"`
	Text      string `json:"text" binding:"required"`
	Space     string `json:"space"`
	Thread    string `json:"thread"`
}

// handleInjectEvent manually queues an event, used by the operator
// dashboard's chat box and for exercising a source end-to-end, matching
// routes/admin.py's inject_event.
func (s *Server) handleInjectEvent(c *gin.Context) {
	body := injectEventBody{Source: "chat", EventType: "chat_message"}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var ev *model.Event
	if body.Source == string(model.SourceDashboard) {
		ev = model.NewEvent(model.SourceDashboard, body.EventType, model.PriorityHigh, map[string]any{
			"text":         body.Text,
			"sender":       "Dashboard",
			"sender_email": s.cfg.GmailUserEmail,
		})
	} else {
		space := body.Space
		if space == "" {
			space = s.cfg.GChat.DMAdmin
		}
		ev = model.NewEvent(model.Source(body.Source), body.EventType, model.PriorityHigh, map[string]any{
			"text":         body.Text,
			"space":        space,
			"thread":       body.Thread,
			"sender":       "Admin (test)",
			"sender_email": s.cfg.GmailUserEmail,
		})
	}

	published, err := s.publisher.Publish(c.Request.Context(), ev)
	if err != nil {
		s.internalError(c, err)
		return
	}
	if !published {
		c.JSON(http.StatusOK, gin.H{"status": "deduped", "event_id": ev.ID})
		return
	}
	s.log.Info("event_injected", "event_id", ev.ID, "source", body.Source)
	c.JSON(http.StatusOK, gin.H{"status": "published", "event_id": ev.ID})
}
