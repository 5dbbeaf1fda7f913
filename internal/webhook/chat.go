package webhook

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sukru-can1/agent1go/internal/model"
)

type chatWebhookBody struct {
	Type  string `json:"type"`
	Space struct {
		Name string `json:"name"`
	} `json:"space"`
	Message struct {
		Name string `json:"name"`
		Text string `json:"text"`
		Thread struct {
			Name string `json:"name"`
		} `json:"thread"`
	} `json:"message"`
	User struct {
		DisplayName string `json:"displayName"`
		Email       string `json:"email"`
	} `json:"user"`
	Action struct {
		ActionMethodName string           `json:"actionMethodName"`
		Parameters       []map[string]any `json:"parameters"`
	} `json:"action"`
}

// handleChat processes Google Chat's webhook events (messages, card
// clicks, space-added notifications), matching routes/gchat.py.
func (s *Server) handleChat(c *gin.Context) {
	if err := s.ChatVerifier.Verify(c.Request.Context(), c.GetHeader("Authorization")); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var body chatWebhookBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	eventType := body.Type
	if eventType == "" {
		eventType = "MESSAGE"
	}
	s.log.Info("gchat_webhook_received", "event_type", eventType)

	switch eventType {
	case "ADDED_TO_SPACE":
		c.JSON(http.StatusOK, gin.H{"text": "Hello! I'm your ops agent."})
		return

	case "MESSAGE":
		ev := model.NewEvent(model.SourceChat, "chat_user_message", model.PriorityMedium, map[string]any{
			"space_id":     body.Space.Name,
			"thread_id":    body.Message.Thread.Name,
			"sender":       body.User.DisplayName,
			"sender_email": body.User.Email,
			"text":         body.Message.Text,
		})
		ev.IdempotencyKey = "chat:" + body.Message.Name

		if _, err := s.publishIfNew(c.Request.Context(), "chat", ev.IdempotencyKey, ev); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"text": "Processing..."})
		return

	case "CARD_CLICKED":
		ev := model.NewEvent(model.SourceChat, "card_action", model.PriorityHigh, map[string]any{
			"action_method": body.Action.ActionMethodName,
			"parameters":    body.Action.Parameters,
			"space_id":      body.Space.Name,
			"sender":        body.User.DisplayName,
		})
		if _, err := s.publisher.Publish(c.Request.Context(), ev); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"text": "Action received."})
		return

	default:
		c.JSON(http.StatusOK, gin.H{"text": "OK"})
	}
}
