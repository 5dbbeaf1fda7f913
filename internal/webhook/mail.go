package webhook

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sukru-can1/agent1go/internal/model"
)

// pubsubPushBody is the envelope Google Cloud Pub/Sub wraps a Gmail
// watch() notification in.
type pubsubPushBody struct {
	Message struct {
		Data string `json:"data"`
	} `json:"message"`
}

type gmailPushData struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    string `json:"historyId"`
}

// handleMail processes Gmail's Pub/Sub push notification, matching
// routes/gmail_push.py's gmail_push.
func (s *Server) handleMail(c *gin.Context) {
	var body pubsubPushBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if body.Message.Data == "" {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	decoded, err := base64.StdEncoding.DecodeString(body.Message.Data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pubsub payload"})
		return
	}
	var data gmailPushData
	if err := json.Unmarshal(decoded, &data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pubsub payload"})
		return
	}

	s.log.Info("gmail_push_received", "email", data.EmailAddress, "history_id", data.HistoryID)

	ev := model.NewEvent(model.SourceMail, "mail_notification", model.PriorityHigh, map[string]any{
		"email_address": data.EmailAddress,
		"history_id":    data.HistoryID,
	})
	ev.IdempotencyKey = "mail:history:" + data.HistoryID

	if _, err := s.publishIfNew(c.Request.Context(), "mail", ev.IdempotencyKey, ev); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
