package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sukru-can1/agent1go/internal/model"
)

func (s *Server) handleListKnowledge(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	entries, err := s.store.ListActiveKnowledge(c.Request.Context(), limit)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

type storeKnowledgeBody struct {
	Category string `json:"category"`
	Content  string `json:"content" binding:"required"`
	Source   string `json:"source"`
}

// handleStoreKnowledge records an operator instruction or comment as a
// knowledge entry, matching routes/admin.py's store_knowledge_entry.
func (s *Server) handleStoreKnowledge(c *gin.Context) {
	body := storeKnowledgeBody{Category: "operator_instruction", Source: "dashboard"}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry := &model.KnowledgeEntry{
		ID:         uuid.New(),
		Category:   body.Category,
		Content:    body.Content,
		Source:     body.Source,
		Active:     true,
		Confidence: 1.0,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.InsertKnowledge(c.Request.Context(), entry); err != nil {
		s.internalError(c, err)
		return
	}
	s.log.Info("knowledge_stored", "id", entry.ID, "category", entry.Category)
	c.JSON(http.StatusOK, gin.H{"id": entry.ID, "created_at": entry.CreatedAt})
}
