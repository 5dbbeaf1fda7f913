package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleChatHistory returns the most recent dashboard-platform transcript
// turns, matching routes/admin.py's chat_history.
func (s *Server) handleChatHistory(c *gin.Context) {
	limit := queryInt(c, "limit", 20)
	msgs, err := s.store.DashboardChatHistory(c.Request.Context(), limit)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}
