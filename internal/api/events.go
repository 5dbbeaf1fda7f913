package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sukru-can1/agent1go/internal/model"
)

func (s *Server) handleListEvents(c *gin.Context) {
	status := c.DefaultQuery("status", "pending")
	limit := queryInt(c, "limit", 50)

	events, err := s.store.ListEventsByStatus(c.Request.Context(), model.Status(status), limit)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (s *Server) handleGetEvent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}
	ev, err := s.store.GetEvent(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}
	c.JSON(http.StatusOK, ev)
}
