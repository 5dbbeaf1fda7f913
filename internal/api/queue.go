package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) handlePauseQueue(c *gin.Context) {
	if err := s.kv.Pause(c.Request.Context()); err != nil {
		s.internalError(c, err)
		return
	}
	s.log.Info("queue_paused")
	c.JSON(http.StatusOK, gin.H{"status": "paused"})
}

func (s *Server) handleResumeQueue(c *gin.Context) {
	if err := s.kv.Resume(c.Request.Context()); err != nil {
		s.internalError(c, err)
		return
	}
	s.log.Info("queue_resumed")
	c.JSON(http.StatusOK, gin.H{"status": "resumed"})
}
