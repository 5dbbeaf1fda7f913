package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

type configUpdateBody struct {
	Value any `json:"value" binding:"required"`
}

func (s *Server) handleUpdateConfig(c *gin.Context) {
	key := c.Param("key")

	var body configUpdateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	encoded, err := json.Marshal(body.Value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.store.SetConfigValue(c.Request.Context(), key, string(encoded)); err != nil {
		s.internalError(c, err)
		return
	}
	s.log.Info("config_updated", "key", key)
	c.JSON(http.StatusOK, gin.H{"key": key, "value": body.Value})
}

func (s *Server) handleListConfig(c *gin.Context) {
	entries, err := s.store.ListConfig(c.Request.Context())
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
