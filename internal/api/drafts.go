package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sukru-can1/agent1go/internal/model"
)

func (s *Server) handleListDrafts(c *gin.Context) {
	status := c.DefaultQuery("status", "pending")
	limit := queryInt(c, "limit", 20)

	drafts, err := s.store.ListDrafts(c.Request.Context(), model.DraftStatus(status), limit)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, drafts)
}

type draftApproveBody struct {
	EditedBody string `json:"edited_body"`
}

func (s *Server) handleApproveDraft(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid draft id"})
		return
	}

	var body draftApproveBody
	_ = c.ShouldBindJSON(&body)

	ctx := c.Request.Context()
	d, err := s.store.GetDraft(ctx, id)
	if err != nil || d.Status != model.DraftPending {
		c.JSON(http.StatusNotFound, gin.H{"error": "draft not found or not pending"})
		return
	}
	if err := s.draftReviewer.Approve(ctx, id); err != nil {
		s.internalError(c, err)
		return
	}
	if body.EditedBody != "" {
		if err := s.draftReviewer.Edit(ctx, id, body.EditedBody); err != nil {
			s.internalError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "approved", "draft_id": id})
}

func (s *Server) handleRejectDraft(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid draft id"})
		return
	}
	ctx := c.Request.Context()
	d, err := s.store.GetDraft(ctx, id)
	if err != nil || d.Status != model.DraftPending {
		c.JSON(http.StatusNotFound, gin.H{"error": "draft not found or not pending"})
		return
	}
	if err := s.draftReviewer.Reject(ctx, id); err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rejected", "draft_id": id})
}
