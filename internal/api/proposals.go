package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sukru-can1/agent1go/internal/model"
)

func (s *Server) handleListProposals(c *gin.Context) {
	status := c.DefaultQuery("status", "pending")
	typeFilter := c.Query("type")
	limit := queryInt(c, "limit", 20)

	proposals, err := s.store.ListProposals(c.Request.Context(), model.ProposalStatus(status), limit)
	if err != nil {
		s.internalError(c, err)
		return
	}
	if typeFilter != "" {
		filtered := make([]*model.Proposal, 0, len(proposals))
		for _, p := range proposals {
			if string(p.Type) == typeFilter {
				filtered = append(filtered, p)
			}
		}
		proposals = filtered
	}
	c.JSON(http.StatusOK, proposals)
}

func (s *Server) handleProposalStats(c *gin.Context) {
	stats, err := s.store.ProposalStats(c.Request.Context())
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleGetProposal(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proposal id"})
		return
	}
	p, err := s.store.GetProposal(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "proposal not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

type proposalApproveBody struct {
	Notes           string `json:"notes"`
	EditedDescription string `json:"edited_description"`
}

func (s *Server) handleApproveProposal(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proposal id"})
		return
	}
	var body proposalApproveBody
	_ = c.ShouldBindJSON(&body)

	if err := s.proposalReviewer.Approve(c.Request.Context(), id, "admin", body.Notes, body.EditedDescription); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "proposal not found or not pending"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "approved", "proposal_id": id})
}

type proposalRejectBody struct {
	Reason string `json:"reason"`
}

func (s *Server) handleRejectProposal(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proposal id"})
		return
	}
	var body proposalRejectBody
	_ = c.ShouldBindJSON(&body)

	if err := s.proposalReviewer.Reject(c.Request.Context(), id, "admin", body.Reason); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "proposal not found or not pending"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rejected", "proposal_id": id})
}

func (s *Server) handleListSolutions(c *gin.Context) {
	typeFilter := c.Query("type")
	solutions, err := s.store.ListActiveSolutions(c.Request.Context())
	if err != nil {
		s.internalError(c, err)
		return
	}
	if typeFilter != "" {
		filtered := make([]*model.Solution, 0, len(solutions))
		for _, sol := range solutions {
			if string(sol.Type) == typeFilter {
				filtered = append(filtered, sol)
			}
		}
		solutions = filtered
	}
	c.JSON(http.StatusOK, solutions)
}
