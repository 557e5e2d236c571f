package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cleanhub/internal/models"
)

func (h HandlerSet) PendingProfiles(c *gin.Context) {
	filter := models.PendingFilter{
		City:    c.Query("city"),
		Service: c.Query("service"),
	}
	// Unparseable paging falls back to the defaults.
	if v, err := strconv.Atoi(c.Query("page")); err == nil {
		filter.Page = v
	}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil {
		filter.Limit = v
	}

	page, err := h.approvals.ListPending(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

type approveRequest struct {
	AdminNotes string `json:"adminNotes"`
}

func (h HandlerSet) ApproveProfile(c *gin.Context) {
	var req approveRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}

	profile, err := h.approvals.Approve(c.Request.Context(), identity(c).ID, c.Param("id"), req.AdminNotes)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "profile approved", "profile": profile})
}

type rejectRequest struct {
	RejectionReason string `json:"rejectionReason"`
	AdminNotes      string `json:"adminNotes"`
}

func (h HandlerSet) RejectProfile(c *gin.Context) {
	var req rejectRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}

	profile, err := h.approvals.Reject(c.Request.Context(), identity(c).ID, c.Param("id"), req.RejectionReason, req.AdminNotes)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "profile rejected", "profile": profile})
}

func (h HandlerSet) ProfileHistory(c *gin.Context) {
	history, err := h.approvals.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

func (h HandlerSet) VerificationStats(c *gin.Context) {
	stats, err := h.approvals.Stats(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

// bindOptionalJSON accepts an empty body for endpoints whose fields are all optional.
func (h HandlerSet) bindOptionalJSON(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return h.bindJSON(c, dst)
}
