package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cleanhub/internal/service"
)

func (h HandlerSet) CreateBooking(c *gin.Context) {
	var req service.CreateBookingInput
	if !h.bindJSON(c, &req) {
		return
	}

	booking, err := h.bookings.Create(c.Request.Context(), identity(c).ID, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"booking": booking})
}

func (h HandlerSet) ListBookings(c *gin.Context) {
	bookings, err := h.bookings.List(c.Request.Context(), identity(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

func (h HandlerSet) GetTracking(c *gin.Context) {
	tracking, err := h.bookings.Tracking(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tracking": tracking})
}

func (h HandlerSet) UpdateTracking(c *gin.Context) {
	var req service.TrackingInput
	if !h.bindJSON(c, &req) {
		return
	}

	tracking, err := h.bookings.UpdateTracking(c.Request.Context(), identity(c), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tracking": tracking})
}

func (h HandlerSet) CancelBooking(c *gin.Context) {
	booking, err := h.bookings.Cancel(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}
