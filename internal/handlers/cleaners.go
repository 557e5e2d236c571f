package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cleanhub/internal/models"
	"cleanhub/internal/service"
	"cleanhub/internal/validation"
)

type profileResponse struct {
	Profile models.CleanerProfile `json:"profile"`
}

// CreateProfile is open to any signed-in user; the profile starts pending.
func (h HandlerSet) CreateProfile(c *gin.Context) {
	var req service.ProfileInput
	if !h.bindJSON(c, &req) {
		return
	}

	profile, err := h.profiles.Create(c.Request.Context(), identity(c).ID, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, profileResponse{Profile: profile})
}

func (h HandlerSet) OwnProfile(c *gin.Context) {
	profile, err := h.profiles.Own(c.Request.Context(), identity(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profileResponse{Profile: profile})
}

func (h HandlerSet) UpdateProfile(c *gin.Context) {
	var req service.ProfileUpdate
	if !h.bindJSON(c, &req) {
		return
	}

	profile, err := h.profiles.Update(c.Request.Context(), identity(c).ID, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profileResponse{Profile: profile})
}

func (h HandlerSet) ListCleaners(c *gin.Context) {
	filter := models.CleanerFilter{
		City:    c.Query("city"),
		Service: c.Query("service"),
	}
	if raw := c.Query("minRating"); raw != "" {
		rating, err := strconv.ParseFloat(raw, 64)
		if err != nil || rating < 0 || rating > 5 {
			var errs validation.Errors
			errs.Add("minRating", "must be a number between 0 and 5")
			h.respondError(c, errs)
			return
		}
		filter.MinRating = rating
	}

	cleaners, err := h.profiles.List(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleaners": cleaners, "count": len(cleaners)})
}

func (h HandlerSet) GetCleaner(c *gin.Context) {
	profile, err := h.profiles.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profileResponse{Profile: profile})
}
