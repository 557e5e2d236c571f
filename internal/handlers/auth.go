package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cleanhub/internal/models"
	"cleanhub/internal/service"
)

type userResponse struct {
	User models.PublicUser `json:"user"`
}

func (h HandlerSet) RegisterUser(c *gin.Context) {
	var req service.RegisterInput
	if !h.bindJSON(c, &req) {
		return
	}

	session, err := h.accounts.Register(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.sendSession(c, http.StatusCreated, session)
}

func (h HandlerSet) Login(c *gin.Context) {
	var req service.LoginInput
	if !h.bindJSON(c, &req) {
		return
	}

	session, err := h.accounts.Login(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.sendSession(c, http.StatusOK, session)
}

// Logout always succeeds; the token itself stays valid until it expires.
func (h HandlerSet) Logout(c *gin.Context) {
	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h HandlerSet) sendSession(c *gin.Context, status int, session service.Session) {
	h.setSessionCookie(c, session.Token, h.accounts.TokenTTL())
	c.JSON(status, userResponse{User: session.User.Public()})
}

func (h HandlerSet) Me(c *gin.Context) {
	user, err := h.accounts.Me(c.Request.Context(), identity(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, userResponse{User: user.Public()})
}

func (h HandlerSet) UpdateMe(c *gin.Context) {
	var req service.UpdateMeInput
	if !h.bindJSON(c, &req) {
		return
	}

	user, err := h.accounts.UpdateName(c.Request.Context(), identity(c).ID, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, userResponse{User: user.Public()})
}

func (h HandlerSet) RegisterDeviceToken(c *gin.Context) {
	var req service.DeviceTokenInput
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.accounts.RegisterDeviceToken(c.Request.Context(), identity(c).ID, req); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) RemoveDeviceToken(c *gin.Context) {
	if err := h.accounts.RemoveDeviceToken(c.Request.Context(), identity(c).ID, c.Param("token")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
