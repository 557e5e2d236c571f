package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cleanhub/internal/media/sniffer"
	"cleanhub/internal/service"
	"cleanhub/internal/validation"
)

// Clients that do not know the type send this; the content is sniffed anyway.
const genericContentType = "application/octet-stream"

// UploadAvatar stores the multipart "file" as the caller's profile image.
func (h HandlerSet) UploadAvatar(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var errs validation.Errors
		errs.Add("file", "is required")
		h.respondError(c, errs)
		return
	}
	defer file.Close()

	declared := sniffer.MimeTypeFromHTTP(http.Header(header.Header))
	if declared == genericContentType {
		declared = ""
	}

	user, err := h.avatars.Upload(c.Request.Context(), identity(c).ID, service.AvatarInput{
		File:         file,
		DeclaredType: declared,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, userResponse{User: user.Public()})
}
