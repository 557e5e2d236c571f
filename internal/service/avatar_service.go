package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/rs/zerolog"

	"cleanhub/internal/ids"
	"cleanhub/internal/media/sniffer"
	"cleanhub/internal/models"
	"cleanhub/internal/repository"
	"cleanhub/internal/validation"
)

// AvatarService stores profile images in object storage and records their
// URL on the user.
type AvatarService struct {
	users   UserStore
	store   AvatarStore
	maxSize int64
	log     zerolog.Logger
	now     func() time.Time
}

func NewAvatarService(users UserStore, store AvatarStore, maxSize int64, log zerolog.Logger) *AvatarService {
	return &AvatarService{
		users:   users,
		store:   store,
		maxSize: maxSize,
		log:     log,
		now:     time.Now,
	}
}

type AvatarInput struct {
	File         io.Reader
	DeclaredType string
}

func (s *AvatarService) Upload(ctx context.Context, userID string, input AvatarInput) (models.User, error) {
	if input.File == nil {
		return models.User{}, invalidFile("file is required")
	}

	data, err := io.ReadAll(io.LimitReader(input.File, s.maxSize+1))
	if err != nil {
		return models.User{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return models.User{}, invalidFile("file is empty")
	}
	if int64(len(data)) > s.maxSize {
		return models.User{}, invalidFile(fmt.Sprintf("file exceeds %d bytes", s.maxSize))
	}

	head := data
	if len(head) > sniffer.HeadSize {
		head = head[:sniffer.HeadSize]
	}
	detected, err := sniffer.DetectHead(head)
	if err != nil {
		return models.User{}, invalidFile("file must be a jpeg, png, gif or webp image")
	}
	if input.DeclaredType != "" && input.DeclaredType != detected.MIME {
		return models.User{}, invalidFile(fmt.Sprintf("declared %s but content is %s", input.DeclaredType, detected.MIME))
	}

	key := s.objectKey(ids.New(), detected.Ext())
	url, err := s.store.PutAvatar(ctx, key, data, detected.MIME)
	if err != nil {
		return models.User{}, err
	}

	user, err := s.users.UpdateProfileImage(ctx, userID, url)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, ErrUnauthorized
		}
		return models.User{}, err
	}

	s.log.Info().Str("user_id", userID).Str("object", key).Msg("profile image updated")
	return user, nil
}

func (s *AvatarService) objectKey(id, ext string) string {
	datePrefix := s.now().UTC().Format("2006/01/02")
	return path.Join("avatars", datePrefix, id+"."+ext)
}

func invalidFile(message string) error {
	var errs validation.Errors
	errs.Add("file", message)
	return errs
}
