package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"cleanhub/internal/ids"
	"cleanhub/internal/models"
	"cleanhub/internal/repository"
	"cleanhub/internal/security"
	"cleanhub/internal/validation"
)

type AuthService struct {
	users   UserStore
	devices DeviceTokenStore
	tokens  *security.TokenService
	hasher  Passwords
	log     zerolog.Logger
	now     func() time.Time
}

func NewAuthService(
	users UserStore,
	devices DeviceTokenStore,
	tokens *security.TokenService,
	hasher Passwords,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:   users,
		devices: devices,
		tokens:  tokens,
		hasher:  hasher,
		log:     log,
		now:     time.Now,
	}
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Phone    string `json:"phone" validate:"required,kephone"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,role"`
}

type LoginInput struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// Session is a freshly issued token and the user it belongs to.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      models.User
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (Session, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Phone = strings.TrimSpace(input.Phone)
	if err := validation.Struct(input); err != nil {
		return Session{}, err
	}

	role, err := models.ParseUserRole(input.Role)
	if err != nil {
		return Session{}, err
	}

	if _, err := s.users.FindByPhone(ctx, input.Phone); err == nil {
		return Session{}, conflict("phone number already registered")
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return Session{}, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return Session{}, err
	}

	now := s.now().UTC()
	user := models.User{
		ID:           ids.New(),
		Name:         input.Name,
		Phone:        input.Phone,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicatePhone) {
			return Session{}, conflict("phone number already registered")
		}
		return Session{}, err
	}

	s.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("user registered")
	return s.issue(user)
}

// Login resolves the identifier as a phone number when it looks like one and
// as a display name otherwise. Unknown users and wrong passwords produce the
// same error.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (Session, error) {
	input.Identifier = strings.TrimSpace(input.Identifier)
	if err := validation.Struct(input); err != nil {
		return Session{}, err
	}

	var (
		user models.User
		err  error
	)
	if validation.IsPhone(input.Identifier) {
		user, err = s.users.FindByPhone(ctx, input.Identifier)
	} else {
		user, err = s.users.FindByName(ctx, input.Identifier)
	}
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.hasher.VerifyDummy(input.Password)
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}

	ok, err := s.hasher.Verify(input.Password, user.PasswordHash)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("stored password hash unreadable")
		return Session{}, ErrInvalidCredentials
	}
	if !ok {
		return Session{}, ErrInvalidCredentials
	}

	return s.issue(user)
}

// Authenticate resolves a session token to the user it was issued for.
// Token errors from the security package are returned as is.
func (s *AuthService) Authenticate(ctx context.Context, token string) (models.User, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return models.User{}, err
	}
	return s.Me(ctx, userID)
}

func (s *AuthService) Me(ctx context.Context, userID string) (models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, ErrUnauthorized
		}
		return models.User{}, err
	}
	return user, nil
}

type UpdateMeInput struct {
	Name string `json:"name" validate:"required,min=2,max=50"`
}

func (s *AuthService) UpdateName(ctx context.Context, userID string, input UpdateMeInput) (models.User, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validation.Struct(input); err != nil {
		return models.User{}, err
	}
	user, err := s.users.UpdateName(ctx, userID, input.Name)
	if errors.Is(err, repository.ErrUserNotFound) {
		return models.User{}, ErrUnauthorized
	}
	return user, err
}

type DeviceTokenInput struct {
	Token    string `json:"token" validate:"required,max=512"`
	Platform string `json:"platform" validate:"omitempty,oneof=android ios web"`
}

func (s *AuthService) RegisterDeviceToken(ctx context.Context, userID string, input DeviceTokenInput) error {
	input.Token = strings.TrimSpace(input.Token)
	if err := validation.Struct(input); err != nil {
		return err
	}
	return s.devices.Upsert(ctx, models.DeviceToken{
		UserID:   userID,
		Token:    input.Token,
		Platform: input.Platform,
	})
}

func (s *AuthService) RemoveDeviceToken(ctx context.Context, userID string, token string) error {
	err := s.devices.Delete(ctx, userID, token)
	if errors.Is(err, repository.ErrDeviceTokenNotFound) {
		return notFound("device token not found")
	}
	return err
}

func (s *AuthService) TokenTTL() time.Duration {
	return s.tokens.TTL()
}

func (s *AuthService) issue(user models.User) (Session, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}
