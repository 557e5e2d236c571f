package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"cleanhub/internal/config"
	"cleanhub/internal/models"
	"cleanhub/internal/security"
	"cleanhub/internal/validation"
)

func newTestAuthService(t *testing.T) (*AuthService, *fakeUsers, *fakeDevices) {
	t.Helper()
	tokens, err := security.NewTokenService(config.SecurityConfig{
		JWTSecret: "test-secret",
		TokenTTL:  time.Hour,
	})
	require.NoError(t, err)

	users := newFakeUsers()
	devices := newFakeDevices()
	svc := NewAuthService(users, devices, tokens, security.NewPasswordHasher(bcrypt.MinCost), zerolog.Nop())
	return svc, users, devices
}

func TestRegisterCreatesUserAndSession(t *testing.T) {
	svc, users, _ := newTestAuthService(t)

	session, err := svc.Register(context.Background(), RegisterInput{
		Name:     "  Amina Otieno ",
		Phone:    "0712345678",
		Password: "secret1",
	})
	require.NoError(t, err)

	assert.Equal(t, "Amina Otieno", session.User.Name)
	assert.Equal(t, models.UserRoleClient, session.User.Role)
	assert.NotEqual(t, []byte("secret1"), session.User.PasswordHash)
	assert.Equal(t, 1, users.count())

	userID, err := svc.tokens.Verify(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, userID)

	body, err := json.Marshal(session.User.Public())
	require.NoError(t, err)
	assert.NotContains(t, string(body), "password")
	assert.NotContains(t, string(body), "secret1")
}

func TestRegisterRejectsBadPhoneWithoutCreatingUser(t *testing.T) {
	svc, users, _ := newTestAuthService(t)

	for _, phone := range []string{"0812345678", "071234567", "07123456789", "+254712345678", "07abcdefgh"} {
		_, err := svc.Register(context.Background(), RegisterInput{Name: "Amina", Phone: phone, Password: "secret1"})

		var verrs validation.Errors
		require.ErrorAs(t, err, &verrs, phone)
		assert.Equal(t, "phone", verrs[0].Field)
	}
	assert.Equal(t, 0, users.count())
}

func TestRegisterReportsAllFieldErrors(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	_, err := svc.Register(context.Background(), RegisterInput{Name: " A ", Phone: "123", Password: "123", Role: "boss"})

	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)
	fields := map[string]bool{}
	for _, fe := range verrs {
		fields[fe.Field] = true
	}
	assert.Equal(t, map[string]bool{"name": true, "phone": true, "password": true, "role": true}, fields)
}

func TestRegisterDuplicatePhoneConflicts(t *testing.T) {
	svc, users, _ := newTestAuthService(t)
	input := RegisterInput{Name: "Amina", Phone: "0712345678", Password: "secret1"}

	_, err := svc.Register(context.Background(), input)
	require.NoError(t, err)

	input.Name = "Someone Else"
	_, err = svc.Register(context.Background(), input)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 1, users.count())
}

func TestRegisterAcceptsEveryRole(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	for i, role := range models.AllRoles {
		phone := []string{"0711111111", "0722222222", "0733333333", "0744444444"}[i]
		session, err := svc.Register(context.Background(), RegisterInput{
			Name: "User " + string(role), Phone: phone, Password: "secret1", Role: string(role),
		})
		require.NoError(t, err)
		assert.Equal(t, role, session.User.Role)
	}
}

func TestLoginByPhoneAndName(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	registered, err := svc.Register(context.Background(), RegisterInput{Name: "Amina", Phone: "0112345678", Password: "secret1"})
	require.NoError(t, err)

	byPhone, err := svc.Login(context.Background(), LoginInput{Identifier: "0112345678", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, byPhone.User.ID)

	byName, err := svc.Login(context.Background(), LoginInput{Identifier: " Amina ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, byName.User.ID)
	assert.NotEmpty(t, byName.Token)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	_, err := svc.Register(context.Background(), RegisterInput{Name: "Amina", Phone: "0712345678", Password: "secret1"})
	require.NoError(t, err)

	_, wrongPassword := svc.Login(context.Background(), LoginInput{Identifier: "0712345678", Password: "nope-nope"})
	_, unknownUser := svc.Login(context.Background(), LoginInput{Identifier: "0799999999", Password: "secret1"})
	_, unknownName := svc.Login(context.Background(), LoginInput{Identifier: "Nobody", Password: "secret1"})

	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword, unknownUser)
	assert.Equal(t, wrongPassword, unknownName)
}

type countingPasswords struct {
	security.PasswordHasher
	verified int
	dummies  int
}

func (c *countingPasswords) Verify(password string, hash []byte) (bool, error) {
	c.verified++
	return c.PasswordHasher.Verify(password, hash)
}

func (c *countingPasswords) VerifyDummy(password string) {
	c.dummies++
	c.PasswordHasher.VerifyDummy(password)
}

func TestLoginUnknownUserStillHashes(t *testing.T) {
	tokens, err := security.NewTokenService(config.SecurityConfig{JWTSecret: "test-secret", TokenTTL: time.Hour})
	require.NoError(t, err)
	passwords := &countingPasswords{PasswordHasher: security.NewPasswordHasher(bcrypt.MinCost)}
	svc := NewAuthService(newFakeUsers(), newFakeDevices(), tokens, passwords, zerolog.Nop())

	_, err = svc.Register(context.Background(), RegisterInput{Name: "Amina", Phone: "0712345678", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), LoginInput{Identifier: "0799999999", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(context.Background(), LoginInput{Identifier: "Nobody", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, 2, passwords.dummies)
	assert.Equal(t, 0, passwords.verified)

	_, err = svc.Login(context.Background(), LoginInput{Identifier: "0712345678", Password: "wrong-one"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, 1, passwords.verified)
	assert.Equal(t, 2, passwords.dummies)
}

func TestLoginRequiresBothFields(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	_, err := svc.Login(context.Background(), LoginInput{Identifier: "  "})

	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 2)
}

func TestAuthenticate(t *testing.T) {
	svc, users, _ := newTestAuthService(t)
	session, err := svc.Register(context.Background(), RegisterInput{Name: "Amina", Phone: "0712345678", Password: "secret1"})
	require.NoError(t, err)

	user, err := svc.Authenticate(context.Background(), session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, user.ID)

	_, err = svc.Authenticate(context.Background(), "garbage")
	assert.ErrorIs(t, err, security.ErrInvalidToken)

	users.delete(session.User.ID)
	_, err = svc.Authenticate(context.Background(), session.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestUpdateNameValidates(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	session, err := svc.Register(context.Background(), RegisterInput{Name: "Amina", Phone: "0712345678", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.UpdateName(context.Background(), session.User.ID, UpdateMeInput{Name: "x"})
	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)

	user, err := svc.UpdateName(context.Background(), session.User.ID, UpdateMeInput{Name: " Amina W. "})
	require.NoError(t, err)
	assert.Equal(t, "Amina W.", user.Name)
}

func TestDeviceTokens(t *testing.T) {
	svc, _, devices := newTestAuthService(t)

	require.NoError(t, svc.RegisterDeviceToken(context.Background(), "u1", DeviceTokenInput{Token: "fcm-token", Platform: "android"}))
	assert.Len(t, devices.tokens, 1)

	err := svc.RegisterDeviceToken(context.Background(), "u1", DeviceTokenInput{Token: "t", Platform: "symbian"})
	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)

	require.NoError(t, svc.RemoveDeviceToken(context.Background(), "u1", "fcm-token"))
	assert.ErrorIs(t, svc.RemoveDeviceToken(context.Background(), "u1", "fcm-token"), ErrNotFound)
}
