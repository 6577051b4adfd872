package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infraRepo "github.com/sangkips/khata-api/internal/infrastructure/repository"
	"github.com/sangkips/khata-api/internal/testutil"
	"github.com/sangkips/khata-api/pkg/apperror"
	"github.com/sangkips/khata-api/pkg/utils"
)

func newAuthService(t *testing.T) (*AuthService, *utils.JWTManager) {
	t.Helper()
	db := testutil.NewTestDB(t)
	jwt := utils.NewJWTManager("test-secret", time.Hour, 24*time.Hour)
	return NewAuthService(infraRepo.NewUserRepository(db), jwt), jwt
}

func TestAuth_RegisterAndLogin(t *testing.T) {
	svc, jwt := newAuthService(t)
	ctx := context.Background()
	shop := "Corner Store"

	out, err := svc.Register(ctx, &RegisterInput{
		Name:     "Meena",
		Email:    " Meena@Example.com ",
		Password: "password123",
		ShopName: &shop,
	})
	require.NoError(t, err)
	assert.Equal(t, "meena@example.com", out.User.Email)
	assert.NotEqual(t, "password123", out.User.Password)

	claims, err := jwt.ValidateAccessToken(out.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, out.User.ID, claims.UserID)

	_, err = svc.Register(ctx, &RegisterInput{Name: "Again", Email: "meena@example.com", Password: "password123"})
	requireAppError(t, err, http.StatusConflict)

	login, err := svc.Login(ctx, &LoginInput{Email: "MEENA@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, out.User.ID, login.User.ID)

	_, err = svc.Login(ctx, &LoginInput{Email: "meena@example.com", Password: "wrong"})
	assert.Same(t, apperror.ErrInvalidCredentials, err)
	_, err = svc.Login(ctx, &LoginInput{Email: "nobody@example.com", Password: "password123"})
	assert.Same(t, apperror.ErrInvalidCredentials, err)
}

func TestAuth_RefreshToken(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	out, err := svc.Register(ctx, &RegisterInput{Name: "Meena", Email: "meena@example.com", Password: "password123"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(ctx, out.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.Equal(t, out.User.ID, refreshed.User.ID)

	_, err = svc.RefreshToken(ctx, out.AccessToken)
	assert.Same(t, apperror.ErrInvalidToken, err, "access tokens cannot refresh")
	_, err = svc.RefreshToken(ctx, "garbage")
	assert.Same(t, apperror.ErrInvalidToken, err)
}

func TestAuth_ProfileAndPassword(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	out, err := svc.Register(ctx, &RegisterInput{Name: "Meena", Email: "meena@example.com", Password: "password123"})
	require.NoError(t, err)

	shop := "Meena Stores"
	user, err := svc.UpdateProfile(ctx, &UpdateProfileInput{UserID: out.User.ID, ShopName: &shop})
	require.NoError(t, err)
	assert.Equal(t, "Meena", user.Name)
	require.NotNil(t, user.ShopName)
	assert.Equal(t, "Meena Stores", *user.ShopName)

	me, err := svc.GetCurrentUser(ctx, out.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Meena Stores", *me.ShopName)

	err = svc.ChangePassword(ctx, &ChangePasswordInput{UserID: out.User.ID, CurrentPassword: "nope", NewPassword: "newpassword1"})
	requireAppError(t, err, http.StatusUnprocessableEntity)

	require.NoError(t, svc.ChangePassword(ctx, &ChangePasswordInput{UserID: out.User.ID, CurrentPassword: "password123", NewPassword: "newpassword1"}))
	_, err = svc.Login(ctx, &LoginInput{Email: "meena@example.com", Password: "newpassword1"})
	require.NoError(t, err)
}
