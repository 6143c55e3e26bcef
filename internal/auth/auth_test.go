package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mimercado/marketplace/internal/models"
)

var testSecret = []byte("test-secret")

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))
	return &Service{DB: db, JWTSecret: testSecret}
}

func TestRegister(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "marta", "marta@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "user", user.Role)
	assert.NotEqual(t, "hunter22", user.PasswordHash, "passwords are never stored in the clear")

	_, err = svc.Register(ctx, "marta", "other@example.com", "x")
	require.ErrorIs(t, err, ErrUserExists)

	_, err = svc.Register(ctx, "", "a@b.c", "pw")
	require.ErrorIs(t, err, ErrValidation)
	_, err = svc.Register(ctx, "pepe", "a@b.c", "")
	require.ErrorIs(t, err, ErrValidation)
}

func TestLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, "marta", "marta@example.com", "hunter22")
	require.NoError(t, err)

	user, token, err := svc.Login(ctx, "marta", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, reg.ID, user.ID)
	assert.NotEmpty(t, token)

	_, _, err = svc.Login(ctx, "marta", "wrong")
	require.ErrorIs(t, err, ErrBadLogin)

	_, _, err = svc.Login(ctx, "nadie", "hunter22")
	require.ErrorIs(t, err, ErrBadLogin)
}

func echoContextWithCookie(token string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "accessToken", Value: token})
	}
	return e.NewContext(req, httptest.NewRecorder())
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := CreateAccessToken(testSecret, 42, "user")
	require.NoError(t, err)

	id, err := GetID(echoContextWithCookie(token), testSecret)
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
}

func TestGetIDRejectsBadTokens(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	// no cookie at all
	_, err := GetID(c, testSecret)
	require.Error(t, err)

	// garbage token
	_, err = GetID(echoContextWithCookie("not.a.jwt"), testSecret)
	require.Error(t, err)

	// signed with another secret
	other, err := CreateAccessToken([]byte("wrong-secret"), 1, "user")
	require.NoError(t, err)
	_, err = GetID(echoContextWithCookie(other), testSecret)
	require.Error(t, err)
}
