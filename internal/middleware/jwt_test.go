package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coder-ph/m-fua-services/internal/apperr"
	"github.com/coder-ph/m-fua-services/internal/token"
)

func newTestServer() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = apperr.HTTPErrorHandler
	e.GET("/protected", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"user_id": UserID(c), "role": Role(c)})
	}, JWTMiddleware)
	e.GET("/admin", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, JWTMiddleware, AdminGuard)
	return e
}

func doRequest(e *echo.Echo, authHeader string, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// expiredAccessToken signs an access token whose expiry is already in the
// past. Configure clamps non-positive TTLs, so the claims are built directly.
func expiredAccessToken(t *testing.T, userID int64, role string) string {
	t.Helper()
	signed, err := token.Sign(token.Claims{
		Role:      role,
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	require.NoError(t, err)
	return signed
}

func TestJWTMiddlewareDistinct401Causes(t *testing.T) {
	token.Configure("test-secret", time.Hour, 24*time.Hour, time.Minute)
	e := newTestServer()

	rec := doRequest(e, "", "/protected")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing authorization header")

	rec = doRequest(e, "Bearer not-a-token", "/protected")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid token")

	rec = doRequest(e, "Bearer "+expiredAccessToken(t, 7, "client"), "/protected")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "token has expired")
}

func TestJWTMiddlewareAcceptsValidToken(t *testing.T) {
	token.Configure("test-secret", time.Hour, 24*time.Hour, time.Minute)
	e := newTestServer()

	access, err := token.IssueAccessToken(42, "provider")
	require.NoError(t, err)

	rec := doRequest(e, "Bearer "+access, "/protected")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":42`)
	assert.Contains(t, rec.Body.String(), `"role":"provider"`)
}

func TestJWTMiddlewareRejectsRefreshTokenOnAccessRoute(t *testing.T) {
	token.Configure("test-secret", time.Hour, 24*time.Hour, time.Minute)
	e := newTestServer()

	refresh, err := token.IssueRefreshToken(42, "provider")
	require.NoError(t, err)

	rec := doRequest(e, "Bearer "+refresh, "/protected")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminGuard(t *testing.T) {
	token.Configure("test-secret", time.Hour, 24*time.Hour, time.Minute)
	e := newTestServer()

	access, err := token.IssueAccessToken(42, "client")
	require.NoError(t, err)
	rec := doRequest(e, "Bearer "+access, "/admin")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	access, err = token.IssueAccessToken(1, "admin")
	require.NoError(t, err)
	rec = doRequest(e, "Bearer "+access, "/admin")
	assert.Equal(t, http.StatusOK, rec.Code)
}
