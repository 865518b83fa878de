package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksrnb/reunion-ticketing/internal/utils"
)

const testSecret = "jwt-test-secret"

func doRequest(t *testing.T, mw []echo.MiddlewareFunc, authHeader string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	require.NoError(t, h(c))
	return rec, c
}

func TestJWTAuthAcceptsIssuedToken(t *testing.T) {
	tok, err := utils.NewAccessToken(testSecret, 42, true, 1)
	require.NoError(t, err)

	rec, c := doRequest(t, []echo.MiddlewareFunc{JWTAuth(testSecret)}, "Bearer "+tok.Token)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(42), c.Get(CtxUserID))
	assert.Equal(t, true, c.Get(CtxIsAdmin))
}

func TestJWTAuthRejectsMissingHeader(t *testing.T) {
	rec, _ := doRequest(t, []echo.MiddlewareFunc{JWTAuth(testSecret)}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthRejectsWrongSecret(t *testing.T) {
	tok, err := utils.NewAccessToken("other-secret", 42, false, 1)
	require.NoError(t, err)

	rec, _ := doRequest(t, []echo.MiddlewareFunc{JWTAuth(testSecret)}, "Bearer "+tok.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	admin, err := utils.NewAccessToken(testSecret, 1, true, 1)
	require.NoError(t, err)
	member, err := utils.NewAccessToken(testSecret, 2, false, 1)
	require.NoError(t, err)

	chain := []echo.MiddlewareFunc{JWTAuth(testSecret), RequireAdmin()}

	rec, _ := doRequest(t, chain, "Bearer "+admin.Token)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doRequest(t, chain, "Bearer "+member.Token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
