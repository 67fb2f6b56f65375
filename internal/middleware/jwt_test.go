package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taller-ot/productos-api/internal/utils"
)

func doAuth(t *testing.T, authorization string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/productos/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	require.NoError(t, JWTAuth("test-secret")(next)(c))
	return rec, c
}

func TestJWTAuth(t *testing.T) {
	at, err := utils.NewAccessToken("test-secret", 42, "alice", 15)
	require.NoError(t, err)

	rec, c := doAuth(t, "Bearer "+at.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(42), c.Get("user_id"))
	assert.Equal(t, "alice", c.Get("username"))
}

func TestJWTAuthSinHeader(t *testing.T) {
	rec, _ := doAuth(t, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "token de acceso requerido")
}

func TestJWTAuthEsquemaIncorrecto(t *testing.T) {
	rec, _ := doAuth(t, "Basic dXNlcjpwYXNz")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "token de acceso requerido")
}

func TestJWTAuthSecretoIncorrecto(t *testing.T) {
	at, err := utils.NewAccessToken("otro-secreto", 42, "alice", 15)
	require.NoError(t, err)

	rec, _ := doAuth(t, "Bearer "+at.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "token inválido")
}

func TestJWTAuthExpirado(t *testing.T) {
	at, err := utils.NewAccessToken("test-secret", 42, "alice", -1)
	require.NoError(t, err)

	rec, _ := doAuth(t, "Bearer "+at.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "token inválido")
}
