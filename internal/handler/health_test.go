package handler

import (
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPing(t *testing.T) {
	h := NewHealthHandler(nil, nil, "test")
	c, rec := jsonCtx(http.MethodGet, "/ping/", "")
	require.NoError(t, h.Ping(c))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "API is alive", body["mensaje"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestCheckSinRedis(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT 1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	// Without redis the cache probe fails but the database keeps the service
	// up: degraded, not unhealthy.
	h := NewHealthHandler(db, nil, "test")
	c, rec := jsonCtx(http.MethodGet, "/health/", "")
	require.NoError(t, h.Check(c))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "test", body["version"])

	checks := body["checks"].(map[string]any)
	database := checks["database"].(map[string]any)
	assert.Equal(t, "ok", database["status"])
	cache := checks["cache"].(map[string]any)
	assert.Equal(t, "error", cache["status"])
	timing := checks["response_time"].(map[string]any)
	assert.Equal(t, "ok", timing["status"])
	assert.NotEmpty(t, timing["value"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckBaseDeDatosCaida(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT 1").WillReturnError(assert.AnError)

	h := NewHealthHandler(db, nil, "test")
	c, rec := jsonCtx(http.MethodGet, "/health/", "")
	require.NoError(t, h.Check(c))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "unhealthy", body["status"])
	checks := body["checks"].(map[string]any)
	database := checks["database"].(map[string]any)
	assert.Equal(t, "error", database["status"])
	require.NoError(t, mock.ExpectationsWereMet())
}
