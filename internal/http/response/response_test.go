package response

import (
	"encoding/json/v2"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/hermanshu/targ-site-sub000/internal/errors"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestJSON_Success(t *testing.T) {
	w := httptest.NewRecorder()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	JSON(w, http.StatusOK, map[string]string{"message": "test"}, logger)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	body := decode(t, w)
	assert.Equal(t, float64(Version), body["v"])
	assert.Equal(t, true, body["success"])
	assert.Equal(t, map[string]any{"message": "test"}, body["data"])
	assert.NotContains(t, body, "error")
}

func TestJSON_ErrorStatusIsNotSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusNotFound, map[string]string{"message": "test"}, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])
}

func TestSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	Success(w, []string{"a"}, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"a"}, decode(t, w)["data"])
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w http.ResponseWriter)
		status int
		code   string
	}{
		{"unauthorized", func(w http.ResponseWriter) { Unauthorized(w, "nope", nil) }, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"not found", func(w http.ResponseWriter) { NotFound(w, "nope", nil) }, http.StatusNotFound, "NOT_FOUND"},
		{"method", func(w http.ResponseWriter) { MethodNotAllowed(w, "nope", nil) }, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
		{"rate limited", func(w http.ResponseWriter) { TooManyRequests(w, "nope", nil) }, http.StatusTooManyRequests, "RATE_LIMITED"},
		{"generic", func(w http.ResponseWriter) { Error(w, http.StatusTeapot, "nope", nil) }, http.StatusTeapot, "INTERNAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)

			assert.Equal(t, tt.status, w.Code)
			body := decode(t, w)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.code, body["code"])
			assert.Equal(t, "nope", body["message"])
			assert.Equal(t, "nope", body["error"])
		})
	}
}

func TestHandleError_DomainError(t *testing.T) {
	w := httptest.NewRecorder()
	err := domainerrors.ValidationWithDetails("validation failed", map[string]string{"name": "is required"})

	HandleError(w, err, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "VALIDATION", body["code"])
	assert.Equal(t, map[string]any{"name": "is required"}, body["details"])
}

func TestHandleError_Unknown(t *testing.T) {
	w := httptest.NewRecorder()
	HandleError(w, errors.New("boom"), slog.New(slog.DiscardHandler))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, "internal server error", body["message"])
	assert.Equal(t, "INTERNAL", body["code"])
}

func TestCodeFor(t *testing.T) {
	assert.Equal(t, "PERSISTENCE", CodeFor(http.StatusServiceUnavailable))
	assert.Equal(t, "CONFLICT", CodeFor(http.StatusConflict))
	assert.Equal(t, "VALIDATION", CodeFor(http.StatusUnprocessableEntity))
}
