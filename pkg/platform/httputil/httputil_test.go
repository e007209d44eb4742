package httputil_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "opsgate/pkg/domerrors"
	"opsgate/pkg/platform/httputil"
)

type payload struct {
	Name string `json:"name"`
}

func TestDecode(t *testing.T) {
	logger := slog.Default()

	t.Run("parses a valid body", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ops"}`))

		req, ok := httputil.Decode[payload](w, r, logger)
		require.True(t, ok)
		assert.Equal(t, "ops", req.Name)
	})

	t.Run("rejects malformed JSON with a validation envelope", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))

		_, ok := httputil.Decode[payload](w, r, logger)
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), string(dErrors.CodeValidation))
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ops","extra":1}`))

		_, ok := httputil.Decode[payload](w, r, logger)
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestWriteError(t *testing.T) {
	t.Run("maps the code to the status", func(t *testing.T) {
		w := httptest.NewRecorder()
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no such record"))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "no such record")
	})

	t.Run("internal errors omit the description", func(t *testing.T) {
		w := httptest.NewRecorder()
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "pq: connection refused"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "connection refused")
	})
}
