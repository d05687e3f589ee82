package httpx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noAuth(*http.Request) {}

func TestPostJSON(t *testing.T) {
	t.Run("returns payload and sends body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"a":1}`, string(body))
			_, _ = w.Write([]byte(`{"ok":true}`))
		}))
		defer srv.Close()

		auth := func(r *http.Request) { r.Header.Set("Authorization", "Bearer k") }
		out, err := PostJSON(context.Background(), srv.Client(), srv.URL, []byte(`{"a":1}`), auth, 0)
		require.NoError(t, err)
		assert.JSONEq(t, `{"ok":true}`, string(out))
	})

	t.Run("retries rate limits", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.Header().Set("Retry-After", "0")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			_, _ = w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		_, err := PostJSON(context.Background(), srv.Client(), srv.URL, []byte(`{}`), noAuth, 1)
		require.NoError(t, err)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("status error without retries", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.Error(w, "nope", http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := PostJSON(context.Background(), srv.Client(), srv.URL, []byte(`{}`), noAuth, 0)
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusInternalServerError, se.Code)
		assert.Equal(t, "nope", se.Body)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		_, err := PostJSON(context.Background(), srv.Client(), srv.URL, []byte(`{}`), noAuth, 3)
		assert.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})
}
