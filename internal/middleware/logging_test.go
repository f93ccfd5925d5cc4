package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggingMiddleware_LevelFollowsStatus(t *testing.T) {
	cases := map[int]zapcore.Level{
		http.StatusOK:                  zapcore.InfoLevel,
		http.StatusNotFound:            zapcore.WarnLevel,
		http.StatusInternalServerError: zapcore.ErrorLevel,
	}

	for status, level := range cases {
		core, logs := observer.New(zapcore.DebugLevel)
		handler := LoggingMiddleware(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		req := httptest.NewRequest("GET", "/products", nil)
		req.RemoteAddr = "203.0.113.9:4444"
		handler.ServeHTTP(httptest.NewRecorder(), req)

		entries := logs.All()
		require.Len(t, entries, 1)
		assert.Equal(t, level, entries[0].Level, "status %d", status)

		fields := entries[0].ContextMap()
		assert.Equal(t, int64(status), fields["status"])
		assert.Equal(t, "/products", fields["path"])
		assert.Equal(t, "203.0.113.9", fields["client_ip"])
	}
}
