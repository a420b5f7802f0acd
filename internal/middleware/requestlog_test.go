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

func TestWithRequestLogging(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel zapcore.Level
	}{
		{name: "implicit ok", status: 0, wantLevel: zapcore.InfoLevel},
		{name: "redirect", status: http.StatusSeeOther, wantLevel: zapcore.InfoLevel},
		{name: "bad gateway", status: http.StatusBadGateway, wantLevel: zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.status != 0 {
					w.WriteHeader(tt.status)
				}
				_, _ = w.Write([]byte("body"))
			})
			h := RequestID(WithRequestLogging(zap.New(core))(next))

			rec := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/users?x=1", nil)
			req.Header.Set(RequestIDHeader, "rid")
			h.ServeHTTP(rec, req)

			entries := logs.All()
			require.Len(t, entries, 1)
			entry := entries[0]
			assert.Equal(t, tt.wantLevel, entry.Level)

			fields := entry.ContextMap()
			want := tt.status
			if want == 0 {
				want = http.StatusOK
			}
			assert.Equal(t, "GET", fields["method"])
			assert.Equal(t, "/users?x=1", fields["uri"])
			assert.EqualValues(t, want, fields["status"])
			assert.EqualValues(t, 4, fields["size"])
			assert.Equal(t, "rid", fields["request_id"])
		})
	}
}
