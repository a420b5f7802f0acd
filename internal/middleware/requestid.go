// Package middleware provides HTTP middlewares for request correlation and logging.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type ctxKey string

const requestIDKey ctxKey = "request_id"

// RequestIDHeader carries the correlation id between the browser, the admin
// server and the PhotoTrack API.
const RequestIDHeader = "X-Request-Id"

// RequestID is a middleware that tags every request with a correlation id.
//
// An id sent by the caller in X-Request-Id is kept, otherwise a new UUID is
// generated. The id is stored in the request context, where API clients pick
// it up for their outgoing calls, and echoed in the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestIDFromContext extracts the correlation id from the context.
// Returns an empty string if not found.
func GetRequestIDFromContext(ctx context.Context) string {
	val := ctx.Value(requestIDKey)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}

// WithRequestID returns a copy of ctx carrying id. Used outside of HTTP
// handlers, e.g. by the command-line client.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}
