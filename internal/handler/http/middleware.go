package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/vegasarees/storefront/internal/store"
	"github.com/vegasarees/storefront/pkg/httputil"
	"github.com/vegasarees/storefront/pkg/logger"
	"github.com/vegasarees/storefront/pkg/middleware"
)

const maxSessionIDLen = 128

// validSessionID accepts 1-128 characters of [A-Za-z0-9_-], which covers
// the UUIDs we issue.
func validSessionID(id string) bool {
	if id == "" || len(id) > maxSessionIDLen {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

// Session resolves the shopper session from the X-Session-ID header, issuing
// a new UUID when it is missing or malformed, and echoes it on the response.
// The session's store is placed in the request context.
func Session(registry *store.Registry, fallback *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			id := r.Header.Get(middleware.SessionHeader)
			if !validSessionID(id) {
				id = uuid.NewString()
				l := logger.FromContext(ctx).With(slog.String("session_id", id))
				ctx = logger.NewContext(ctx, l)
			}
			ctx = logger.WithSessionID(ctx, id)
			w.Header().Set(middleware.SessionHeader, id)

			s, err := registry.Get(ctx, id)
			if err != nil {
				httputil.WriteError(w, r.WithContext(ctx), err, fallback)
				return
			}

			next.ServeHTTP(w, r.WithContext(store.NewContext(ctx, s)))
		})
	}
}

// sessionID returns the session resolved by Session.
func sessionID(ctx context.Context) string {
	return logger.SessionIDFromContext(ctx)
}

// ContentTypeJSON rejects request bodies that are not JSON.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{Code: "UNSUPPORTED_MEDIA_TYPE", Message: "Content-Type must be application/json"},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
