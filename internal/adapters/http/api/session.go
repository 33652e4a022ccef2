package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/okian/fairlens/internal/adapters/repository"
)

// Session transport.
const (
	SessionHeader = "X-Session-ID"
	SessionCookie = "fairlens_session"

	sessionCookieMaxAge = 7 * 24 * 60 * 60
)

type sessionKey struct{}

// SessionMiddleware resolves the caller's session from the X-Session-ID
// header, then the session cookie, and otherwise issues a new one as a cookie.
// A malformed header is rejected; a malformed cookie is replaced.
// The resolved ID is echoed in the response header.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const op = "api.session"

		id := r.Header.Get(SessionHeader)
		if id != "" && !repository.ValidSessionID(id) {
			writeError(w, http.StatusBadRequest, "invalid_session", WrapKind(op, ErrBadRequest, repository.ErrInvalidSession))
			return
		}
		if id == "" {
			if c, err := r.Cookie(SessionCookie); err == nil && repository.ValidSessionID(c.Value) {
				id = c.Value
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    id,
				Path:     "/",
				MaxAge:   sessionCookieMaxAge,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		w.Header().Set(SessionHeader, id)
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), id)))
	})
}

// WithSession stores a session ID on ctx.
func WithSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionFromContext returns the session ID set by SessionMiddleware.
func SessionFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}
