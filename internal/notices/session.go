package notices

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/debemdeboas/pagedraft/internal/config"
)

type sessionKey struct{}

func WithSession(ctx context.Context, session string) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// SessionFromContext returns the browser session in ctx, or GlobalContext.
func SessionFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(sessionKey{}).(string); ok && s != "" {
		return s
	}
	return GlobalContext
}

// SessionMiddleware gives every browser a session cookie and puts its
// value into the request context.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := ""
		if cookie, err := r.Cookie(config.CookieSession); err == nil {
			if _, err := uuid.Parse(cookie.Value); err == nil {
				session = cookie.Value
			}
		}

		if session == "" {
			session = uuid.New().String()
			http.SetCookie(w, &http.Cookie{
				Name:     config.CookieSession,
				Value:    session,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
				Secure:   r.TLS != nil,
			})
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
	})
}
