// Package auth identifies the user behind a request, either through an
// ed25519-signed challenge or a Clerk session.
package auth

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/pagedraft/internal/model"
)

var ErrNoUser = errors.New("no user ID in context")

var authLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	authLogger = l
}

type AuthProvider interface {
	// WithHeaderAuthorization returns middleware that puts the request's
	// user ID into its context when the credentials check out. Requests
	// without valid credentials pass through unauthenticated.
	WithHeaderAuthorization() func(http.Handler) http.Handler

	GetUserIDFromSession(r *http.Request) (model.UserID, error)

	HandleWebhookUser(w http.ResponseWriter, r *http.Request)
}

// EnforceUserAndGetID writes a 401 pointing HTMX at the login page when the
// request carries no user.
func EnforceUserAndGetID(p AuthProvider, w http.ResponseWriter, r *http.Request) (model.UserID, error) {
	userID, err := p.GetUserIDFromSession(r)
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Unauthorized access attempt")

		w.Header().Add("Hx-Redirect", LoginPath+"?redirect="+r.URL.Path)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return "", err
	}
	return userID, nil
}

// Anonymous is the provider used when authentication is disabled: every
// request belongs to the configured user.
type Anonymous struct {
	UserID model.UserID
}

func (a Anonymous) WithHeaderAuthorization() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), a.UserID)))
		})
	}
}

func (a Anonymous) GetUserIDFromSession(r *http.Request) (model.UserID, error) {
	return userIDFromRequest(r)
}

func (a Anonymous) HandleWebhookUser(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func userIDFromRequest(r *http.Request) (model.UserID, error) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok || userID == "" {
		return "", ErrNoUser
	}
	return userID, nil
}
