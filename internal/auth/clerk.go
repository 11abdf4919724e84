package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkhttp "github.com/clerk/clerk-sdk-go/v2/http"

	"github.com/debemdeboas/pagedraft/internal/db"
	"github.com/debemdeboas/pagedraft/internal/model"
)

const clerkSessionCookie = "__session"

type ClerkAuthProvider struct {
	db db.DB

	cookieExtractor clerkhttp.AuthorizationOption
}

func NewClerkAuthProvider(clerkKey string, database db.DB) *ClerkAuthProvider {
	clerk.SetKey(clerkKey)

	return &ClerkAuthProvider{
		db: database,
		cookieExtractor: clerkhttp.AuthorizationJWTExtractor(func(r *http.Request) string {
			cookie, err := r.Cookie(clerkSessionCookie)
			if err != nil || cookie == nil {
				return ""
			}
			return cookie.Value
		}),
	}
}

// WithHeaderAuthorization verifies the Clerk session and exposes its subject
// as the request's user ID.
func (c *ClerkAuthProvider) WithHeaderAuthorization() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		withUser := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims, ok := clerk.SessionClaimsFromContext(r.Context()); ok && claims.Subject != "" {
				r = r.WithContext(ContextWithUserID(r.Context(), model.UserID(claims.Subject)))
			}
			next.ServeHTTP(w, r)
		})
		return clerkhttp.WithHeaderAuthorization(c.cookieExtractor)(withUser)
	}
}

func (c *ClerkAuthProvider) GetUserIDFromSession(r *http.Request) (model.UserID, error) {
	return userIDFromRequest(r)
}

type clerkEventPayload struct {
	Data struct {
		clerk.User
	} `json:"data"`

	Type string `json:"type"`
}

func (c *ClerkAuthProvider) HandleWebhookUser(w http.ResponseWriter, r *http.Request) {
	var payload clerkEventPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		authLogger.Error().Err(err).Msg("Error decoding event payload")
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	usr := payload.Data.User
	l := authLogger.With().Str("event", payload.Type).Str("user_id", usr.ID).Logger()

	switch payload.Type {
	case "user.created":
		if len(usr.ExternalAccounts) == 0 {
			l.Warn().Msg("No external accounts found for user")
			http.Error(w, "No external accounts found", http.StatusBadRequest)
			return
		}

		if !strings.EqualFold(usr.ExternalAccounts[0].Provider, "oauth_x") {
			l.Warn().Str("provider", usr.ExternalAccounts[0].Provider).Msg("Invalid provider for user")
			http.Error(w, "Invalid provider", http.StatusBadRequest)
			return
		}

		_, err := c.db.ExecContext(r.Context(), "INSERT INTO users (id, username) VALUES (?, ?)", usr.ID, usr.ExternalAccounts[0].Username)
		if err != nil {
			l.Error().Err(err).Msg("Error inserting user")
			http.Error(w, "Error saving user", http.StatusInternalServerError)
			return
		}

		l.Info().Msg("User created")
		w.WriteHeader(http.StatusCreated)

	case "user.updated":
		l.Debug().Msg("User updated webhook received")
		w.WriteHeader(http.StatusNoContent)

	case "user.deleted":
		_, err := c.db.ExecContext(r.Context(), "DELETE FROM users WHERE id = ?", usr.ID)
		if err != nil {
			l.Error().Err(err).Msg("Error deleting user")
			http.Error(w, "Error deleting user", http.StatusInternalServerError)
			return
		}

		l.Info().Msg("User deleted")
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Invalid event type", http.StatusBadRequest)
	}
}
