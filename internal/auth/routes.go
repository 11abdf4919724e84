package auth

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/debemdeboas/pagedraft/internal/config"
)

const (
	ChallengePath = "/auth/challenge"
	VerifyPath    = "/auth/verify"
	LoginPath     = "/auth/login"
	WebhookPath   = "/webhook/user"
)

// RegisterEd25519AuthRoutes registers the challenge login routes. The login
// page is parsed from templates in fsys.
func RegisterEd25519AuthRoutes(mux *http.ServeMux, provider *Ed25519AuthProvider, fsys fs.FS, funcs template.FuncMap) error {
	tmpl, err := template.New(config.TemplateLayout).Funcs(funcs).ParseFS(
		fsys,
		config.TemplatesLocalDir+"/"+config.TemplateLayout,
		config.TemplatesLocalDir+"/"+config.TemplateAuth,
	)
	if err != nil {
		return fmt.Errorf("error loading auth template: %w", err)
	}

	mux.HandleFunc(ChallengePath, Ed25519ChallengeHandler(provider))
	mux.HandleFunc(VerifyPath, Ed25519VerifyHandler(provider))
	mux.HandleFunc(LoginPath, Ed25519AuthPageHandler(tmpl))
	return nil
}
