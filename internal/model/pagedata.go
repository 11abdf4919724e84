package model

import (
	"html/template"
	"net/http"

	"github.com/debemdeboas/pagedraft/internal/config"
	"github.com/debemdeboas/pagedraft/internal/theme"
)

type PageData struct {
	SiteName string

	PageURL string

	Lang  string
	Theme string

	SyntaxCSS   template.CSS
	SyntaxTheme string
}

func NewPageData(r *http.Request, lang string) *PageData {
	syntaxTheme := theme.GetSyntaxThemeFromRequest(r)
	return &PageData{
		SiteName:    config.AppConfig.Site.Name,
		PageURL:     r.URL.Path,
		Lang:        lang,
		Theme:       theme.GetThemeFromRequest(r),
		SyntaxTheme: syntaxTheme,
		SyntaxCSS:   theme.GenerateSyntaxCSS(syntaxTheme),
	}
}
