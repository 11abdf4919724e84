// Package routes defines the HTTP paths served outside the feature packages.
package routes

const (
	RobotsPath = "/robots.txt"
	HealthPath = "/healthz"

	ThemeToggle    = "/theme/toggle"
	SyntaxThemeSet = "/syntax-theme/set"
	SyntaxThemeGet = "/syntax-theme/{theme}"

	LanguageSet = "/lang/{lang}"
)
