package config

const (
	HCType        = "Content-Type"
	HETag         = "ETag"
	HCacheControl = "Cache-Control"

	HHxRedirect = "Hx-Redirect"
	HHxTrigger  = "Hx-Trigger"
	HHxRequest  = "Hx-Request"
	HHxRefresh  = "Hx-Refresh"

	CTypeCSS  = "text/css"
	CTypeHTML = "text/html"
	CTypeJSON = "application/json"
	CTypeSSE  = "text/event-stream"
)

const (
	HTTPErrMethodNotAllowed = "Method not allowed"
)

const (
	CookieTheme       = "theme"
	CookieSyntaxTheme = "syntax-theme"
	CookieSession     = "archive-session"
	CookieAuthToken   = "auth_token"
	CookieLang        = "lang"
)
