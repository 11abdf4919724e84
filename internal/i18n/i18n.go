// Package i18n resolves the request language and prints localized messages.
package i18n

import (
	"context"
	"html/template"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/debemdeboas/pagedraft/internal/config"
)

// LangParam is the query parameter used to select a language.
const LangParam = "lang"

var (
	supported = []language.Tag{language.AmericanEnglish, language.BrazilianPortuguese}
	matcher   = language.NewMatcher(supported)

	defaultMu  sync.RWMutex
	defaultTag = language.AmericanEnglish
)

var registerOnce = sync.OnceValue(func() error {
	b, err := LoadEmbedded()
	if err != nil {
		return err
	}
	return b.Register()
})

// Init registers the embedded catalogs. Safe to call more than once.
func Init() error {
	return registerOnce()
}

func Supported() []language.Tag {
	return supported
}

func Default() language.Tag {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultTag
}

// SetDefault changes the fallback language. Unsupported values are matched
// to the closest supported one.
func SetDefault(locale string) {
	tag := match(locale)
	defaultMu.Lock()
	defaultTag = tag
	defaultMu.Unlock()
}

func match(value string) language.Tag {
	tag, err := language.Parse(strings.TrimSpace(value))
	if err != nil {
		return language.AmericanEnglish
	}
	_, idx, _ := matcher.Match(tag)
	return supported[idx]
}

// ParseTag reports whether value names a supported language.
func ParseTag(value string) (language.Tag, bool) {
	tag, err := language.Parse(strings.TrimSpace(value))
	if err != nil {
		return language.Und, false
	}
	_, idx, conf := matcher.Match(tag)
	if conf < language.High {
		return language.Und, false
	}
	return supported[idx], true
}

// ResolveTag picks the request language from the lang query parameter, the
// language cookie and Accept-Language, in that order. The bool reports
// whether the query parameter chose it.
func ResolveTag(r *http.Request) (language.Tag, bool) {
	if v := r.URL.Query().Get(LangParam); v != "" {
		if tag, ok := ParseTag(v); ok {
			return tag, true
		}
	}

	if cookie, err := r.Cookie(config.CookieLang); err == nil {
		if tag, ok := ParseTag(cookie.Value); ok {
			return tag, false
		}
	}

	if accept := r.Header.Get("Accept-Language"); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil && len(tags) > 0 {
			if _, idx, conf := matcher.Match(tags...); conf != language.No {
				return supported[idx], false
			}
		}
	}

	return Default(), false
}

func SetLanguageCookie(w http.ResponseWriter, tag language.Tag) {
	http.SetCookie(w, &http.Cookie{
		Name:     config.CookieLang,
		Value:    tag.String(),
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
}

func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}

type localeKey struct{}

type requestLocale struct {
	tag     language.Tag
	printer *message.Printer
}

// WithTag stores tag and its printer in ctx.
func WithTag(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, localeKey{}, requestLocale{tag: tag, printer: Printer(tag)})
}

// ServeSetLanguage stores the language named in the path and asks HTMX to
// reload the page.
func ServeSetLanguage(w http.ResponseWriter, r *http.Request) {
	tag, ok := ParseTag(r.PathValue("lang"))
	if !ok {
		http.Error(w, "Unsupported language", http.StatusBadRequest)
		return
	}
	SetLanguageCookie(w, tag)
	w.Header().Set(config.HHxRefresh, "true")
	w.WriteHeader(http.StatusNoContent)
}

// Middleware resolves the request language and stores it in the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tag, persist := ResolveTag(r)
		if persist {
			SetLanguageCookie(w, tag)
		}
		next.ServeHTTP(w, r.WithContext(WithTag(r.Context(), tag)))
	})
}

// PrinterFromContext returns the request printer, or one for the default language.
func PrinterFromContext(ctx context.Context) *message.Printer {
	if l, ok := ctx.Value(localeKey{}).(requestLocale); ok {
		return l.printer
	}
	return Printer(Default())
}

// TagFromContext returns the request language, or the default one.
func TagFromContext(ctx context.Context) language.Tag {
	if l, ok := ctx.Value(localeKey{}).(requestLocale); ok {
		return l.tag
	}
	return Default()
}

// TemplateFuncs exposes translation to templates as {{T .Lang "key" args...}}.
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"T": func(lang, key string, args ...any) string {
			tag := Default()
			if lang != "" {
				tag = match(lang)
			}
			return Printer(tag).Sprintf(key, args...)
		},
	}
}
