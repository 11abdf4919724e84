package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/pagedraft/internal/app"
	"github.com/debemdeboas/pagedraft/internal/auth"
	"github.com/debemdeboas/pagedraft/internal/cache"
	"github.com/debemdeboas/pagedraft/internal/config"
	"github.com/debemdeboas/pagedraft/internal/dialog"
	"github.com/debemdeboas/pagedraft/internal/editor"
	"github.com/debemdeboas/pagedraft/internal/entity"
	"github.com/debemdeboas/pagedraft/internal/i18n"
	"github.com/debemdeboas/pagedraft/internal/logger"
	"github.com/debemdeboas/pagedraft/internal/notices"
	"github.com/debemdeboas/pagedraft/internal/routes"
	"github.com/debemdeboas/pagedraft/internal/sse"
	"github.com/debemdeboas/pagedraft/internal/theme"
	"github.com/debemdeboas/pagedraft/internal/util"
)

//go:embed static/* templates/*
var content embed.FS

func main() {
	envErr := godotenv.Load()

	bootLogger := logger.New("info")
	app.SetLoggers(bootLogger)
	if envErr != nil {
		bootLogger.Debug().Err(envErr).Msg("No .env file loaded")
	}

	secrets, err := config.LoadSecrets()
	if err != nil {
		bootLogger.Fatal().Err(err).Msg("Failed to read environment")
	}

	if err := config.LoadConfig(secrets.ConfigPath); err != nil {
		bootLogger.Fatal().Err(err).Msg("Failed to load configuration")
	}
	cfg := config.AppConfig

	l := logger.New(cfg.Logging.Level)
	app.SetLoggers(l)

	if err := i18n.Init(); err != nil {
		l.Fatal().Err(err).Msg("Failed to load message catalogs")
	}
	i18n.SetDefault(cfg.I18n.DefaultLocale)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, secrets)
	if err != nil {
		l.Fatal().Err(err).Msg("Failed to start")
	}
	defer a.Close()

	provider, err := a.AuthProvider(secrets)
	if err != nil {
		l.Fatal().Err(err).Msg("Failed to set up authentication")
	}

	handler, err := newServer(a, provider, content, l)
	if err != nil {
		l.Fatal().Err(err).Msg("Failed to build routes")
	}

	go a.Repo.ReloadPosts(ctx)

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			l.Error().Err(err).Msg("Shutdown failed")
		}
	}()

	l.Info().Str("addr", srv.Addr).Str("storage", cfg.Storage.Backend).Msg("Listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Fatal().Err(err).Msg("Server failed")
	}
}

// newServer builds the HTTP handler over the embedded static files and
// templates in fsys.
func newServer(a *app.App, provider auth.AuthProvider, fsys fs.FS, l zerolog.Logger) (http.Handler, error) {
	static, err := fs.Sub(fsys, config.StaticLocalDir)
	if err != nil {
		return nil, err
	}
	err = fs.WalkDir(static, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(static, path)
		if err != nil {
			return err
		}
		cache.SetStaticHash(config.StaticUrlPath+path, util.ContentHash(data))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("hash static files: %w", err)
	}

	clients := sse.NewSSEClients()
	bus := notices.NewBus(clients)

	editorHandler, err := editor.NewHandler(a.Store, provider, clients, fsys)
	if err != nil {
		return nil, err
	}
	a.Repo.SetReloadNotifier(editorHandler.NotifyReload)

	mux := http.NewServeMux()

	mux.HandleFunc("GET "+routes.RobotsPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(config.HCType, "text/plain")
		w.Write([]byte("User-agent: *\nDisallow: /"))
	})
	mux.HandleFunc("GET "+routes.HealthPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	mux.Handle("GET "+config.StaticUrlPath, http.StripPrefix(config.StaticUrlPath, http.FileServer(http.FS(static))))
	mux.HandleFunc("POST "+routes.ThemeToggle, theme.ServeToggle)
	mux.HandleFunc("POST "+routes.SyntaxThemeSet, theme.ServeSyntaxSet)
	mux.HandleFunc("GET "+routes.SyntaxThemeGet, theme.ServeSyntaxCSS)
	mux.HandleFunc("POST "+routes.LanguageSet, i18n.ServeSetLanguage)

	editorHandler.Register(mux)
	dialog.NewHandler(a.Store, bus).Register(mux)
	notices.NewHandler(bus, clients).Register(mux)
	entity.NewHandler(a.Store).Register(mux)

	mux.HandleFunc("POST "+auth.WebhookPath, provider.HandleWebhookUser)
	if p, ok := provider.(*auth.Ed25519AuthProvider); ok {
		if err := auth.RegisterEd25519AuthRoutes(mux, p, fsys, i18n.TemplateFuncs()); err != nil {
			return nil, err
		}
	}

	var h http.Handler = mux
	h = provider.WithHeaderAuthorization()(h)
	h = i18n.Middleware(h)
	h = notices.SessionMiddleware(h)
	h = secureHeaders(h)
	h = cacheIt(h)
	h = logger.Middleware(l)(h)
	return h, nil
}

func cacheIt(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(config.HCacheControl, "no-cache")
		w.Header().Set("Vary", "Cookie")

		if hash, ok := cache.GetStaticHash(r.URL.Path); ok {
			w.Header().Set(config.HCacheControl, "public, max-age=3600")
			w.Header().Set(config.HETag, hash)
		}

		next.ServeHTTP(w, r)
	})
}

func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != routes.RobotsPath {
			w.Header().Set("X-Frame-Options", "deny")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("Referrer-Policy", "same-origin")
		}
		next.ServeHTTP(w, r)
	})
}
