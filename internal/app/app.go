// Package app wires storage, post types and the record store together for
// the server and the command line tool.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/pagedraft/internal/auth"
	"github.com/debemdeboas/pagedraft/internal/config"
	"github.com/debemdeboas/pagedraft/internal/db"
	"github.com/debemdeboas/pagedraft/internal/editor"
	"github.com/debemdeboas/pagedraft/internal/entity"
	"github.com/debemdeboas/pagedraft/internal/model"
	"github.com/debemdeboas/pagedraft/internal/notices"
	"github.com/debemdeboas/pagedraft/internal/posttype"
	"github.com/debemdeboas/pagedraft/internal/render"
	"github.com/debemdeboas/pagedraft/internal/repository"
)

// App holds the long-lived services shared by every surface.
type App struct {
	Config *config.Config

	// DB is nil when records live in S3.
	DB    db.DB
	Repo  repository.PageRepository
	Types *posttype.Registry
	Store *entity.Store
}

type Option func(*options)

type options struct {
	database db.DB
	s3Client repository.S3API
}

// WithDatabase uses database instead of opening the configured SQLite file.
func WithDatabase(database db.DB) Option {
	return func(o *options) { o.database = database }
}

// WithS3Client uses client instead of building one from the secrets.
func WithS3Client(client repository.S3API) Option {
	return func(o *options) { o.s3Client = client }
}

// SetLoggers hands l to every package that logs outside a request.
func SetLoggers(l zerolog.Logger) {
	config.SetLogger(l)
	db.SetLogger(l)
	repository.SetLogger(l)
	posttype.SetLogger(l)
	entity.SetLogger(l)
	auth.SetLogger(l)
	notices.SetLogger(l)
	render.SetLogger(l)
	editor.SetLogger(l)
}

func New(ctx context.Context, cfg *config.Config, secrets *config.Secrets, opts ...Option) (*App, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	a := &App{Config: cfg}

	switch cfg.Storage.Backend {
	case config.StorageSQLite:
		database := o.database
		if database == nil {
			database = db.NewSQLite(cfg.Storage.SQLite.Path)
		}
		if err := database.InitDB(); err != nil {
			return nil, fmt.Errorf(config.ErrInitializeDatabaseFmt, err)
		}
		a.DB = database
		a.Repo = repository.NewDBPageRepository(database)
	case config.StorageS3:
		client := o.s3Client
		if client == nil {
			c, err := repository.NewS3Client(ctx, secrets.S3AccessKeyID, secrets.S3SecretAccessKey, secrets.S3Endpoint)
			if err != nil {
				return nil, err
			}
			client = c
		}
		a.Repo = repository.NewS3PageRepository(client, cfg.Storage.S3.Bucket, cfg.Storage.S3.Prefix)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	if err := a.Repo.Init(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.Types = posttype.FromConfig(cfg)
	a.Store = entity.NewStore(a.Types, a.Repo)
	return a, nil
}

// AuthProvider builds the provider selected in the configuration.
func (a *App) AuthProvider(secrets *config.Secrets) (auth.AuthProvider, error) {
	adminID := model.UserID(secrets.AdminUserID)

	authCfg := a.Config.Features.Authentication
	if !authCfg.Enabled {
		return auth.Anonymous{UserID: adminID}, nil
	}

	switch authCfg.Type {
	case config.AuthTypeEd25519:
		provider, err := auth.NewEd25519AuthProvider(secrets.Ed25519PubKey, "Authorization", adminID)
		if err != nil {
			return nil, fmt.Errorf("ed25519 authentication: %w", err)
		}
		return provider, nil
	case config.AuthTypeClerk:
		if a.DB == nil {
			return nil, errors.New("clerk authentication needs the sqlite storage backend")
		}
		return auth.NewClerkAuthProvider(secrets.ClerkAPI, a.DB), nil
	default:
		return nil, fmt.Errorf("unknown authentication type %q", authCfg.Type)
	}
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
