// Package entity is the record store the admin surfaces talk to: it
// resolves post types and creates records the way a REST endpoint would.
package entity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/pagedraft/internal/auth"
	"github.com/debemdeboas/pagedraft/internal/cache"
	"github.com/debemdeboas/pagedraft/internal/model"
	"github.com/debemdeboas/pagedraft/internal/posttype"
	"github.com/debemdeboas/pagedraft/internal/repository"
	"github.com/debemdeboas/pagedraft/internal/util"
)

// KindPostType is the only entity kind records can be created under.
const KindPostType = "postType"

// maxSlugAttempts bounds the retries when a concurrent save takes a slug.
const maxSlugAttempts = 5

var entityLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	entityLogger = l
}

type SaveOptions struct {
	// ThrowOnError makes SaveEntityRecord return the failure. Otherwise it
	// returns (nil, nil) and the failure is kept for LastSaveError.
	ThrowOnError bool
}

// TypeResolver loads post type descriptors.
type TypeResolver interface {
	Get(name string) (*model.PostType, error)
}

type Store struct {
	types TypeResolver
	repo  repository.PageRepository

	typeCache *cache.Cache[string, *model.PostType]

	fillMu sync.Mutex
	fills  map[string]*typeFill

	lastErrors *cache.Cache[string, *Error]
}

type typeFill struct {
	done chan struct{}
	pt   *model.PostType
	err  error
}

func NewStore(types TypeResolver, repo repository.PageRepository) *Store {
	return &Store{
		types:      types,
		repo:       repo,
		typeCache:  cache.NewCache[string, *model.PostType](),
		fills:      make(map[string]*typeFill),
		lastErrors: cache.NewCache[string, *Error](),
	}
}

// GetPostType returns the descriptor for name, loading it at most once
// however many callers wait on it. Failed loads are not cached.
func (s *Store) GetPostType(ctx context.Context, name string) (*model.PostType, error) {
	if pt, ok := s.typeCache.Get(name); ok {
		return pt, nil
	}

	fill, leader := s.startFill(name)
	if leader {
		fill.pt, fill.err = s.loadPostType(name)
		if fill.err == nil {
			s.typeCache.Set(name, fill.pt)
		}
		s.fillMu.Lock()
		delete(s.fills, name)
		s.fillMu.Unlock()
		close(fill.done)
	}

	select {
	case <-fill.done:
		return fill.pt, fill.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Store) startFill(name string) (*typeFill, bool) {
	s.fillMu.Lock()
	defer s.fillMu.Unlock()

	if fill, ok := s.fills[name]; ok {
		return fill, false
	}
	if pt, ok := s.typeCache.Get(name); ok {
		done := make(chan struct{})
		close(done)
		return &typeFill{done: done, pt: pt}, false
	}
	fill := &typeFill{done: make(chan struct{})}
	s.fills[name] = fill
	return fill, true
}

func (s *Store) loadPostType(name string) (*model.PostType, error) {
	pt, err := s.types.Get(name)
	if errors.Is(err, posttype.ErrUnknownType) {
		return nil, newError(CodeTypeInvalid, msgTypeInvalid, http.StatusNotFound, err)
	} else if err != nil {
		entityLogger.Error().Err(err).Str("post_type", name).Msg("Failed to load post type")
		return nil, unknownError(err)
	}
	return pt, nil
}

// SaveEntityRecord creates a record of post type name owned by the user in ctx.
func (s *Store) SaveEntityRecord(ctx context.Context, kind, name string, edits model.PostEdits, opts SaveOptions) (*model.Post, error) {
	post, err := s.createRecord(ctx, kind, name, edits)
	key := kind + "/" + name
	if err != nil {
		e := AsError(err)
		if !opts.ThrowOnError {
			s.lastErrors.Set(key, e)
			return nil, nil
		}
		return nil, e
	}

	s.lastErrors.Delete(key)
	return post, nil
}

// LastSaveError returns the failure of the latest non-throwing save for
// kind and name, or nil when it succeeded.
func (s *Store) LastSaveError(kind, name string) *Error {
	e, _ := s.lastErrors.Get(kind + "/" + name)
	return e
}

func (s *Store) createRecord(ctx context.Context, kind, name string, edits model.PostEdits) (*model.Post, error) {
	l := entityLogger.With().Str("kind", kind).Str("name", name).Logger()

	if kind != KindPostType {
		return nil, newError(CodeNoRoute, msgNoRoute, http.StatusNotFound, nil)
	}

	if _, err := s.GetPostType(ctx, name); err != nil {
		return nil, err
	}

	owner, ok := auth.UserIDFromContext(ctx)
	if !ok || owner == "" {
		return nil, newError(CodeCannotCreate, msgCannotCreate, http.StatusUnauthorized, nil)
	}

	status := edits.Status
	if status == "" {
		status = model.StatusDraft
	}
	if !model.ValidStatus(status) {
		return nil, invalidParam("status")
	}

	post := s.repo.NewPost()
	post.Type = name
	post.Status = status
	post.Title = model.NewTitle(edits.Title)
	post.Owner = owner
	if edits.Content != nil {
		post.Content.Raw = *edits.Content
	}

	base := util.Slugify(edits.Slug)
	if base == "" {
		base = util.Slugify(edits.Title)
	}
	if base == "" {
		base = string(post.ID)
	}

	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		slug, err := s.uniqueSlug(ctx, name, base)
		if err != nil {
			l.Error().Err(err).Msg("Failed to check slug")
			return nil, unknownError(err)
		}
		post.Slug = slug

		err = s.repo.SavePost(ctx, post)
		if err == nil {
			l.Info().Str("post_id", string(post.ID)).Str("slug", post.Slug).Msg("Record created")
			return post, nil
		}
		if !errors.Is(err, repository.ErrSlugTaken) {
			l.Error().Err(err).Msg("Failed to save record")
			return nil, unknownError(err)
		}
	}

	l.Error().Str("slug", base).Msg("Gave up finding a free slug")
	return nil, unknownError(fmt.Errorf("no free slug for %q", base))
}

// uniqueSlug appends -2, -3, ... to base until no record of postType uses it.
func (s *Store) uniqueSlug(ctx context.Context, postType, base string) (string, error) {
	slug := base
	for n := 2; ; n++ {
		taken, err := s.repo.SlugExists(ctx, postType, slug)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
		slug = base + "-" + strconv.Itoa(n)
	}
}

// GetRecord returns a stored record.
func (s *Store) GetRecord(ctx context.Context, id model.PostID) (*model.Post, error) {
	post, err := s.repo.ReadPost(ctx, id)
	if errors.Is(err, repository.ErrPostNotFound) {
		return nil, newError(CodeNotFound, msgNotFound, http.StatusNotFound, err)
	} else if err != nil {
		return nil, unknownError(err)
	}
	return post, nil
}

// ListRecords returns the cached records of a post type, newest first.
func (s *Store) ListRecords(postType string) []model.Post {
	return s.repo.GetPostList(postType)
}
