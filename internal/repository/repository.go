// Package repository persists content records in SQLite or S3.
package repository

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/pagedraft/internal/cache"
	"github.com/debemdeboas/pagedraft/internal/model"
)

var (
	ErrPostNotFound = errors.New("post not found")
	ErrSlugTaken    = errors.New("slug already in use")
)

var repoLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	repoLogger = l
}

type PageRepository interface {
	// Init loads the stored records into memory.
	Init(ctx context.Context) error

	NewPost() *model.Post
	SavePost(ctx context.Context, post *model.Post) error
	ReadPost(ctx context.Context, id model.PostID) (*model.Post, error)

	// SlugExists reports whether a record of postType already uses slug.
	SlugExists(ctx context.Context, postType, slug string) (bool, error)

	// GetPostList returns the cached records of postType, newest first.
	GetPostList(postType string) []model.Post

	// ReloadPosts polls the backend for changes until ctx is done.
	ReloadPosts(ctx context.Context)

	// SetReloadNotifier sets a function that will be called when a record changes.
	SetReloadNotifier(notifier func(model.PostID))
}

func newPost() *model.Post {
	now := time.Now().UTC()
	return &model.Post{
		ID:           model.PostID(uuid.New().String()),
		CreatedDate:  now,
		ModifiedDate: now,
	}
}

// postIndex is the in-memory view both backends serve reads from.
type postIndex struct {
	mu     sync.RWMutex
	byID   *cache.Cache[string, *model.Post]
	sorted []model.Post

	reloadNotifier func(model.PostID)
}

func newPostIndex() *postIndex {
	return &postIndex{byID: cache.NewCache[string, *model.Post]()}
}

func (x *postIndex) get(id model.PostID) (*model.Post, bool) {
	return x.byID.Get(string(id))
}

func (x *postIndex) put(post *model.Post) {
	x.mu.Lock()
	defer x.mu.Unlock()

	cp := *post
	x.byID.Set(string(cp.ID), &cp)
	x.sorted = slices.DeleteFunc(x.sorted, func(p model.Post) bool { return p.ID == cp.ID })
	x.sorted = append(x.sorted, cp)
	sortNewestFirst(x.sorted)
}

// replace swaps in a freshly loaded set and notifies about records whose
// content hash changed.
func (x *postIndex) replace(posts []model.Post) bool {
	x.mu.Lock()
	previous := make(map[model.PostID]string, len(x.sorted))
	for _, p := range x.sorted {
		previous[p.ID] = p.ContentHash
	}

	changed := len(posts) != len(x.sorted)
	var modified []model.PostID
	for _, p := range posts {
		hash, ok := previous[p.ID]
		switch {
		case !ok:
			changed = true
			repoLogger.Info().Str("post_id", string(p.ID)).Str("title", p.Title.Raw).Msg("New post detected")
		case hash != p.ContentHash:
			changed = true
			modified = append(modified, p.ID)
			repoLogger.Info().Str("post_id", string(p.ID)).Str("title", p.Title.Raw).Msg("Post content changed, reloading")
		}
	}

	if changed {
		sortNewestFirst(posts)
		byID := make(map[string]*model.Post, len(posts))
		for i := range posts {
			byID[string(posts[i].ID)] = &posts[i]
		}
		x.sorted = posts
		x.byID.SetTo(byID)
	}
	notifier := x.reloadNotifier
	x.mu.Unlock()

	if notifier != nil {
		for _, id := range modified {
			go notifier(id)
		}
	}
	return changed
}

func (x *postIndex) list(postType string) []model.Post {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make([]model.Post, 0, len(x.sorted))
	for _, p := range x.sorted {
		if postType == "" || p.Type == postType {
			out = append(out, p)
		}
	}
	return out
}

func (x *postIndex) slugExists(postType, slug string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()

	return slices.ContainsFunc(x.sorted, func(p model.Post) bool {
		return p.Type == postType && p.Slug == slug
	})
}

func (x *postIndex) setReloadNotifier(notifier func(model.PostID)) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.reloadNotifier = notifier
}

func sortNewestFirst(posts []model.Post) {
	slices.SortStableFunc(posts, func(a, b model.Post) int {
		return -a.ModifiedDate.Compare(b.ModifiedDate)
	})
}

// poll runs fn every interval until ctx is done.
func poll(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}
