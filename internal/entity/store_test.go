package entity

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/debemdeboas/pagedraft/internal/auth"
	"github.com/debemdeboas/pagedraft/internal/config"
	"github.com/debemdeboas/pagedraft/internal/db"
	"github.com/debemdeboas/pagedraft/internal/model"
	"github.com/debemdeboas/pagedraft/internal/posttype"
	"github.com/debemdeboas/pagedraft/internal/repository"
)

// countingResolver counts loads and can hold them until released.
type countingResolver struct {
	inner TypeResolver
	calls atomic.Int32
	gate  chan struct{}
	err   error
}

func (r *countingResolver) Get(name string) (*model.PostType, error) {
	r.calls.Add(1)
	if r.gate != nil {
		<-r.gate
	}
	if r.err != nil {
		return nil, r.err
	}
	return r.inner.Get(name)
}

func newTestStore(t *testing.T) (*Store, *countingResolver) {
	t.Helper()

	database := db.NewSQLite(":memory:")
	if err := database.InitDB(); err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	repo := repository.NewDBPageRepository(database)
	if err := repo.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	resolver := &countingResolver{inner: posttype.NewRegistry(config.DefaultPostTypes(), "")}
	return NewStore(resolver, repo), resolver
}

func userCtx() context.Context {
	return auth.ContextWithUserID(context.Background(), "editor-1")
}

func TestGetPostType(t *testing.T) {
	t.Run("Loads once and caches", func(t *testing.T) {
		store, resolver := newTestStore(t)

		for i := 0; i < 3; i++ {
			pt, err := store.GetPostType(context.Background(), "page")
			if err != nil {
				t.Fatalf("GetPostType failed: %v", err)
			}
			if !pt.HasTemplate() {
				t.Error("Expected page template")
			}
		}
		if n := resolver.calls.Load(); n != 1 {
			t.Errorf("Expected 1 load, got %d", n)
		}
	})

	t.Run("Concurrent callers share one fill", func(t *testing.T) {
		store, resolver := newTestStore(t)
		resolver.gate = make(chan struct{})

		var wg sync.WaitGroup
		results := make([]*model.PostType, 8)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], _ = store.GetPostType(context.Background(), "page")
			}(i)
		}

		time.Sleep(20 * time.Millisecond)
		close(resolver.gate)
		wg.Wait()

		if n := resolver.calls.Load(); n != 1 {
			t.Errorf("Expected 1 load, got %d", n)
		}
		for i, pt := range results {
			if pt == nil || pt != results[0] {
				t.Errorf("Caller %d got a different descriptor", i)
			}
		}
	})

	t.Run("Unknown type", func(t *testing.T) {
		store, _ := newTestStore(t)

		_, err := store.GetPostType(context.Background(), "product")
		var e *Error
		if !errors.As(err, &e) || e.Code != CodeTypeInvalid || e.Status != http.StatusNotFound {
			t.Errorf("Expected %s, got %v", CodeTypeInvalid, err)
		}
	})

	t.Run("Failures are not cached", func(t *testing.T) {
		store, resolver := newTestStore(t)
		resolver.err = errors.New("disk on fire")

		_, err := store.GetPostType(context.Background(), "page")
		if e := AsError(err); e.Code != CodeUnknown {
			t.Errorf("Expected %s, got %v", CodeUnknown, err)
		}

		resolver.err = nil
		if _, err := store.GetPostType(context.Background(), "page"); err != nil {
			t.Errorf("Expected retry to succeed, got %v", err)
		}
		if n := resolver.calls.Load(); n != 2 {
			t.Errorf("Expected 2 loads, got %d", n)
		}
	})

	t.Run("Waiter honours context", func(t *testing.T) {
		store, resolver := newTestStore(t)
		resolver.gate = make(chan struct{})
		defer close(resolver.gate)

		go store.GetPostType(context.Background(), "page")
		time.Sleep(10 * time.Millisecond)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		if _, err := store.GetPostType(ctx, "page"); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Expected deadline error, got %v", err)
		}
	})
}

func TestSaveEntityRecord(t *testing.T) {
	throw := SaveOptions{ThrowOnError: true}

	t.Run("Creates a draft page", func(t *testing.T) {
		store, _ := newTestStore(t)
		content := "<!-- wp:separator /-->"

		post, err := store.SaveEntityRecord(userCtx(), KindPostType, "page", model.PostEdits{
			Status:  model.StatusDraft,
			Title:   "Tom & Jerry",
			Slug:    "Tom & Jerry",
			Content: &content,
		}, throw)
		if err != nil {
			t.Fatalf("SaveEntityRecord failed: %v", err)
		}

		if post.Type != "page" || post.Status != model.StatusDraft {
			t.Errorf("Unexpected record %+v", post)
		}
		if post.Title.Raw != "Tom & Jerry" || post.Title.Rendered != "Tom &amp; Jerry" {
			t.Errorf("Unexpected title %+v", post.Title)
		}
		if post.Slug != "tom-jerry" {
			t.Errorf("Expected slug tom-jerry, got %q", post.Slug)
		}
		if post.Content.Raw != content {
			t.Errorf("Expected content %q, got %q", content, post.Content.Raw)
		}
		if post.Owner != "editor-1" {
			t.Errorf("Expected owner editor-1, got %q", post.Owner)
		}

		got, err := store.GetRecord(context.Background(), post.ID)
		if err != nil || got.Slug != post.Slug {
			t.Errorf("Expected record to be readable, got %v (%v)", got, err)
		}
	})

	t.Run("Unset content stays empty", func(t *testing.T) {
		store, _ := newTestStore(t)
		post, err := store.SaveEntityRecord(userCtx(), KindPostType, "post", model.PostEdits{Title: "x", Slug: "x"}, throw)
		if err != nil {
			t.Fatalf("SaveEntityRecord failed: %v", err)
		}
		if post.Content.Raw != "" {
			t.Errorf("Expected empty content, got %q", post.Content.Raw)
		}
		if post.Status != model.StatusDraft {
			t.Errorf("Expected status to default to draft, got %q", post.Status)
		}
	})

	t.Run("Slugs are made unique", func(t *testing.T) {
		store, _ := newTestStore(t)
		want := []string{"no-title", "no-title-2", "no-title-3"}
		for _, slug := range want {
			post, err := store.SaveEntityRecord(userCtx(), KindPostType, "page", model.PostEdits{Slug: "No title"}, throw)
			if err != nil {
				t.Fatalf("SaveEntityRecord failed: %v", err)
			}
			if post.Slug != slug {
				t.Errorf("Expected slug %q, got %q", slug, post.Slug)
			}
			if post.Title.Raw != "" {
				t.Errorf("Expected empty title, got %q", post.Title.Raw)
			}
		}
	})

	t.Run("Slug falls back to the record ID", func(t *testing.T) {
		store, _ := newTestStore(t)
		post, err := store.SaveEntityRecord(userCtx(), KindPostType, "page", model.PostEdits{Slug: "!!!"}, throw)
		if err != nil {
			t.Fatalf("SaveEntityRecord failed: %v", err)
		}
		if post.Slug != string(post.ID) {
			t.Errorf("Expected slug to be the ID, got %q", post.Slug)
		}
	})

	errorCases := []struct {
		name   string
		ctx    context.Context
		kind   string
		typ    string
		edits  model.PostEdits
		code   string
		status int
	}{
		{"No user", context.Background(), KindPostType, "page", model.PostEdits{Title: "x"}, CodeCannotCreate, http.StatusUnauthorized},
		{"Unknown kind", userCtx(), "root", "site", model.PostEdits{}, CodeNoRoute, http.StatusNotFound},
		{"Unknown post type", userCtx(), KindPostType, "product", model.PostEdits{}, CodeTypeInvalid, http.StatusNotFound},
		{"Invalid status", userCtx(), KindPostType, "page", model.PostEdits{Status: "trash"}, CodeInvalidParam, http.StatusBadRequest},
	}

	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			store, _ := newTestStore(t)

			post, err := store.SaveEntityRecord(tc.ctx, tc.kind, tc.typ, tc.edits, throw)
			if post != nil {
				t.Errorf("Expected no record, got %+v", post)
			}
			var e *Error
			if !errors.As(err, &e) {
				t.Fatalf("Expected *Error, got %v", err)
			}
			if e.Code != tc.code || e.Status != tc.status {
				t.Errorf("Expected %s/%d, got %s/%d", tc.code, tc.status, e.Code, e.Status)
			}
			if e.Message == "" {
				t.Error("Expected a message")
			}
		})
	}
}

type failingRepo struct {
	repository.PageRepository
	err error
}

func (f failingRepo) SavePost(context.Context, *model.Post) error { return f.err }

func TestSaveEntityRecordStorageFailure(t *testing.T) {
	store, _ := newTestStore(t)
	store.repo = failingRepo{PageRepository: store.repo, err: errors.New("disk full")}

	_, err := store.SaveEntityRecord(userCtx(), KindPostType, "page", model.PostEdits{Title: "x"}, SaveOptions{ThrowOnError: true})
	e := AsError(err)
	if e.Code != CodeUnknown || e.Message != "An unknown error occurred." {
		t.Errorf("Expected unknown error, got %v", err)
	}
	if !errors.Is(err, store.repo.(failingRepo).err) {
		t.Error("Expected the storage error to be wrapped")
	}
}

func TestSaveEntityRecordWithoutThrow(t *testing.T) {
	store, _ := newTestStore(t)

	post, err := store.SaveEntityRecord(context.Background(), KindPostType, "page", model.PostEdits{Title: "x"}, SaveOptions{})
	if post != nil || err != nil {
		t.Fatalf("Expected (nil, nil), got (%v, %v)", post, err)
	}

	last := store.LastSaveError(KindPostType, "page")
	if last == nil || last.Code != CodeCannotCreate {
		t.Fatalf("Expected recorded %s, got %v", CodeCannotCreate, last)
	}

	if _, err := store.SaveEntityRecord(userCtx(), KindPostType, "page", model.PostEdits{Title: "x"}, SaveOptions{}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if last := store.LastSaveError(KindPostType, "page"); last != nil {
		t.Errorf("Expected success to clear the last error, got %v", last)
	}
}

func TestAsError(t *testing.T) {
	if AsError(nil) != nil {
		t.Error("Expected nil for nil error")
	}

	plain := AsError(errors.New("boom"))
	if plain.Code != CodeUnknown || plain.Status != http.StatusInternalServerError {
		t.Errorf("Expected unknown error, got %+v", plain)
	}

	original := newError(CodeCannotCreate, msgCannotCreate, http.StatusUnauthorized, nil)
	wrapped := AsError(errors.Join(errors.New("ctx"), original))
	if wrapped != original {
		t.Error("Expected wrapped *Error to be returned as is")
	}
}

func TestListRecords(t *testing.T) {
	store, _ := newTestStore(t)
	for _, title := range []string{"One", "Two"} {
		if _, err := store.SaveEntityRecord(userCtx(), KindPostType, "page", model.PostEdits{Title: title, Slug: title}, SaveOptions{ThrowOnError: true}); err != nil {
			t.Fatal(err)
		}
	}
	if got := store.ListRecords("page"); len(got) != 2 {
		t.Errorf("Expected 2 pages, got %d", len(got))
	}
}
