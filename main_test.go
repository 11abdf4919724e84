package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/pagedraft/internal/app"
	"github.com/debemdeboas/pagedraft/internal/auth"
	"github.com/debemdeboas/pagedraft/internal/config"
	"github.com/debemdeboas/pagedraft/internal/db"
	"github.com/debemdeboas/pagedraft/internal/i18n"
)

func TestMain(m *testing.M) {
	if err := i18n.Init(); err != nil {
		panic(err)
	}
	m.Run()
}

func newTestServer(t *testing.T) (http.Handler, *app.App) {
	t.Helper()

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.PostTypes = config.DefaultPostTypes()

	a, err := app.New(context.Background(), cfg, &config.Secrets{}, app.WithDatabase(db.NewSQLite(":memory:")))
	if err != nil {
		t.Fatalf("app.New failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	h, err := newServer(a, auth.Anonymous{UserID: "admin"}, content, zerolog.Nop())
	if err != nil {
		t.Fatalf("newServer failed: %v", err)
	}
	return h, a
}

// unreadableFS fails to open one file.
type unreadableFS struct {
	fs.FS
	path string
}

func (u unreadableFS) Open(name string) (fs.File, error) {
	if name == u.path {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
	}
	return u.FS.Open(name)
}

func TestNewServerUnreadableStatic(t *testing.T) {
	_, a := newTestServer(t)

	_, err := newServer(a, auth.Anonymous{UserID: "admin"}, unreadableFS{FS: content, path: "static/js/app.js"}, zerolog.Nop())
	if !errors.Is(err, fs.ErrPermission) {
		t.Fatalf("Expected the static read error, got %v", err)
	}
}

func TestRobots(t *testing.T) {
	h, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/robots.txt", nil))

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "User-agent") {
		t.Errorf("Unexpected robots response %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Frame-Options") != "" {
		t.Error("robots.txt should not carry secure headers")
	}
}

func TestStaticFilesAreCacheable(t *testing.T) {
	h, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/css/style.css", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(config.HETag) == "" {
		t.Error("Expected ETag on static file")
	}
	if got := rec.Header().Get(config.HCacheControl); got != "public, max-age=3600" {
		t.Errorf("Unexpected Cache-Control %q", got)
	}
}

func TestSecureHeaders(t *testing.T) {
	h, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pages", nil))

	if rec.Header().Get("X-Frame-Options") != "deny" || rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("Missing secure headers: %v", rec.Header())
	}
}

var dialogID = regexp.MustCompile(`hx-post="(/pages/new/[0-9a-f-]+)"`)

// TestCreatePageFlow drives the dialog the way the browser does: open the
// modal, submit a title, follow the redirect to the editor.
func TestCreatePageFlow(t *testing.T) {
	h, a := newTestServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pages/new", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 opening dialog, got %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("Expected a session cookie")
	}
	m := dialogID.FindStringSubmatch(rec.Body.String())
	if m == nil {
		t.Fatalf("Expected dialog path in %s", rec.Body.String())
	}

	form := url.Values{"title": {"Über uns"}}
	req := httptest.NewRequest(http.MethodPost, m[1], strings.NewReader(form.Encode()))
	req.Header.Set(config.HCType, "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	redirect := rec.Header().Get(config.HHxRedirect)
	if rec.Code != http.StatusOK || redirect == "" {
		t.Fatalf("Expected redirect after submit, got %d %q: %s", rec.Code, redirect, rec.Body.String())
	}

	pages := a.Repo.GetPostList("page")
	if len(pages) != 1 {
		t.Fatalf("Expected one page, got %d", len(pages))
	}
	page := pages[0]
	if page.Status != "draft" || page.Slug != "uber-uns" || page.Owner != "admin" {
		t.Errorf("Unexpected page %+v", page)
	}
	if !strings.Contains(page.Content.Raw, "<!-- wp:heading") {
		t.Errorf("Expected templated content, got %q", page.Content.Raw)
	}
	if redirect != "/pages/"+string(page.ID)+"/edit" {
		t.Errorf("Unexpected redirect %q", redirect)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, redirect, nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Über uns") {
		t.Errorf("Expected editor for the new page, got %d", rec.Code)
	}
}

func TestAPICreatePage(t *testing.T) {
	h, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/types/page/posts", strings.NewReader(`{"title":"From the API"}`))
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get(config.HCType); ct != config.CTypeJSON {
		t.Errorf("Expected JSON, got %s", ct)
	}
}

func TestLocalizedIndex(t *testing.T) {
	h, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pages?lang=pt-BR", nil))

	if !strings.Contains(rec.Body.String(), "Adicionar nova página") {
		t.Error("Expected Portuguese index")
	}
}
