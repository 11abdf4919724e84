package dialog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/debemdeboas/pagedraft/internal/config"
	"github.com/debemdeboas/pagedraft/internal/entity"
	"github.com/debemdeboas/pagedraft/internal/model"
	"github.com/debemdeboas/pagedraft/internal/notices"
)

var dialogIDPattern = regexp.MustCompile(`hx-post="/pages/new/([0-9a-f-]+)"`)

func newTestServer(store *fakeStore, notifier *fakeNotifier) (*Handler, http.Handler) {
	h := NewHandler(store, notifier)
	mux := http.NewServeMux()
	h.Register(mux)
	return h, mux
}

func withSession(r *http.Request, session string) *http.Request {
	return r.WithContext(notices.WithSession(r.Context(), session))
}

func openDialog(t *testing.T, mux http.Handler, session string) string {
	t.Helper()
	req := withSession(httptest.NewRequest(http.MethodGet, OpenPath, nil), session)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 opening dialog, got %d", rec.Code)
	}
	m := dialogIDPattern.FindStringSubmatch(rec.Body.String())
	if m == nil {
		t.Fatalf("Expected dialog ID in modal, got %s", rec.Body.String())
	}
	return m[1]
}

func submitForm(mux http.Handler, session, id, title string) *httptest.ResponseRecorder {
	form := url.Values{"title": {title}}
	req := httptest.NewRequest(http.MethodPost, "/pages/new/"+id, strings.NewReader(form.Encode()))
	req.Header.Set(config.HCType, "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, withSession(req, session))
	return rec
}

func TestOpenRendersModal(t *testing.T) {
	_, mux := newTestServer(&fakeStore{}, &fakeNotifier{})
	req := withSession(httptest.NewRequest(http.MethodGet, OpenPath, nil), "s1")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, want := range []string{"Draft a new page", "Page title", "Create draft", "Cancel", `aria-disabled="false"`, `name="title"`} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected modal to contain %q", want)
		}
	}
	if strings.Contains(body, " disabled") {
		t.Error("Submit button must never be hard-disabled")
	}
	if ct := rec.Header().Get(config.HCType); ct != config.CTypeHTML {
		t.Errorf("Expected %s, got %s", config.CTypeHTML, ct)
	}
}

func TestSubmitRedirectsToEditor(t *testing.T) {
	store := &fakeStore{
		postType: pageType(nil),
		record:   &model.Post{ID: "abc", Title: model.NewTitle("Contact")},
	}
	notifier := &fakeNotifier{}
	h, mux := newTestServer(store, notifier)

	id := openDialog(t, mux, "s1")
	rec := submitForm(mux, "s1", id, "Contact")

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get(config.HHxRedirect); got != "/pages/abc/edit" {
		t.Errorf("Expected redirect to editor, got %q", got)
	}
	if got := rec.Header().Get(config.HHxTrigger); got != TriggerClose {
		t.Errorf("Expected %s trigger, got %q", TriggerClose, got)
	}
	if store.saves[0].edits.Title != "Contact" {
		t.Errorf("Expected form title to be saved, got %q", store.saves[0].edits.Title)
	}
	if h.dialogs.Len() != 0 {
		t.Error("Expected dialog to be released after a successful save")
	}
	if sent := notifier.all(); len(sent) != 1 || sent[0].status != notices.StatusSuccess {
		t.Errorf("Expected a success notice, got %+v", sent)
	}
}

func TestSubmitFailureKeepsDialogOpen(t *testing.T) {
	store := &fakeStore{
		postType: pageType(nil),
		saveErr:  &entity.Error{Code: entity.CodeCannotCreate, Message: "Sorry, you are not allowed to create posts as this user."},
	}
	notifier := &fakeNotifier{}
	h, mux := newTestServer(store, notifier)

	id := openDialog(t, mux, "s1")
	rec := submitForm(mux, "s1", id, "Kept & escaped")

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(config.HHxRedirect) != "" {
		t.Error("Expected no redirect on failure")
	}
	body := rec.Body.String()
	if !strings.Contains(body, `value="Kept &amp; escaped"`) {
		t.Errorf("Expected title to be kept in the modal, got %s", body)
	}
	if !strings.Contains(body, `aria-disabled="false"`) {
		t.Error("Expected submit to be usable again")
	}
	if h.dialogs.Len() != 1 {
		t.Error("Expected dialog to stay registered")
	}
	if sent := notifier.all(); len(sent) != 1 || sent[0].content != "Sorry, you are not allowed to create posts as this user." {
		t.Errorf("Expected store message notice, got %+v", sent)
	}
}

func TestSubmitWhileBusy(t *testing.T) {
	store := &fakeStore{
		postType: pageType(nil),
		record:   &model.Post{ID: "1"},
		release:  make(chan struct{}),
		entered:  make(chan struct{}, 1),
	}
	_, mux := newTestServer(store, &fakeNotifier{})
	id := openDialog(t, mux, "s1")

	first := make(chan *httptest.ResponseRecorder)
	go func() { first <- submitForm(mux, "s1", id, "One") }()

	select {
	case <-store.entered:
	case <-time.After(time.Second):
		t.Fatal("First submit never reached the store")
	}

	rec := submitForm(mux, "s1", id, "Two")
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 while busy, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "is-busy") || !strings.Contains(body, `aria-disabled="true"`) {
		t.Errorf("Expected busy modal, got %s", body)
	}
	if strings.Contains(body, " disabled") {
		t.Error("Busy submit must not be hard-disabled")
	}
	if !strings.Contains(body, `value="One"`) {
		t.Errorf("Expected the in-flight title in the busy modal, got %s", body)
	}

	close(store.release)
	if got := (<-first).Header().Get(config.HHxRedirect); got != "/pages/1/edit" {
		t.Errorf("Expected first submit to redirect, got %q", got)
	}
	if len(store.saves) != 1 || store.saves[0].edits.Title != "One" {
		t.Errorf("Expected a single save titled One, got %+v", store.saves)
	}
}

func TestSubmitSurvivesClientCancel(t *testing.T) {
	store := &fakeStore{postType: pageType(nil), record: &model.Post{ID: "1"}}
	_, mux := newTestServer(store, &fakeNotifier{})
	id := openDialog(t, mux, "s1")

	ctx, cancel := context.WithCancel(notices.WithSession(context.Background(), "s1"))
	cancel()

	form := url.Values{"title": {"Gone"}}
	req := httptest.NewRequest(http.MethodPost, "/pages/new/"+id, strings.NewReader(form.Encode())).WithContext(ctx)
	req.Header.Set(config.HCType, "application/x-www-form-urlencoded")
	mux.ServeHTTP(httptest.NewRecorder(), req)

	if len(store.saves) != 1 {
		t.Error("Expected the save to complete after the client went away")
	}
}

func TestCancelClosesDialog(t *testing.T) {
	store := &fakeStore{}
	h, mux := newTestServer(store, &fakeNotifier{})
	id := openDialog(t, mux, "s1")

	req := withSession(httptest.NewRequest(http.MethodDelete, "/pages/new/"+id, nil), "s1")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(config.HHxTrigger) != TriggerClose {
		t.Error("Expected close trigger")
	}
	if h.dialogs.Len() != 0 {
		t.Error("Expected dialog to be released")
	}
	if len(store.typeCalls) != 0 || len(store.saves) != 0 {
		t.Error("Cancel must not touch the store")
	}

	if rec := submitForm(mux, "s1", id, "late"); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after cancel, got %d", rec.Code)
	}
}

func TestDialogBoundToSession(t *testing.T) {
	store := &fakeStore{postType: pageType(nil), record: &model.Post{ID: "1"}}
	_, mux := newTestServer(store, &fakeNotifier{})
	id := openDialog(t, mux, "owner")

	testCases := []struct {
		name   string
		method string
		id     string
	}{
		{"SubmitOtherSession", http.MethodPost, id},
		{"CancelOtherSession", http.MethodDelete, id},
		{"UnknownDialog", http.MethodPost, "missing"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := withSession(httptest.NewRequest(tc.method, "/pages/new/"+tc.id, nil), "intruder")
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			if rec.Code != http.StatusNotFound {
				t.Errorf("Expected 404, got %d", rec.Code)
			}
		})
	}

	if len(store.saves) != 0 {
		t.Error("Expected no save from another session")
	}
}

func TestSweepDropsAbandonedDialogs(t *testing.T) {
	h, mux := newTestServer(&fakeStore{}, &fakeNotifier{})

	now := time.Now()
	h.now = func() time.Time { return now }
	openDialog(t, mux, "s1")

	now = now.Add(dialogTTL + time.Minute)
	openDialog(t, mux, "s1")

	if h.dialogs.Len() != 1 {
		t.Errorf("Expected only the fresh dialog to remain, got %d", h.dialogs.Len())
	}
}
