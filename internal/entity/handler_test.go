package entity

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/debemdeboas/pagedraft/internal/auth"
	"github.com/debemdeboas/pagedraft/internal/model"
)

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	store, _ := newTestStore(t)
	mux := http.NewServeMux()
	NewHandler(store).Register(mux)
	return mux
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode error body: %v", err)
	}
	return body
}

func TestHandlerGetType(t *testing.T) {
	mux := newTestMux(t)

	t.Run("Known", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/types/page", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
		var pt model.PostType
		if err := json.NewDecoder(rec.Body).Decode(&pt); err != nil {
			t.Fatal(err)
		}
		if pt.Name != "page" || !pt.HasTemplate() {
			t.Errorf("Expected page type with template, got %+v", pt)
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/types/widget", nil))

		if rec.Code != http.StatusNotFound {
			t.Fatalf("Expected 404, got %d", rec.Code)
		}
		body := decodeErrorBody(t, rec)
		if body.Code != CodeTypeInvalid || body.Data.Status != http.StatusNotFound {
			t.Errorf("Unexpected error body %+v", body)
		}
	})
}

func TestHandlerCreate(t *testing.T) {
	testCases := []struct {
		name       string
		body       string
		user       model.UserID
		expectCode int
		expectErr  string
	}{
		{"Created", `{"title":"About us","status":"draft"}`, "editor-1", http.StatusCreated, ""},
		{"Anonymous", `{"title":"About us"}`, "", http.StatusUnauthorized, CodeCannotCreate},
		{"BadStatus", `{"title":"x","status":"archived"}`, "editor-1", http.StatusBadRequest, CodeInvalidParam},
		{"BadJSON", `{"title":`, "editor-1", http.StatusBadRequest, CodeInvalidParam},
		{"UnknownField", `{"title":"x","colour":"red"}`, "editor-1", http.StatusBadRequest, CodeInvalidParam},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mux := newTestMux(t)
			req := httptest.NewRequest(http.MethodPost, "/api/types/page/posts", strings.NewReader(tc.body))
			if tc.user != "" {
				req = req.WithContext(auth.ContextWithUserID(req.Context(), tc.user))
			}
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			if rec.Code != tc.expectCode {
				t.Fatalf("Expected %d, got %d: %s", tc.expectCode, rec.Code, rec.Body.String())
			}
			if tc.expectErr != "" {
				if body := decodeErrorBody(t, rec); body.Code != tc.expectErr {
					t.Errorf("Expected code %s, got %s", tc.expectErr, body.Code)
				}
				return
			}

			var post model.Post
			if err := json.NewDecoder(rec.Body).Decode(&post); err != nil {
				t.Fatal(err)
			}
			if post.Slug != "about-us" || post.Type != "page" || post.Owner != tc.user {
				t.Errorf("Unexpected record %+v", post)
			}
		})
	}
}

func TestHandlerGetRecord(t *testing.T) {
	mux := newTestMux(t)

	req := httptest.NewRequest(http.MethodPost, "/api/types/page/posts", strings.NewReader(`{"title":"Contact"}`))
	req = req.WithContext(auth.ContextWithUserID(req.Context(), "editor-1"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var created model.Post
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/posts/"+string(created.ID), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/posts/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", rec.Code)
	}
	if body := decodeErrorBody(t, rec); body.Code != CodeNotFound {
		t.Errorf("Expected %s, got %s", CodeNotFound, body.Code)
	}
}
