package dialog

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/text/message"

	"github.com/debemdeboas/pagedraft/internal/cache"
	"github.com/debemdeboas/pagedraft/internal/config"
	"github.com/debemdeboas/pagedraft/internal/i18n"
	"github.com/debemdeboas/pagedraft/internal/model"
	"github.com/debemdeboas/pagedraft/internal/notices"
)

const (
	OpenPath   = "/pages/new"
	DialogPath = "/pages/new/{dialog}"

	// TriggerClose tells the page to drop the modal container.
	TriggerClose = "closeModal"
)

//go:embed templates/*.html
var templateFS embed.FS

var modalTemplate = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// dialogTTL bounds how long an abandoned dialog stays registered.
const dialogTTL = time.Hour

type session struct {
	id      string
	owner   string
	opened  time.Time
	dialog  *Dialog
	created atomic.Pointer[model.Post]
}

// Handler serves one modal per open dialog and keeps each dialog's state
// on the server, keyed by a random ID bound to the browser session.
type Handler struct {
	store    EntityStore
	notifier Notifier
	dialogs  *cache.Cache[string, *session]

	// EditPath returns the page a newly created record is opened in.
	EditPath func(id model.PostID) string
	now      func() time.Time
}

func NewHandler(store EntityStore, notifier Notifier) *Handler {
	return &Handler{
		store:    store,
		notifier: notifier,
		dialogs:  cache.NewCache[string, *session](),
		EditPath: func(id model.PostID) string { return fmt.Sprintf("/pages/%s/edit", id) },
		now:      time.Now,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET "+OpenPath, h.Open)
	mux.HandleFunc("POST "+DialogPath, h.Submit)
	mux.HandleFunc("DELETE "+DialogPath, h.Cancel)
}

// Open registers a new dialog and renders its modal.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	h.sweep()

	s := &session{
		id:     uuid.New().String(),
		owner:  notices.SessionFromContext(r.Context()),
		opened: h.now(),
	}
	s.dialog = New(h.store, h.notifier, i18n.PrinterFromContext(r.Context()),
		OnSave(func(p *model.Post) { s.created.Store(p) }),
		OnClose(func() { h.dialogs.Delete(s.id) }),
	)
	h.dialogs.Set(s.id, s)

	zerolog.Ctx(r.Context()).Debug().Str("dialog", s.id).Msg("Opened new page dialog")
	h.render(w, r, http.StatusOK, s, false)
}

// Submit creates the page. A request that arrives while the dialog is still
// creating one gets 409 and the busy modal back.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(r)
	if !ok {
		http.Error(w, config.ErrDialogNotFound, http.StatusNotFound)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// The save outlives a client that navigates away mid-request.
	ctx := context.WithoutCancel(r.Context())
	if !s.dialog.SubmitTitle(ctx, r.PostForm.Get("title")) {
		h.render(w, r, http.StatusConflict, s, true)
		return
	}

	created := s.created.Load()
	if created == nil {
		h.render(w, r, http.StatusOK, s, false)
		return
	}

	h.dialogs.Delete(s.id)
	w.Header().Set(config.HHxTrigger, TriggerClose)
	w.Header().Set(config.HHxRedirect, h.EditPath(created.ID))
	w.WriteHeader(http.StatusOK)
}

// Cancel closes the dialog without saving.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(r)
	if !ok {
		http.Error(w, config.ErrDialogNotFound, http.StatusNotFound)
		return
	}

	s.dialog.Close()
	w.Header().Set(config.HHxTrigger, TriggerClose)
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) lookup(r *http.Request) (*session, bool) {
	s, ok := h.dialogs.Get(r.PathValue("dialog"))
	if !ok || s.owner != notices.SessionFromContext(r.Context()) {
		return nil, false
	}
	return s, true
}

// sweep drops dialogs that were never closed.
func (h *Handler) sweep() {
	cutoff := h.now().Add(-dialogTTL)
	for _, s := range h.dialogs.Values() {
		if s.opened.Before(cutoff) && !s.dialog.IsCreatingPage() {
			h.dialogs.Delete(s.id)
		}
	}
}

type modalData struct {
	ID    string
	Title string
	Busy  bool
	T     func(key message.Reference, args ...any) string
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, s *session, busy bool) {
	p := i18n.PrinterFromContext(r.Context())
	data := modalData{
		ID:    s.id,
		Title: s.dialog.Title(),
		Busy:  busy || s.dialog.IsCreatingPage(),
		T:     p.Sprintf,
	}

	var buf bytes.Buffer
	if err := modalTemplate.ExecuteTemplate(&buf, "new-page-modal", data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to render new page modal")
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
		return
	}

	w.Header().Set(config.HCType, config.CTypeHTML)
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
