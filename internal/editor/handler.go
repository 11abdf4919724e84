// Package editor serves the page list and the page editor view.
package editor

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"maps"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/pagedraft/internal/auth"
	"github.com/debemdeboas/pagedraft/internal/config"
	"github.com/debemdeboas/pagedraft/internal/entity"
	"github.com/debemdeboas/pagedraft/internal/i18n"
	"github.com/debemdeboas/pagedraft/internal/model"
	"github.com/debemdeboas/pagedraft/internal/render"
	"github.com/debemdeboas/pagedraft/internal/sse"
	"github.com/debemdeboas/pagedraft/internal/theme"
	"github.com/debemdeboas/pagedraft/internal/util"
)

const (
	IndexPath  = "/pages"
	EditPath   = "/pages/{id}/edit"
	EventsPath = "/pages/{id}/events"

	EventReload = "reload"
)

const pagePostType = "page"

var editorLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	editorLogger = l
}

// RecordReader reads stored records.
type RecordReader interface {
	GetRecord(ctx context.Context, id model.PostID) (*model.Post, error)
	ListRecords(postType string) []model.Post
}

type Handler struct {
	records  RecordReader
	provider auth.AuthProvider
	clients  *sse.SSEClients

	index  *template.Template
	editor *template.Template
}

var statusLabels = map[string]string{
	model.StatusDraft:   "Draft",
	model.StatusPublish: "Published",
	model.StatusPending: "Pending",
	model.StatusPrivate: "Private",
}

func funcs() template.FuncMap {
	fm := i18n.TemplateFuncs()
	maps.Copy(fm, template.FuncMap{
		"statusLabel": func(status string) string {
			if label, ok := statusLabels[status]; ok {
				return label
			}
			return status
		},
		"editPath": func(id model.PostID) string {
			return fmt.Sprintf("/pages/%s/edit", id)
		},
		"decode": util.DecodeEntities,
	})
	return fm
}

func parsePage(fsys fs.FS, page string) (*template.Template, error) {
	return template.New(config.TemplateLayout).Funcs(funcs()).ParseFS(
		fsys,
		config.TemplatesLocalDir+"/"+config.TemplateLayout,
		config.TemplatesLocalDir+"/"+page,
	)
}

func NewHandler(records RecordReader, provider auth.AuthProvider, clients *sse.SSEClients, fsys fs.FS) (*Handler, error) {
	index, err := parsePage(fsys, config.TemplateIndex)
	if err != nil {
		return nil, fmt.Errorf("error loading index template: %w", err)
	}
	editor, err := parsePage(fsys, config.TemplateEditor)
	if err != nil {
		return nil, fmt.Errorf("error loading editor template: %w", err)
	}

	return &Handler{
		records:  records,
		provider: provider,
		clients:  clients,
		index:    index,
		editor:   editor,
	}, nil
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.ServeIndex)
	mux.HandleFunc("GET "+IndexPath, h.ServeIndex)
	mux.HandleFunc("GET "+EditPath, h.ServeEditor)
	mux.HandleFunc("GET "+EventsPath, h.ServeEvents)
}

// PageTopic is the event stream topic of one page.
func PageTopic(id model.PostID) string {
	return "page:" + string(id)
}

// ServeEvents streams reload events for the page being edited.
func (h *Handler) ServeEvents(w http.ResponseWriter, r *http.Request) {
	h.clients.Serve(w, r, PageTopic(model.PostID(r.PathValue("id"))))
}

// NotifyReload tells open editors that a page changed and renders its new
// content ahead of the next view.
func (h *Handler) NotifyReload(id model.PostID) {
	post, err := h.records.GetRecord(context.Background(), id)
	if err != nil {
		editorLogger.Warn().Err(err).Str("post_id", string(id)).Msg("Changed page could not be read")
		return
	}

	render.WarmCache(post.Content.Raw, post.ContentHash, theme.GetDefaultSyntaxTheme(config.DefaultTheme))
	h.clients.Publish(PageTopic(id), sse.Event{Name: EventReload, Data: post.ContentHash})
}

// ServeIndex lists the stored pages, newest first.
func (h *Handler) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data := struct {
		*model.PageData
		Pages []model.Post
	}{
		PageData: model.NewPageData(r, i18n.TagFromContext(r.Context()).String()),
		Pages:    h.records.ListRecords(pagePostType),
	}

	h.execute(w, r, h.index, data)
}

func (h *Handler) ServeEditor(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.EnforceUserAndGetID(h.provider, w, r); err != nil {
		return
	}

	post, err := h.records.GetRecord(r.Context(), model.PostID(r.PathValue("id")))
	if err != nil {
		var e *entity.Error
		if errors.As(err, &e) && e.Code == entity.CodeNotFound {
			http.Error(w, config.ErrPageNotFound, http.StatusNotFound)
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to read page")
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
		return
	}

	pageData := model.NewPageData(r, i18n.TagFromContext(r.Context()).String())

	var source template.HTML
	if post.Content.Raw != "" {
		highlighted, err := render.HighlightSource(post.Content.Raw, "html", pageData.SyntaxTheme)
		if err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Failed to highlight page source")
		}
		source = template.HTML(highlighted)
	}

	data := struct {
		*model.PageData
		Post    *model.Post
		Preview template.HTML
		Source  template.HTML
	}{
		PageData: pageData,
		Post:     post,
		Preview:  template.HTML(render.RenderContentCached(post.Content.Raw, post.ContentHash, pageData.SyntaxTheme)),
		Source:   source,
	}

	w.Header().Set(config.HETag, util.ContentHashString(post.ContentHash+data.Theme+data.SyntaxTheme+data.Lang))
	h.execute(w, r, h.editor, data)
}

func (h *Handler) execute(w http.ResponseWriter, r *http.Request, tmpl *template.Template, data any) {
	w.Header().Set(config.HCType, config.CTypeHTML)
	if err := tmpl.ExecuteTemplate(w, config.TemplateLayout, data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to render template")
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
	}
}
