package entity

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/pagedraft/internal/config"
	"github.com/debemdeboas/pagedraft/internal/model"
)

const (
	TypePath   = "/api/types/{name}"
	CreatePath = "/api/types/{name}/posts"
	RecordPath = "/api/posts/{id}"
)

// maxBodySize bounds a create request body.
const maxBodySize = 4 << 20

// Handler exposes the store as a small JSON API.
type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET "+TypePath, h.GetType)
	mux.HandleFunc("POST "+CreatePath, h.Create)
	mux.HandleFunc("GET "+RecordPath, h.GetRecord)
}

func (h *Handler) GetType(w http.ResponseWriter, r *http.Request) {
	pt, err := h.store.GetPostType(r.Context(), r.PathValue("name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, pt)
}

// Create saves a record of the post type in the path. The body carries
// status, title, slug and content.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var edits model.PostEdits
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&edits); err != nil {
		writeError(w, r, newError(CodeInvalidParam, config.ErrInvalidJSONBody, http.StatusBadRequest, err))
		return
	}

	post, err := h.store.SaveEntityRecord(r.Context(), KindPostType, r.PathValue("name"), edits, SaveOptions{ThrowOnError: true})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, post)
}

func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	post, err := h.store.GetRecord(r.Context(), model.PostID(r.PathValue("id")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, post)
}

type errorData struct {
	Status int `json:"status"`
}

type errorBody struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Data    errorData `json:"data"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := AsError(err)
	status := e.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if cause := errors.Unwrap(e); cause != nil && status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(cause).Str("code", e.Code).Msg("Request failed")
	}
	writeJSON(w, r, status, errorBody{Code: e.Code, Message: e.Message, Data: errorData{Status: status}})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set(config.HCType, config.CTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Failed to write response")
	}
}
