package notices

import (
	"net/http"

	"github.com/debemdeboas/pagedraft/internal/sse"
)

const (
	StreamPath  = "/notices/stream"
	DismissPath = "/notices/{id}"
)

type Handler struct {
	bus     *Bus
	clients *sse.SSEClients
}

func NewHandler(bus *Bus, clients *sse.SSEClients) *Handler {
	return &Handler{bus: bus, clients: clients}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET "+StreamPath, h.Stream)
	mux.HandleFunc("DELETE "+DismissPath, h.Dismiss)
}

// Stream sends the session's notices as server-sent events, starting with
// the ones created before the page connected.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	session := SessionFromContext(r.Context())

	pending := h.bus.Pending(session)
	backlog := make([]sse.Event, 0, len(pending))
	for _, n := range pending {
		backlog = append(backlog, sse.Event{Name: EventNotice, Data: Render(n)})
	}

	h.clients.Serve(w, r, session, backlog...)
}

func (h *Handler) Dismiss(w http.ResponseWriter, r *http.Request) {
	if !h.bus.RemoveNotice(SessionFromContext(r.Context()), r.PathValue("id")) {
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
