package sse

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/pagedraft/internal/config"
)

const clientBuffer = 16

// Write encodes event in the text/event-stream format.
func Write(w io.Writer, event Event) error {
	var b strings.Builder
	if event.Name != "" {
		fmt.Fprintf(&b, "event: %s\n", event.Name)
	}
	for _, line := range strings.Split(event.Data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// Serve streams the events of topic to w until the request ends. backlog is
// written right after the connected event, before any live event.
func (s *SSEClients) Serve(w http.ResponseWriter, r *http.Request, topic string, backlog ...Event) {
	l := zerolog.Ctx(r.Context())

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set(config.HCType, config.CTypeSSE)
	w.Header().Set(config.HCacheControl, "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Del("X-Content-Type-Options")

	Write(w, Event{Name: "connected", Data: "SSE connection established"})
	for _, event := range backlog {
		if err := Write(w, event); err != nil {
			return
		}
	}
	flusher.Flush()

	client := NewClient(topic, clientBuffer)
	s.Add(client)
	l.Debug().Str("topic", topic).Msg("SSE client connected")

	defer func() {
		s.Delete(client)
		l.Debug().Str("topic", topic).Msg("SSE client disconnected")
	}()

	done := r.Context().Done()
	for {
		select {
		case event, ok := <-client.Msg:
			if !ok {
				return
			}
			if err := Write(w, event); err != nil {
				return
			}
			flusher.Flush()
		case <-done:
			return
		}
	}
}
