// Package notices keeps the user-facing notices of each browser session and
// pushes them to the session's event stream.
package notices

import (
	"bytes"
	"context"
	"html/template"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/pagedraft/internal/sse"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusInfo    = "info"
	StatusWarning = "warning"

	TypeDefault  = "default"
	TypeSnackbar = "snackbar"

	// GlobalContext collects notices created outside any browser session.
	GlobalContext = "global"

	EventNotice  = "notice"
	EventRemoved = "notice-removed"
)

// historyLimit bounds the notices kept per context.
const historyLimit = 20

var noticeLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	noticeLogger = l
}

type Options struct {
	// ID replaces any notice with the same ID. Generated when empty.
	ID string
	// Type is TypeDefault or TypeSnackbar. Empty means TypeDefault.
	Type string
	// Context overrides the session taken from ctx.
	Context string
	// Explicit snackbars stay until dismissed.
	ExplicitDismiss bool
}

type Notice struct {
	ID              string    `json:"id"`
	Status          string    `json:"status"`
	Content         string    `json:"content"`
	Type            string    `json:"type"`
	Context         string    `json:"context"`
	ExplicitDismiss bool      `json:"explicitDismiss"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Publisher delivers events to the subscribers of a topic.
type Publisher interface {
	Publish(topic string, event sse.Event)
}

type Bus struct {
	mu      sync.Mutex
	history map[string][]Notice

	publisher Publisher
}

func NewBus(publisher Publisher) *Bus {
	return &Bus{
		history:   make(map[string][]Notice),
		publisher: publisher,
	}
}

func (b *Bus) CreateSuccessNotice(ctx context.Context, content string, opts Options) Notice {
	return b.CreateNotice(ctx, StatusSuccess, content, opts)
}

func (b *Bus) CreateErrorNotice(ctx context.Context, content string, opts Options) Notice {
	return b.CreateNotice(ctx, StatusError, content, opts)
}

func (b *Bus) CreateInfoNotice(ctx context.Context, content string, opts Options) Notice {
	return b.CreateNotice(ctx, StatusInfo, content, opts)
}

func (b *Bus) CreateWarningNotice(ctx context.Context, content string, opts Options) Notice {
	return b.CreateNotice(ctx, StatusWarning, content, opts)
}

// CreateNotice records a notice for the session in ctx and publishes it.
func (b *Bus) CreateNotice(ctx context.Context, status, content string, opts Options) Notice {
	n := Notice{
		ID:              opts.ID,
		Status:          status,
		Content:         content,
		Type:            opts.Type,
		Context:         opts.Context,
		ExplicitDismiss: opts.ExplicitDismiss,
		CreatedAt:       time.Now().UTC(),
	}
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Type != TypeSnackbar {
		n.Type = TypeDefault
	}
	if n.Context == "" {
		n.Context = SessionFromContext(ctx)
	}

	b.mu.Lock()
	list := slices.DeleteFunc(b.history[n.Context], func(old Notice) bool { return old.ID == n.ID })
	list = append(list, n)
	if len(list) > historyLimit {
		list = slices.Clone(list[len(list)-historyLimit:])
	}
	b.history[n.Context] = list
	b.mu.Unlock()

	zerolog.Ctx(ctx).Debug().
		Str("notice_id", n.ID).
		Str("status", n.Status).
		Str("type", n.Type).
		Msg("Notice created")

	if b.publisher != nil {
		b.publisher.Publish(n.Context, sse.Event{Name: EventNotice, Data: Render(n)})
	}
	return n
}

// RemoveNotice dismisses a notice. It reports whether one was removed.
func (b *Bus) RemoveNotice(noticeContext, id string) bool {
	b.mu.Lock()
	list := b.history[noticeContext]
	kept := slices.DeleteFunc(slices.Clone(list), func(n Notice) bool { return n.ID == id })
	removed := len(kept) != len(list)
	if len(kept) == 0 {
		delete(b.history, noticeContext)
	} else {
		b.history[noticeContext] = kept
	}
	b.mu.Unlock()

	if removed && b.publisher != nil {
		b.publisher.Publish(noticeContext, sse.Event{Name: EventRemoved, Data: id})
	}
	return removed
}

// Notices returns the notices of a context, oldest first.
func (b *Bus) Notices(noticeContext string) []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.history[noticeContext])
}

// Pending returns the notices a newly connected page should show, oldest
// first. Snackbars that dismiss themselves are handed out once and dropped.
func (b *Bus) Pending(noticeContext string) []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.history[noticeContext]
	pending := slices.Clone(list)
	kept := slices.DeleteFunc(slices.Clone(list), func(n Notice) bool {
		return n.Type == TypeSnackbar && !n.ExplicitDismiss
	})
	if len(kept) == 0 {
		delete(b.history, noticeContext)
	} else {
		b.history[noticeContext] = kept
	}
	return pending
}

var noticeTemplate = template.Must(template.New("notice").Parse(
	`<div id="notice-{{.ID}}" class="notice is-{{.Status}} is-{{.Type}}" role="{{if eq .Status "error"}}alert{{else}}status{{end}}"` +
		`{{if and (eq .Type "snackbar") (not .ExplicitDismiss)}} data-autodismiss="true"{{end}}>` +
		`<span class="notice__content">{{.Content}}</span>` +
		`<button class="notice__dismiss" hx-delete="/notices/{{.ID}}" hx-swap="none" aria-label="Dismiss">&times;</button></div>`,
))

// Render returns the notice as a single-line HTML fragment.
func Render(n Notice) string {
	var buf bytes.Buffer
	if err := noticeTemplate.Execute(&buf, n); err != nil {
		noticeLogger.Error().Err(err).Str("notice_id", n.ID).Msg("Failed to render notice")
		return ""
	}
	return strings.ReplaceAll(buf.String(), "\n", " ")
}
