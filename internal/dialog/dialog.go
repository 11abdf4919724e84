// Package dialog implements the "Draft a new page" dialog: it creates a
// draft page from a title and reports the outcome as a notice.
package dialog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/text/message"

	"github.com/debemdeboas/pagedraft/internal/blocks"
	"github.com/debemdeboas/pagedraft/internal/entity"
	"github.com/debemdeboas/pagedraft/internal/model"
	"github.com/debemdeboas/pagedraft/internal/notices"
	"github.com/debemdeboas/pagedraft/internal/util"
)

const pagePostType = "page"

const (
	msgNoTitle      = "No title"
	msgCreated      = "\"%s\" successfully created."
	msgCreateFailed = "An error occurred while creating the page."
)

// EntityStore is the record store the dialog writes through.
type EntityStore interface {
	GetPostType(ctx context.Context, name string) (*model.PostType, error)
	SaveEntityRecord(ctx context.Context, kind, name string, edits model.PostEdits, opts entity.SaveOptions) (*model.Post, error)
}

// Notifier publishes the notices the dialog reports outcomes with.
type Notifier interface {
	CreateSuccessNotice(ctx context.Context, content string, opts notices.Options) notices.Notice
	CreateErrorNotice(ctx context.Context, content string, opts notices.Options) notices.Notice
}

type Option func(*Dialog)

// OnSave is called with the created record before the success notice.
func OnSave(fn func(*model.Post)) Option {
	return func(d *Dialog) { d.onSave = fn }
}

// OnClose is called by Close.
func OnClose(fn func()) Option {
	return func(d *Dialog) { d.onClose = fn }
}

type Dialog struct {
	store    EntityStore
	notifier Notifier
	printer  *message.Printer

	onSave  func(*model.Post)
	onClose func()

	mu    sync.RWMutex
	title string

	isCreatingPage atomic.Bool
}

func New(store EntityStore, notifier Notifier, printer *message.Printer, opts ...Option) *Dialog {
	d := &Dialog{
		store:    store,
		notifier: notifier,
		printer:  printer,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dialog) Title() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.title
}

func (d *Dialog) SetTitle(title string) {
	d.mu.Lock()
	d.title = title
	d.mu.Unlock()
}

// IsCreatingPage reports whether a submission is in flight.
func (d *Dialog) IsCreatingPage() bool {
	return d.isCreatingPage.Load()
}

// Close runs the OnClose callback.
func (d *Dialog) Close() {
	if d.onClose != nil {
		d.onClose()
	}
}

// Submit creates a draft page from the current title and publishes a notice
// with the outcome. It returns false without doing anything when another
// submission is still in flight. Failures never escape: they become an
// error notice and leave the dialog ready for another attempt.
func (d *Dialog) Submit(ctx context.Context) bool {
	if !d.isCreatingPage.CompareAndSwap(false, true) {
		return false
	}
	defer d.isCreatingPage.Store(false)

	d.submit(ctx, d.Title())
	return true
}

// SubmitTitle is Submit for a form that carries its own title. The title is
// bound only once the guard is held, so a losing request leaves the title
// of the one in flight untouched.
func (d *Dialog) SubmitTitle(ctx context.Context, title string) bool {
	if !d.isCreatingPage.CompareAndSwap(false, true) {
		return false
	}
	defer d.isCreatingPage.Store(false)

	d.SetTitle(title)
	d.submit(ctx, title)
	return true
}

func (d *Dialog) submit(ctx context.Context, title string) {
	l := zerolog.Ctx(ctx)

	record, err := d.createPage(ctx, title)
	if err != nil {
		l.Debug().Err(err).Msg("Page creation failed")
		d.notifier.CreateErrorNotice(ctx, d.errorMessage(err), notices.Options{Type: notices.TypeSnackbar})
		return
	}

	if d.onSave != nil {
		d.onSave(record)
	}

	display := record.Title.Rendered
	if display == "" {
		display = title
	}
	d.notifier.CreateSuccessNotice(ctx,
		d.printer.Sprintf(msgCreated, util.DecodeEntities(display)),
		notices.Options{Type: notices.TypeSnackbar},
	)
}

func (d *Dialog) createPage(ctx context.Context, title string) (*model.Post, error) {
	pt, err := d.store.GetPostType(ctx, pagePostType)
	if err != nil {
		return nil, err
	}

	var content *string
	if pt.HasTemplate() {
		synced, err := blocks.SynchronizeBlocksWithTemplate(nil, pt.Template)
		if err != nil {
			return nil, err
		}
		serialized := blocks.Serialize(synced)
		content = &serialized
	}

	slug := title
	if slug == "" {
		slug = d.printer.Sprintf(msgNoTitle)
	}

	record, err := d.store.SaveEntityRecord(ctx, entity.KindPostType, pagePostType, model.PostEdits{
		Status:  model.StatusDraft,
		Title:   title,
		Slug:    slug,
		Content: content,
	}, entity.SaveOptions{ThrowOnError: true})
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, errors.New("store returned no record")
	}
	return record, nil
}

// errorMessage surfaces the store's message unless it is the generic
// unknown error. Errors that are not *entity.Error carry no user-facing
// message and get the generic one.
func (d *Dialog) errorMessage(err error) string {
	var e *entity.Error
	if errors.As(err, &e) && e.Message != "" && e.Code != entity.CodeUnknown {
		return e.Message
	}
	return d.printer.Sprintf(msgCreateFailed)
}
