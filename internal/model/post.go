// Package model defines core data structures and types for the archive.
package model

import (
	"html"
	"time"
)

type PostID string

type UserID string

const (
	StatusDraft   = "draft"
	StatusPublish = "publish"
	StatusPending = "pending"
	StatusPrivate = "private"
)

// ValidStatus reports whether status is one a record may be stored with.
func ValidStatus(status string) bool {
	switch status {
	case StatusDraft, StatusPublish, StatusPending, StatusPrivate:
		return true
	}
	return false
}

// RenderedField pairs the stored value with its display form.
type RenderedField struct {
	Raw      string `json:"raw"`
	Rendered string `json:"rendered,omitempty"`
}

// NewTitle builds a title field whose rendered form is the escaped raw text.
func NewTitle(raw string) RenderedField {
	return RenderedField{Raw: raw, Rendered: html.EscapeString(raw)}
}

// Post is a stored content record of any post type (pages included).
type Post struct {
	ID     PostID `json:"id"`
	Type   string `json:"type"`
	Status string `json:"status"`
	Slug   string `json:"slug"`

	Title   RenderedField `json:"title"`
	Content RenderedField `json:"content"`

	// Used for cache busting of the rendered content.
	ContentHash string `json:"content_hash,omitempty"`

	CreatedDate  time.Time `json:"date"`
	ModifiedDate time.Time `json:"modified"`

	Owner UserID `json:"author"`
}

// DisplayTitle returns the rendered title, falling back to the raw one.
func (p *Post) DisplayTitle() string {
	if p.Title.Rendered != "" {
		return p.Title.Rendered
	}
	return p.Title.Raw
}

// PostEdits are the fields a client sends to create a record. A nil Content
// leaves the content unset.
type PostEdits struct {
	Status  string  `json:"status"`
	Title   string  `json:"title"`
	Slug    string  `json:"slug"`
	Content *string `json:"content,omitempty"`
}
