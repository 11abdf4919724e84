package model

import "github.com/debemdeboas/pagedraft/internal/blocks"

// PostType describes a kind of content record.
type PostType struct {
	Name  string `json:"slug"`
	Label string `json:"name"`

	// Template seeds the content of new records when non-empty.
	Template     []blocks.TemplateEntry `json:"template,omitempty"`
	TemplateLock string                 `json:"template_lock,omitempty"`
}

func (pt *PostType) HasTemplate() bool {
	return pt != nil && len(pt.Template) > 0
}
