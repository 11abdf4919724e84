// Package blocks implements the block markup used for stored page content:
// a registry of block types, template synchronisation, serialisation to
// comment-delimited HTML and parsing back.
package blocks

import (
	"errors"
	"fmt"
)

// ErrUnregisteredBlock is returned when a template or a caller names a block
// type the registry does not know.
var ErrUnregisteredBlock = errors.New("block type is not registered")

// Block is one node of a page's block tree.
type Block struct {
	Name        string
	Attributes  map[string]any
	InnerBlocks []Block
}

// TemplateEntry describes a block a post type starts with. Templates are
// written in TOML:
//
//	[[blocks]]
//	name = "core/heading"
//	[blocks.attributes]
//	placeholder = "Page heading"
type TemplateEntry struct {
	Name        string          `toml:"name" json:"name"`
	Attributes  map[string]any  `toml:"attributes" json:"attributes,omitempty"`
	InnerBlocks []TemplateEntry `toml:"inner" json:"innerBlocks,omitempty"`
}

// CreateBlock builds a block of a registered type. Attributes not declared by
// the type are dropped and missing ones take the type's defaults.
func (r *Registry) CreateBlock(name string, attributes map[string]any, inner []Block) (Block, error) {
	bt, ok := r.Get(name)
	if !ok {
		return Block{}, fmt.Errorf("%w: %q", ErrUnregisteredBlock, name)
	}

	if inner == nil {
		inner = []Block{}
	}

	return Block{
		Name:        bt.Name,
		Attributes:  bt.sanitizeAttributes(attributes),
		InnerBlocks: inner,
	}, nil
}

func CreateBlock(name string, attributes map[string]any, inner []Block) (Block, error) {
	return defaultRegistry.CreateBlock(name, attributes, inner)
}
