package blocks

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
)

const (
	TypeString  = "string"
	TypeBoolean = "boolean"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeObject  = "object"
	TypeArray   = "array"

	// SourceHTML marks attributes that live in the saved markup instead of
	// the block comment.
	SourceHTML = "html"
)

// Attribute declares one block attribute.
type Attribute struct {
	Type    string
	Default any
	Source  string
}

// SaveFunc renders a block's markup from its attributes and the already
// serialised inner blocks.
type SaveFunc func(attrs map[string]any, inner string) string

// BlockType is a registered kind of block.
type BlockType struct {
	Name       string
	Title      string
	Attributes map[string]Attribute
	Save       SaveFunc
}

// Every block type accepts these.
var globalAttributes = map[string]Attribute{
	"className": {Type: TypeString},
	"lock":      {Type: TypeObject},
}

type Registry struct {
	mu    sync.RWMutex
	types map[string]*BlockType
}

func NewRegistry() *Registry {
	return &Registry{
		types: make(map[string]*BlockType),
	}
}

var defaultRegistry = newCoreRegistry()

// Default returns the process-wide registry holding the core block types.
func Default() *Registry {
	return defaultRegistry
}

func (r *Registry) Register(bt BlockType) error {
	name := normalizeName(bt.Name)
	if !strings.Contains(name, "/") || strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") {
		return fmt.Errorf("block name %q must be namespaced", bt.Name)
	}
	if bt.Save == nil {
		return fmt.Errorf("block type %q has no save function", name)
	}

	attrs := make(map[string]Attribute, len(bt.Attributes)+len(globalAttributes))
	for k, v := range globalAttributes {
		attrs[k] = v
	}
	for k, v := range bt.Attributes {
		attrs[k] = v
	}
	bt.Name = name
	bt.Attributes = attrs

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[name]; exists {
		return fmt.Errorf("block type %q is already registered", name)
	}
	r.types[name] = &bt
	return nil
}

func (r *Registry) Get(name string) (*BlockType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bt, ok := r.types[normalizeName(name)]
	return bt, ok
}

// Names returns the registered block names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func normalizeName(name string) string {
	if name != "" && !strings.Contains(name, "/") {
		return "core/" + name
	}
	return name
}

func (bt *BlockType) sanitizeAttributes(in map[string]any) map[string]any {
	out := make(map[string]any, len(bt.Attributes))
	for key, schema := range bt.Attributes {
		value, ok := in[key]
		if !ok || value == nil {
			if schema.Default == nil {
				continue
			}
			value = schema.Default
		}
		if coerced, ok := coerce(schema.Type, value); ok {
			out[key] = coerced
		}
	}
	return out
}

// coerce maps decoded TOML/JSON values onto the attribute's declared type.
func coerce(typ string, value any) (any, bool) {
	switch typ {
	case TypeString:
		s, ok := value.(string)
		return s, ok
	case TypeBoolean:
		b, ok := value.(bool)
		return b, ok
	case TypeInteger:
		switch v := value.(type) {
		case int:
			return v, true
		case int64:
			return int(v), true
		case float64:
			if v == math.Trunc(v) {
				return int(v), true
			}
		}
		return nil, false
	case TypeNumber:
		switch v := value.(type) {
		case int:
			return float64(v), true
		case int64:
			return float64(v), true
		case float64:
			return v, true
		}
		return nil, false
	default:
		return value, true
	}
}
