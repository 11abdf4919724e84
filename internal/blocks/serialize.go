package blocks

import (
	"encoding/json"
	"reflect"
	"strings"
)

// Serialize converts blocks into the stored content string: each block is
// wrapped in <!-- wp:name {attrs} --> delimiters and blocks are separated by
// a blank line.
func (r *Registry) Serialize(blocks []Block) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, r.serializeBlock(b))
	}
	return strings.Join(parts, "\n\n")
}

func Serialize(blocks []Block) string {
	return defaultRegistry.Serialize(blocks)
}

func (r *Registry) serializeBlock(b Block) string {
	bt, ok := r.Get(b.Name)
	if !ok {
		// Unknown blocks keep whatever attributes they carry and no markup.
		return commentDelimited(normalizeName(b.Name), b.Attributes, "")
	}

	inner := r.Serialize(b.InnerBlocks)
	content := bt.Save(b.Attributes, inner)
	return commentDelimited(bt.Name, bt.commentAttributes(b.Attributes), content)
}

// commentAttributes keeps the attributes that are neither sourced from the
// markup nor equal to their default.
func (bt *BlockType) commentAttributes(attrs map[string]any) map[string]any {
	out := make(map[string]any)
	for key, value := range attrs {
		schema, declared := bt.Attributes[key]
		if !declared || value == nil {
			continue
		}
		if schema.Source == SourceHTML {
			continue
		}
		if schema.Default != nil && reflect.DeepEqual(schema.Default, value) {
			continue
		}
		out[key] = value
	}
	return out
}

func commentDelimited(name string, attrs map[string]any, content string) string {
	serializedAttrs := ""
	if len(attrs) > 0 {
		serializedAttrs = serializeAttributes(attrs) + " "
	}

	serializedName := strings.TrimPrefix(name, "core/")

	if content == "" {
		return "<!-- wp:" + serializedName + " " + serializedAttrs + "/-->"
	}

	return "<!-- wp:" + serializedName + " " + serializedAttrs + "-->\n" +
		content +
		"\n<!-- /wp:" + serializedName + " -->"
}

// serializeAttributes encodes attributes as JSON that cannot terminate or
// confuse the surrounding HTML comment. encoding/json already escapes <, >
// and & as \u003c, \u003e and \u0026.
func serializeAttributes(attrs map[string]any) string {
	data, err := json.Marshal(attrs)
	if err != nil {
		return "{}"
	}
	s := string(data)
	s = strings.ReplaceAll(s, "--", `\u002d\u002d`)
	s = strings.ReplaceAll(s, `\"`, `\u0022`)
	return s
}
