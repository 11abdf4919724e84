package blocks

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ParsedBlock is a block read back from stored content. Name is empty for
// freeform HTML found between blocks.
type ParsedBlock struct {
	Name         string
	Attributes   map[string]any
	InnerBlocks  []ParsedBlock
	InnerHTML    string
	InnerContent []ContentPart
}

// ContentPart is either a run of HTML or a slot filled by the next inner block.
type ContentPart struct {
	HTML    string
	IsBlock bool
}

var blockDelimiter = regexp.MustCompile(`(?s)<!--\s+(/)?wp:([a-z][a-z0-9_-]*/)?([a-z][a-z0-9_-]*)\s+(\{.*?\}\s+)?(/)?-->`)

// Parse reads comment-delimited block markup. It is lenient: unclosed blocks
// are closed at the end of the document and stray closers close the
// innermost open block.
func Parse(document string) []ParsedBlock {
	var (
		output []ParsedBlock
		stack  []*ParsedBlock
		offset int
	)

	addFreeform := func(text string) {
		if len(stack) > 0 {
			top := stack[len(stack)-1]
			top.InnerHTML += text
			top.InnerContent = append(top.InnerContent, ContentPart{HTML: text})
			return
		}
		if strings.TrimSpace(text) != "" {
			output = append(output, ParsedBlock{
				InnerHTML:    text,
				InnerContent: []ContentPart{{HTML: text}},
			})
		}
	}

	addBlock := func(b ParsedBlock) {
		if len(stack) > 0 {
			top := stack[len(stack)-1]
			top.InnerBlocks = append(top.InnerBlocks, b)
			top.InnerContent = append(top.InnerContent, ContentPart{IsBlock: true})
			return
		}
		output = append(output, b)
	}

	for _, m := range blockDelimiter.FindAllStringSubmatchIndex(document, -1) {
		if m[0] > offset {
			addFreeform(document[offset:m[0]])
		}
		offset = m[1]

		isCloser := m[2] != -1
		isVoid := m[10] != -1
		namespace := "core/"
		if m[4] != -1 {
			namespace = document[m[4]:m[5]]
		}
		name := namespace + document[m[6]:m[7]]

		if isCloser {
			if len(stack) == 0 {
				continue
			}
			closed := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			addBlock(*closed)
			continue
		}

		block := &ParsedBlock{
			Name:       name,
			Attributes: map[string]any{},
		}
		if m[8] != -1 {
			raw := strings.TrimSpace(document[m[8]:m[9]])
			if err := json.Unmarshal([]byte(raw), &block.Attributes); err != nil {
				block.Attributes = map[string]any{}
			}
		}

		if isVoid {
			addBlock(*block)
			continue
		}
		stack = append(stack, block)
	}

	if offset < len(document) {
		addFreeform(document[offset:])
	}

	for len(stack) > 0 {
		closed := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		addBlock(*closed)
	}

	return output
}
