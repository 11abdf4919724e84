package blocks

// SynchronizeBlocksWithTemplate reconciles blocks with a post type template.
// Blocks whose position and name match the template are kept (their inner
// blocks synchronised recursively), every other template slot gets a freshly
// created block, and blocks beyond the template's length are dropped.
// A nil template leaves blocks untouched.
func (r *Registry) SynchronizeBlocksWithTemplate(blocks []Block, template []TemplateEntry) ([]Block, error) {
	if template == nil {
		return blocks, nil
	}

	out := make([]Block, 0, len(template))
	for i, entry := range template {
		if i < len(blocks) && blocks[i].Name == normalizeName(entry.Name) {
			inner, err := r.SynchronizeBlocksWithTemplate(blocks[i].InnerBlocks, entry.InnerBlocks)
			if err != nil {
				return nil, err
			}
			kept := blocks[i]
			kept.InnerBlocks = inner
			out = append(out, kept)
			continue
		}

		inner, err := r.SynchronizeBlocksWithTemplate(nil, entry.InnerBlocks)
		if err != nil {
			return nil, err
		}
		block, err := r.CreateBlock(entry.Name, entry.Attributes, inner)
		if err != nil {
			return nil, err
		}
		out = append(out, block)
	}

	return out, nil
}

func SynchronizeBlocksWithTemplate(blocks []Block, template []TemplateEntry) ([]Block, error) {
	return defaultRegistry.SynchronizeBlocksWithTemplate(blocks, template)
}
