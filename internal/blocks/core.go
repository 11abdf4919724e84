package blocks

import (
	"fmt"
	"html"
	"strings"
)

func newCoreRegistry() *Registry {
	r := NewRegistry()
	for _, bt := range coreBlockTypes() {
		if err := r.Register(bt); err != nil {
			panic(err)
		}
	}
	return r
}

func coreBlockTypes() []BlockType {
	return []BlockType{
		{
			Name:  "core/paragraph",
			Title: "Paragraph",
			Attributes: map[string]Attribute{
				"content":     {Type: TypeString, Default: "", Source: SourceHTML},
				"align":       {Type: TypeString},
				"dropCap":     {Type: TypeBoolean, Default: false},
				"placeholder": {Type: TypeString},
			},
			Save: func(attrs map[string]any, _ string) string {
				classes := classList(attrs)
				if align := str(attrs, "align"); align != "" {
					classes = append(classes, "has-text-align-"+align)
				}
				if b, _ := attrs["dropCap"].(bool); b {
					classes = append(classes, "has-drop-cap")
				}
				return "<p" + classAttr(classes) + ">" + str(attrs, "content") + "</p>"
			},
		},
		{
			Name:  "core/heading",
			Title: "Heading",
			Attributes: map[string]Attribute{
				"content":     {Type: TypeString, Default: "", Source: SourceHTML},
				"level":       {Type: TypeInteger, Default: 2},
				"textAlign":   {Type: TypeString},
				"placeholder": {Type: TypeString},
			},
			Save: func(attrs map[string]any, _ string) string {
				level, _ := attrs["level"].(int)
				if level < 1 || level > 6 {
					level = 2
				}
				classes := append([]string{"wp-block-heading"}, classList(attrs)...)
				if align := str(attrs, "textAlign"); align != "" {
					classes = append(classes, "has-text-align-"+align)
				}
				return fmt.Sprintf("<h%d%s>%s</h%d>", level, classAttr(classes), str(attrs, "content"), level)
			},
		},
		{
			Name:  "core/list",
			Title: "List",
			Attributes: map[string]Attribute{
				"ordered": {Type: TypeBoolean, Default: false},
			},
			Save: func(attrs map[string]any, inner string) string {
				tag := "ul"
				if b, _ := attrs["ordered"].(bool); b {
					tag = "ol"
				}
				classes := append([]string{"wp-block-list"}, classList(attrs)...)
				return "<" + tag + classAttr(classes) + ">" + inner + "</" + tag + ">"
			},
		},
		{
			Name:  "core/list-item",
			Title: "List item",
			Attributes: map[string]Attribute{
				"content":     {Type: TypeString, Default: "", Source: SourceHTML},
				"placeholder": {Type: TypeString},
			},
			Save: func(attrs map[string]any, inner string) string {
				return "<li" + classAttr(classList(attrs)) + ">" + str(attrs, "content") + inner + "</li>"
			},
		},
		{
			Name:  "core/quote",
			Title: "Quote",
			Attributes: map[string]Attribute{
				"citation": {Type: TypeString, Default: "", Source: SourceHTML},
			},
			Save: func(attrs map[string]any, inner string) string {
				classes := append([]string{"wp-block-quote"}, classList(attrs)...)
				var b strings.Builder
				b.WriteString("<blockquote" + classAttr(classes) + ">")
				b.WriteString(inner)
				if cite := str(attrs, "citation"); cite != "" {
					b.WriteString("<cite>" + cite + "</cite>")
				}
				b.WriteString("</blockquote>")
				return b.String()
			},
		},
		{
			Name:  "core/group",
			Title: "Group",
			Attributes: map[string]Attribute{
				"tagName": {Type: TypeString, Default: "div"},
				"layout":  {Type: TypeObject},
			},
			Save: func(attrs map[string]any, inner string) string {
				tag := str(attrs, "tagName")
				switch tag {
				case "div", "section", "main", "aside", "header", "footer", "article":
				default:
					tag = "div"
				}
				classes := append([]string{"wp-block-group"}, classList(attrs)...)
				return "<" + tag + classAttr(classes) + ">" + inner + "</" + tag + ">"
			},
		},
		{
			Name:  "core/columns",
			Title: "Columns",
			Attributes: map[string]Attribute{
				"isStackedOnMobile": {Type: TypeBoolean, Default: true},
			},
			Save: func(attrs map[string]any, inner string) string {
				classes := append([]string{"wp-block-columns"}, classList(attrs)...)
				if b, _ := attrs["isStackedOnMobile"].(bool); !b {
					classes = append(classes, "is-not-stacked-on-mobile")
				}
				return "<div" + classAttr(classes) + ">" + inner + "</div>"
			},
		},
		{
			Name:  "core/column",
			Title: "Column",
			Attributes: map[string]Attribute{
				"width": {Type: TypeString},
			},
			Save: func(attrs map[string]any, inner string) string {
				classes := append([]string{"wp-block-column"}, classList(attrs)...)
				style := ""
				if width := str(attrs, "width"); width != "" {
					style = ` style="flex-basis:` + html.EscapeString(width) + `"`
				}
				return "<div" + classAttr(classes) + style + ">" + inner + "</div>"
			},
		},
		{
			Name:       "core/separator",
			Title:      "Separator",
			Attributes: map[string]Attribute{},
			Save: func(attrs map[string]any, _ string) string {
				classes := append([]string{"wp-block-separator", "has-alpha-channel-opacity"}, classList(attrs)...)
				return "<hr" + classAttr(classes) + "/>"
			},
		},
		{
			Name:  "core/code",
			Title: "Code",
			Attributes: map[string]Attribute{
				"content":  {Type: TypeString, Default: "", Source: SourceHTML},
				"language": {Type: TypeString},
			},
			Save: func(attrs map[string]any, _ string) string {
				classes := append([]string{"wp-block-code"}, classList(attrs)...)
				return "<pre" + classAttr(classes) + "><code>" + str(attrs, "content") + "</code></pre>"
			},
		},
		{
			Name:  "core/image",
			Title: "Image",
			Attributes: map[string]Attribute{
				"url": {Type: TypeString, Source: SourceHTML},
				"alt": {Type: TypeString, Default: "", Source: SourceHTML},
				"id":  {Type: TypeInteger},
			},
			Save: func(attrs map[string]any, _ string) string {
				classes := append([]string{"wp-block-image"}, classList(attrs)...)
				img := "<img"
				if url := str(attrs, "url"); url != "" {
					img += ` src="` + html.EscapeString(url) + `"`
				}
				img += ` alt="` + html.EscapeString(str(attrs, "alt")) + `"/>`
				return "<figure" + classAttr(classes) + ">" + img + "</figure>"
			},
		},
		{
			// Markdown is kept in the comment and rendered when the page is viewed.
			Name:  "archive/markdown",
			Title: "Markdown",
			Attributes: map[string]Attribute{
				"source": {Type: TypeString, Default: ""},
			},
			Save: func(map[string]any, string) string {
				return ""
			},
		},
	}
}

func str(attrs map[string]any, key string) string {
	s, _ := attrs[key].(string)
	return s
}

func classList(attrs map[string]any) []string {
	return strings.Fields(str(attrs, "className"))
}

func classAttr(classes []string) string {
	if len(classes) == 0 {
		return ""
	}
	return ` class="` + html.EscapeString(strings.Join(classes, " ")) + `"`
}
