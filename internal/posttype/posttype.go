// Package posttype resolves the post types configured for the site, loading
// their block templates from TOML files.
package posttype

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/pagedraft/internal/blocks"
	"github.com/debemdeboas/pagedraft/internal/config"
	"github.com/debemdeboas/pagedraft/internal/model"
)

// ErrUnknownType is returned for names no configured post type carries.
var ErrUnknownType = errors.New("unknown post type")

//go:embed templates/*.toml
var embeddedTemplates embed.FS

var typeLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	typeLogger = l
}

type templateFile struct {
	Blocks []blocks.TemplateEntry `toml:"blocks"`
}

// Registry holds the configured post types. Templates are read on first
// lookup of each type, so a broken template file only fails that type.
type Registry struct {
	mu       sync.Mutex
	configs  []config.PostTypeConfig
	override fs.FS
	loaded   map[string]*model.PostType
}

// NewRegistry builds a registry from configuration. templatesDir, when
// non-empty, is searched before the embedded templates.
func NewRegistry(types []config.PostTypeConfig, templatesDir string) *Registry {
	r := &Registry{
		configs: slices.Clone(types),
		loaded:  make(map[string]*model.PostType, len(types)),
	}
	if templatesDir != "" {
		r.override = os.DirFS(templatesDir)
	}
	return r
}

// FromConfig builds the registry for the loaded application configuration.
func FromConfig(cfg *config.Config) *Registry {
	types := cfg.PostTypes
	if len(types) == 0 {
		types = config.DefaultPostTypes()
	}
	return NewRegistry(types, cfg.Content.TemplatesDir)
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.configs))
	for _, c := range r.configs {
		names = append(names, c.Name)
	}
	return names
}

// Get returns the post type named name with its template loaded.
func (r *Registry) Get(name string) (*model.PostType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if pt, ok := r.loaded[name]; ok {
		return pt, nil
	}

	idx := slices.IndexFunc(r.configs, func(c config.PostTypeConfig) bool { return c.Name == name })
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	cfg := r.configs[idx]

	pt := &model.PostType{
		Name:         cfg.Name,
		Label:        cfg.Label,
		TemplateLock: cfg.TemplateLock,
	}
	if pt.Label == "" {
		pt.Label = cfg.Name
	}

	if cfg.TemplateFile != "" {
		template, err := r.loadTemplate(cfg.TemplateFile)
		if err != nil {
			return nil, fmt.Errorf("post type %q: %w", name, err)
		}
		pt.Template = template
	}

	typeLogger.Debug().
		Str("post_type", name).
		Int("template_blocks", len(pt.Template)).
		Msg("Loaded post type")

	r.loaded[name] = pt
	return pt, nil
}

// All returns every configured post type, skipping ones whose template
// cannot be read.
func (r *Registry) All() []*model.PostType {
	types := make([]*model.PostType, 0, len(r.configs))
	for _, name := range r.Names() {
		pt, err := r.Get(name)
		if err != nil {
			typeLogger.Warn().Err(err).Str("post_type", name).Msg("Skipping post type")
			continue
		}
		types = append(types, pt)
	}
	return types
}

func (r *Registry) loadTemplate(file string) ([]blocks.TemplateEntry, error) {
	file = filepath.ToSlash(filepath.Clean(file))
	if !fs.ValidPath(file) {
		return nil, fmt.Errorf("invalid template path %q", file)
	}

	var data []byte
	var err error
	if r.override != nil {
		data, err = fs.ReadFile(r.override, file)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read template %q: %w", file, err)
		}
	}
	if data == nil {
		data, err = fs.ReadFile(embeddedTemplates, "templates/"+file)
		if err != nil {
			return nil, fmt.Errorf("failed to read template %q: %w", file, err)
		}
	}

	var tf templateFile
	if _, err := toml.Decode(string(data), &tf); err != nil {
		return nil, fmt.Errorf("failed to decode template %q: %w", file, err)
	}
	return tf.Blocks, nil
}
