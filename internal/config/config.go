package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var configLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	configLogger = l
}

// SupportedVersion is the only configuration file version this build understands.
const SupportedVersion = "1"

// Config represents the complete configuration structure
type Config struct {
	Version   string           `yaml:"version" default:"1"`
	Site      SiteConfig       `yaml:"site"`
	Server    ServerConfig     `yaml:"server"`
	Storage   StorageConfig    `yaml:"storage"`
	Content   ContentConfig    `yaml:"content"`
	PostTypes []PostTypeConfig `yaml:"post_types"`
	I18n      I18nConfig       `yaml:"i18n"`
	Theme     ThemeConfig      `yaml:"theme"`
	Features  FeaturesConfig   `yaml:"features"`
	Logging   LoggingConfig    `yaml:"logging"`
}

type LoggingConfig struct {
	Level string `yaml:"level" default:"info"`
}

type SiteConfig struct {
	Name        string `yaml:"name" default:"Pagedraft"`
	Description string `yaml:"description" default:"Draft pages for the archive"`
}

type ServerConfig struct {
	Host string `yaml:"host" default:"0.0.0.0"`
	Port string `yaml:"port" default:"12600"`
}

type StorageConfig struct {
	Backend string       `yaml:"backend" default:"sqlite"`
	SQLite  SQLiteConfig `yaml:"sqlite"`
	S3      S3Config     `yaml:"s3"`
}

type SQLiteConfig struct {
	Path string `yaml:"path" default:"./database.db"`
}

type S3Config struct {
	Bucket string `yaml:"bucket" default:"the-archive"`
	Prefix string `yaml:"prefix" default:"pages/"`
}

// PostTypeConfig declares a post type. TemplateFile names a TOML block
// template, looked up in Content.TemplatesDir and then in the embedded defaults.
type PostTypeConfig struct {
	Name         string `yaml:"name"`
	Label        string `yaml:"label"`
	TemplateFile string `yaml:"template_file"`
	TemplateLock string `yaml:"template_lock"`
}

type I18nConfig struct {
	DefaultLocale string `yaml:"default_locale" default:"en-US"`
}

type ThemeConfig struct {
	Default            string       `yaml:"default" default:"dark"`
	SyntaxHighlighting SyntaxConfig `yaml:"syntax_highlighting"`
}

type ContentConfig struct {
	// TemplatesDir overrides the embedded block templates when set.
	TemplatesDir string `yaml:"templates_dir"`
}

type SyntaxConfig struct {
	DefaultDark  string `yaml:"default_dark" default:"gruvbox"`
	DefaultLight string `yaml:"default_light" default:"catppuccin-latte"`
}

type FeaturesConfig struct {
	Authentication AuthConfig   `yaml:"authentication"`
	Editor         EditorConfig `yaml:"editor"`
}

type AuthConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Type    string `yaml:"type" default:"ed25519"`
}

type EditorConfig struct {
	Enabled bool `yaml:"enabled" default:"true"`
}

// DefaultPostTypes are used when the configuration file declares none.
func DefaultPostTypes() []PostTypeConfig {
	return []PostTypeConfig{
		{Name: "post", Label: "Posts"},
		{Name: "page", Label: "Pages", TemplateFile: "page.toml"},
	}
}

var AppConfig = defaultConfig()

func defaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.PostTypes = DefaultPostTypes()
	return cfg
}

func LoadConfig(path string) error {
	config := &Config{}

	// Apply default values first
	applyDefaults(config)

	// Try to read and parse the config file
	data, err := os.ReadFile(path)
	if err != nil {
		// If file doesn't exist, just use defaults
		configLogger.Info().Str("path", path).Msg("Config file not found, using defaults")
		config.PostTypes = DefaultPostTypes()
		AppConfig = config
		return nil
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return err
	}

	if len(config.PostTypes) == 0 {
		config.PostTypes = DefaultPostTypes()
	}

	AppConfig = config
	return nil
}

// Validate reports configuration values this build cannot run with.
func (c *Config) Validate() error {
	if c.Version != SupportedVersion {
		return fmt.Errorf("unsupported configuration version %q", c.Version)
	}

	switch c.Storage.Backend {
	case StorageSQLite, StorageS3:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	seen := make(map[string]bool, len(c.PostTypes))
	for _, pt := range c.PostTypes {
		if pt.Name == "" {
			return fmt.Errorf("post type without a name")
		}
		if seen[pt.Name] {
			return fmt.Errorf("post type %q declared twice", pt.Name)
		}
		seen[pt.Name] = true
	}

	return nil
}

func ApplyDefaults(config interface{}) {
	applyDefaults(config)
}

func applyDefaults(config interface{}) {
	v := reflect.ValueOf(config)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.IsValid() || !field.CanSet() {
			continue
		}

		// Recursively apply defaults to nested structs
		if field.Kind() == reflect.Struct {
			applyDefaults(field.Addr().Interface())
			continue
		}

		defaultValue := fieldType.Tag.Get("default")
		if defaultValue == "" {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(defaultValue)
		case reflect.Bool:
			if val, err := strconv.ParseBool(defaultValue); err == nil {
				field.SetBool(val)
			}
		case reflect.Int:
			if val, err := strconv.ParseInt(defaultValue, 10, 64); err == nil {
				field.SetInt(val)
			}
		case reflect.Float64:
			if val, err := strconv.ParseFloat(defaultValue, 64); err == nil {
				field.SetFloat(val)
			}
		case reflect.Slice:
			if field.Len() == 0 && field.Type().Elem().Kind() == reflect.String {
				parts := strings.Split(defaultValue, ",")
				slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
				for j, part := range parts {
					slice.Index(j).SetString(strings.TrimSpace(part))
				}
				field.Set(slice)
			}
		default:
			configLogger.Warn().
				Str("field_name", fieldType.Name).
				Str("field_type", field.Kind().String()).
				Msg("Unsupported field type for default value")
		}
	}
}
