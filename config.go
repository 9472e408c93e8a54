package mdsync

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config drives converter construction, pair discovery, and logging.
type Config struct {
	// SourceSuffix is appended to a rich surface id to find its markup source.
	SourceSuffix string
	Markdown     MarkdownConfig
	Logging      LoggingConfig
	// Deltas routes rich writes through Diff/ApplyDelta when the surface
	// supports it.
	Deltas bool
}

// MarkdownConfig selects the goldmark behaviour used by ToRichText.
type MarkdownConfig struct {
	Extensions    []string
	HardWraps     bool
	AutoHeadingID bool
}

// LoggingConfig mirrors the options exposed by the go-logger provider.
type LoggingConfig struct {
	Provider  string
	Level     string
	Format    string
	AddSource bool
	Focus     []string
}

// DefaultConfig returns the configuration used when callers supply none.
func DefaultConfig() Config {
	return Config{
		SourceSuffix: "_source",
		Markdown: MarkdownConfig{
			Extensions: []string{"strikethrough"},
		},
		Logging: LoggingConfig{
			Provider: "noop",
			Level:    "info",
			Format:   "console",
		},
		Deltas: true,
	}
}

// Validate reports configuration problems as a go-errors validation error.
func (cfg Config) Validate() error {
	err := validation.ValidateStruct(&cfg,
		validation.Field(&cfg.SourceSuffix, validation.Required),
		validation.Field(&cfg.Markdown),
		validation.Field(&cfg.Logging),
	)
	return configError(err)
}

// Validate implements validation.Validatable.
func (m MarkdownConfig) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Extensions, validation.By(knownExtensions)),
	)
}

// Validate implements validation.Validatable.
func (l LoggingConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Provider, validation.In("", "noop", "gologger")),
		validation.Field(&l.Level, validation.In("", "trace", "debug", "info", "warn", "warning", "error", "fatal")),
		validation.Field(&l.Format, validation.In("", "json", "console", "pretty")),
	)
}

func knownExtensions(value any) error {
	names, _ := value.([]string)
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if _, ok := extensionRegistry[key]; !ok {
			return validation.NewError("validation_unknown_extension", fmt.Sprintf("unknown markdown extension %q", name))
		}
	}
	return nil
}
