package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bakkerme/herald/internal/core"
)

// SourcesDocument is the structure of a sources YAML file.
type SourcesDocument struct {
	Feed    FeedConfig    `yaml:"feed,omitempty"`
	Sources []core.Source `yaml:"sources"`
}

// FeedConfig overrides the channel metadata of the RSS output.
type FeedConfig struct {
	Title       string `yaml:"title,omitempty"`
	Description string `yaml:"description,omitempty"`
	Link        string `yaml:"link,omitempty"`
}

// DefaultSources are used when no sources file is configured.
func DefaultSources() []core.Source {
	return []core.Source{
		{URL: "https://usbgf.org/feed/", Name: "USBGF"},
		{URL: "https://wbgf.info/news/feed/", Name: "WBGF"},
		{URL: "https://ukbgf.com/blog/feed/", Name: "UKBGF"},
	}
}

// LoadSources reads and validates the sources file at path. An empty path yields the defaults.
func LoadSources(path string) (*SourcesDocument, error) {
	if strings.TrimSpace(path) == "" {
		return &SourcesDocument{Sources: DefaultSources()}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	doc, err := ParseSources(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func ParseSources(data []byte) (*SourcesDocument, error) {
	var doc SourcesDocument
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse sources document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks that every source has a unique name and an absolute http(s) URL.
func (d *SourcesDocument) Validate() error {
	if len(d.Sources) == 0 {
		return fmt.Errorf("at least one source is required")
	}
	seen := make(map[string]bool, len(d.Sources))
	for i := range d.Sources {
		source := &d.Sources[i]
		source.Name = strings.TrimSpace(source.Name)
		source.URL = strings.TrimSpace(source.URL)
		source.Exclude = strings.TrimSpace(source.Exclude)

		if source.Name == "" {
			return fmt.Errorf("source %d: name is required", i)
		}
		if seen[source.Name] {
			return fmt.Errorf("source %q: duplicate name", source.Name)
		}
		seen[source.Name] = true
		if err := validateFeedURL(source.URL); err != nil {
			return fmt.Errorf("source %q: %w", source.Name, err)
		}
	}
	if d.Feed.Link != "" {
		if err := validateFeedURL(d.Feed.Link); err != nil {
			return fmt.Errorf("feed link: %w", err)
		}
	}
	return nil
}

func validateFeedURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", raw)
	}
	return nil
}
