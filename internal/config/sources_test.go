package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadSourcesDefaults(t *testing.T) {
	doc, err := LoadSources("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(doc.Sources) != 3 {
		t.Fatalf("expected 3 default sources, got %d", len(doc.Sources))
	}
	want := map[string]string{
		"USBGF": "https://usbgf.org/feed/",
		"WBGF":  "https://wbgf.info/news/feed/",
		"UKBGF": "https://ukbgf.com/blog/feed/",
	}
	for _, s := range doc.Sources {
		if want[s.Name] != s.URL {
			t.Errorf("unexpected source %s -> %s", s.Name, s.URL)
		}
	}
	if doc.Sources[0].Name != "USBGF" {
		t.Errorf("expected USBGF first, got %s", doc.Sources[0].Name)
	}
}

func TestLoadSourcesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	content := `
feed:
  title: Club News
  link: https://club.example
sources:
  - name: " Club "
    url: https://club.example/feed.xml
    exclude: '"Members" in categories'
  - name: USBGF
    url: https://usbgf.org/feed/
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	doc, err := LoadSources(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if doc.Feed.Title != "Club News" || doc.Feed.Link != "https://club.example" {
		t.Errorf("unexpected feed config %#v", doc.Feed)
	}
	if len(doc.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(doc.Sources))
	}
	if doc.Sources[0].Name != "Club" {
		t.Errorf("expected trimmed name, got %q", doc.Sources[0].Name)
	}
	if doc.Sources[0].Exclude != `"Members" in categories` {
		t.Errorf("unexpected exclude %q", doc.Sources[0].Exclude)
	}
}

func TestParseSourcesValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "empty", content: "", wantErr: "at least one source"},
		{name: "missing name", content: "sources:\n  - url: https://a.test/feed\n", wantErr: "name is required"},
		{name: "missing url", content: "sources:\n  - name: A\n", wantErr: "url is required"},
		{name: "relative url", content: "sources:\n  - name: A\n    url: /feed\n", wantErr: "http or https"},
		{name: "ftp url", content: "sources:\n  - name: A\n    url: ftp://a.test/feed\n", wantErr: "http or https"},
		{name: "duplicate", content: "sources:\n  - name: A\n    url: https://a.test/1\n  - name: A\n    url: https://a.test/2\n", wantErr: "duplicate"},
		{name: "unknown field", content: "sources:\n  - name: A\n    url: https://a.test/1\n    limit: 5\n", wantErr: "limit"},
		{name: "bad feed link", content: "feed:\n  link: nowhere\nsources:\n  - name: A\n    url: https://a.test/1\n", wantErr: "feed link"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseSources([]byte(tc.content))
			if err == nil {
				t.Fatalf("expected error containing %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestLoadSourcesMissingFile(t *testing.T) {
	if _, err := LoadSources(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
