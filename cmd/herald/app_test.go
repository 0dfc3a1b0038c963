package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bakkerme/herald/internal/config"
	"github.com/bakkerme/herald/internal/core"
)

const feedBody = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Club</title><link>https://club.example</link><description>d</description>
<item><title>Club night</title><link>https://club.example/night</link><description><![CDATA[<p>Twelve players <img src="/board.png"></p>]]></description><pubDate>Mon, 01 Jan 2024 10:00:00 +0000</pubDate></item>
</channel></rss>`

func writeSources(t *testing.T, feedURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	content := "feed:\n  title: Club News\nsources:\n  - name: Club\n    url: " + feedURL + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write sources: %v", err)
	}
	return path
}

func newTestApp(t *testing.T, opts appOptions) *app {
	t.Helper()
	a, err := newApp(opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestWriteFetchJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(feedBody))
	}))
	defer server.Close()

	a := newTestApp(t, appOptions{
		SourcesPath: writeSources(t, server.URL+"/feed"),
		StatusDSN:   filepath.Join(t.TempDir(), "status.db"),
		Timeout:     2 * time.Second,
		RSS:         config.RSSEnvConfig{},
	})

	var out bytes.Buffer
	if err := a.writeFetch(context.Background(), &out, "json"); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	var articles []core.Article
	if err := json.Unmarshal(out.Bytes(), &articles); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out.String())
	}
	if len(articles) != 1 || articles[0].Title != "Club night" || articles[0].Source != "Club" {
		t.Fatalf("unexpected articles %#v", articles)
	}
	if articles[0].ImageURL != "https://club.example/board.png" {
		t.Errorf("expected resolved image url, got %q", articles[0].ImageURL)
	}

	statuses, err := a.status.List(context.Background())
	if err != nil {
		t.Fatalf("list status: %v", err)
	}
	if len(statuses) != 1 || statuses[0].Items != 1 {
		t.Fatalf("unexpected statuses %#v", statuses)
	}
}

func TestWriteFetchRSS(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(feedBody))
	}))
	defer server.Close()

	a := newTestApp(t, appOptions{
		SourcesPath: writeSources(t, server.URL+"/feed"),
		SiteURL:     "https://news.example",
		Timeout:     2 * time.Second,
	})

	var out bytes.Buffer
	if err := a.writeFetch(context.Background(), &out, "rss"); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	for _, want := range []string{"<title>Club News</title>", "<link>https://news.example</link>", "<title>Club night</title>"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected %q in output", want)
		}
	}
	if a.status != nil {
		t.Errorf("expected status store disabled without dsn")
	}
	if err := a.writeFetch(context.Background(), &out, "csv"); err == nil {
		t.Errorf("expected error for unsupported format")
	}
}

func TestNewAppRejectsBadSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	if err := os.WriteFile(path, []byte("sources:\n  - name: A\n    url: https://a.test/feed\n    exclude: 'title +'\n"), 0o644); err != nil {
		t.Fatalf("write sources: %v", err)
	}
	if _, err := newApp(appOptions{SourcesPath: path}, slog.New(slog.NewTextHandler(io.Discard, nil))); err == nil {
		t.Fatalf("expected invalid exclude rule to fail")
	}
}
