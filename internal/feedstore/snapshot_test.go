package feedstore

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/bakkerme/herald/internal/core"
)

func TestSnapshotArticlesIsACopy(t *testing.T) {
	snap := New([]core.Article{{Title: "a", Categories: []string{"x"}}}, time.Now())

	got := snap.Articles()
	got[0].Title = "mutated"
	got[0].Categories[0] = "mutated"

	again := snap.Articles()
	if again[0].Title != "a" || again[0].Categories[0] != "x" {
		t.Fatalf("snapshot was mutated through Articles(): %#v", again[0])
	}
}

func TestSnapshotMarshalsAsArray(t *testing.T) {
	published := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	snap := New([]core.Article{{
		Title:              "Title",
		Link:               "https://example.com",
		ContentSnippet:     "Snippet",
		Source:             "USBGF",
		PublishedAt:        published,
		Categories:         []string{},
		Author:             "Unknown",
		ReadingTimeMinutes: 1,
	}}, published)

	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	out := string(data)
	if !strings.HasPrefix(out, "[") {
		t.Fatalf("expected JSON array, got %s", out)
	}
	for _, field := range []string{`"title":"Title"`, `"contentSnippet":"Snippet"`, `"publishedAt":"2024-05-01T12:00:00Z"`, `"readingTimeMinutes":1`, `"categories":[]`} {
		if !strings.Contains(out, field) {
			t.Errorf("expected %s in %s", field, out)
		}
	}
	if strings.Contains(out, "imageUrl") {
		t.Errorf("expected imageUrl to be omitted when empty, got %s", out)
	}
}

func TestEmptySnapshotMarshalsAsEmptyArray(t *testing.T) {
	data, err := json.Marshal(Empty(time.Now()))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != "[]" {
		t.Fatalf("expected [], got %s", data)
	}
	var nilSnap *Snapshot
	if nilSnap.Len() != 0 || len(nilSnap.Articles()) != 0 {
		t.Fatalf("nil snapshot should behave as empty")
	}
}
