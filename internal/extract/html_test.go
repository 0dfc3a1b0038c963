package extract

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestFirstImage_NoImage(t *testing.T) {
	for _, in := range []string{"", "<p>no images</p>", "plain text", "<img>", "<p><img alt='x'></p>"} {
		src, ok := FirstImage(in)
		if ok || src != "" {
			t.Fatalf("FirstImage(%q) = (%q, %v), expected no image", in, src, ok)
		}
	}
}

func TestFirstImage_DocumentOrder(t *testing.T) {
	src, ok := FirstImage(`<div><img src='a.png'/><img src='b.png'/></div>`)
	if !ok {
		t.Fatalf("expected an image")
	}
	if src != "a.png" {
		t.Fatalf("expected a.png, got %q", src)
	}
}

func TestFirstImage_NestedBeforeSibling(t *testing.T) {
	in := `<div><p><span><img src="deep.png"></span></p></div><img src="later.png">`
	if src, _ := FirstImage(in); src != "deep.png" {
		t.Fatalf("expected deep.png, got %q", src)
	}
}

func TestFirstImage_LazyLoadingAttrs(t *testing.T) {
	in := `<p><img data-src="https://example.com/lazy.jpg"><img src="https://example.com/eager.jpg"></p>`
	if src, _ := FirstImage(in); src != "https://example.com/lazy.jpg" {
		t.Fatalf("expected lazy image, got %q", src)
	}
}

func TestFirstImage_MalformedMarkup(t *testing.T) {
	src, ok := FirstImage(`<div><p><img src="x.gif"></span></b></td>`)
	if !ok || src != "x.gif" {
		t.Fatalf("expected x.gif from malformed markup, got (%q, %v)", src, ok)
	}
}

func TestCleanText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"script stripped", "<script>evil()</script><p>Hello <b>World</b></p>", "Hello World"},
		{"empty", "", ""},
		{"whitespace only", "   \n\t ", ""},
		{"plain text", "  just   text ", "just text"},
		{"entities", "<p>Fish &amp; Chips</p>", "Fish & Chips"},
		{"plain text entities", "Tom &amp; Jerry", "Tom & Jerry"},
		{"style and iframe", `<style>p{color:red}</style><p>Visible</p><iframe src="x">inner</iframe>`, "Visible"},
		{"noscript", `<noscript><img src="t.gif"></noscript>Shown`, "Shown"},
		{"blocks separate words", "<p>one</p><p>two</p><ul><li>three</li><li>four</li></ul>", "one two three four"},
		{"line break", "first<br>second", "first second"},
		{"comment", "<!-- hidden -->text", "text"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CleanText(tc.in); got != tc.want {
				t.Fatalf("CleanText(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestStripTagsFallback(t *testing.T) {
	got := stripTags("<p>Hello <b>World</b></p> &amp; more")
	if got != "Hello World & more" {
		t.Fatalf("unexpected fallback output %q", got)
	}
}

func TestReadingTime(t *testing.T) {
	cases := []struct {
		words int
		want  int
	}{
		{0, 1},
		{1, 1},
		{199, 1},
		{200, 1},
		{201, 2},
		{400, 2},
		{401, 3},
	}
	for _, tc := range cases {
		text := strings.TrimSpace(strings.Repeat("word ", tc.words))
		if got := ReadingTime(text); got != tc.want {
			t.Fatalf("ReadingTime(%d words) = %d, want %d", tc.words, got, tc.want)
		}
	}
}

func TestSnippet(t *testing.T) {
	if got := Snippet("short", 300); got != "short" {
		t.Fatalf("expected pass-through, got %q", got)
	}

	long := strings.Repeat("é", 500)
	got := Snippet(long, 300)
	if n := utf8.RuneCountInString(got); n != 300 {
		t.Fatalf("expected 300 runes, got %d", n)
	}
	if !utf8.ValidString(got) {
		t.Fatalf("snippet split a rune")
	}

	if got := Snippet("anything", 0); got != "" {
		t.Fatalf("expected empty snippet for max 0, got %q", got)
	}
}
