package markdown

import (
	"strings"
	"testing"
)

func render(t *testing.T, src string) string {
	t.Helper()
	out, err := Render(src)
	if err != nil {
		t.Fatalf("Render(%q) error: %v", src, err)
	}
	return out
}

func TestRenderInline(t *testing.T) {
	tests := []struct {
		input    string
		contains string
	}{
		{"**bold**", "<strong>bold</strong>"},
		{"__bold__", "<strong>bold</strong>"},
		{"*italic*", "<em>italic</em>"},
		{"_italic_", "<em>italic</em>"},
		{"**bold *italic* text**", "<strong>bold <em>italic</em> text</strong>"},
		{"use `go test`", "<code>go test</code>"},
		{"~~gone~~", "<del>gone</del>"},
	}
	for _, tt := range tests {
		got := render(t, tt.input)
		if !strings.Contains(got, tt.contains) {
			t.Errorf("Render(%q) = %q, want it to contain %q", tt.input, got, tt.contains)
		}
	}
}

func TestRenderInlineCodeNotFormatted(t *testing.T) {
	got := render(t, "`**not bold**`")
	if strings.Contains(got, "<strong>") {
		t.Errorf("inline code should not be formatted: %q", got)
	}
}

func TestRenderHeadingsGetIDs(t *testing.T) {
	got := render(t, "# Hello World\n\n## Second Part")
	if !strings.Contains(got, `<h1 id="hello-world">Hello World</h1>`) {
		t.Errorf("missing h1 with id: %q", got)
	}
	if !strings.Contains(got, `<h2 id="second-part">Second Part</h2>`) {
		t.Errorf("missing h2 with id: %q", got)
	}
}

func TestRenderBlocks(t *testing.T) {
	src := strings.Join([]string{
		"- one",
		"- two",
		"",
		"1. first",
		"2. second",
		"",
		"> quoted",
		"",
		"```go",
		"fmt.Println(\"<hi>\")",
		"```",
		"",
		"| a | b |",
		"|---|---|",
		"| 1 | 2 |",
	}, "\n")
	got := render(t, src)
	for _, want := range []string{
		"<ul>", "<li>one</li>",
		"<ol>", "<li>first</li>",
		"<blockquote>",
		`<code class="language-go">`,
		"&lt;hi&gt;",
		"<table>", "<th>a</th>", "<td>1</td>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestRenderLinksAndImages(t *testing.T) {
	got := render(t, "[site](https://example.com) and [local](/about/)\n\n![alt text](/public/uploads/a.jpg)")
	if !strings.Contains(got, `<a href="https://example.com" target="_blank" rel="noopener noreferrer">site</a>`) {
		t.Errorf("external link not rendered as expected: %q", got)
	}
	if !strings.Contains(got, `<a href="/about/">local</a>`) {
		t.Errorf("local link should have no target: %q", got)
	}
	if !strings.Contains(got, `src="/public/uploads/a.jpg"`) || !strings.Contains(got, `alt="alt text"`) {
		t.Errorf("image not rendered: %q", got)
	}
	if !strings.Contains(got, `loading="lazy"`) {
		t.Errorf("image should be lazy loaded: %q", got)
	}
}

func TestRenderDropsUnsafeContent(t *testing.T) {
	got := render(t, "<script>alert(1)</script>\n\n[x](javascript:alert(1))")
	if strings.Contains(got, "<script>") {
		t.Errorf("raw HTML should be omitted: %q", got)
	}
	if strings.Contains(got, "javascript:") {
		t.Errorf("javascript URL should be dropped: %q", got)
	}
}

func TestPlainText(t *testing.T) {
	src := "# Heading\n\nSome **bold** text\nover two lines.\n\n```\ncode here\n```\n\n- item"
	got := PlainText(src)
	want := "Heading Some bold text over two lines. item"
	if got != want {
		t.Errorf("PlainText() = %q, want %q", got, want)
	}
}

func TestSummary(t *testing.T) {
	tests := []struct {
		name string
		src  string
		n    int
		want string
	}{
		{"short text unchanged", "Hello world", 50, "Hello world"},
		{"cut at word boundary", "one two three four", 10, "one two…"},
		{"zero means no limit", "one two", 0, "one two"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Summary(tt.src, tt.n); got != tt.want {
				t.Errorf("Summary(%q, %d) = %q, want %q", tt.src, tt.n, got, tt.want)
			}
		})
	}
}

func TestReadingTime(t *testing.T) {
	if got := ReadingTime(""); got != 1 {
		t.Errorf("ReadingTime(empty) = %d, want 1", got)
	}
	long := strings.Repeat("word ", 450)
	if got := ReadingTime(long); got != 3 {
		t.Errorf("ReadingTime(450 words) = %d, want 3", got)
	}
}

func TestSafeURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://example.com", "https://example.com"},
		{"/blog/post/", "/blog/post/"},
		{"#section", "#section"},
		{"mailto:a@b.com", "mailto:a@b.com"},
		{"javascript:alert(1)", ""},
		{"//evil.example", ""},
		{"", ""},
		{"relative/path", ""},
	}
	for _, tt := range tests {
		if got := SafeURL(tt.input); got != tt.expected {
			t.Errorf("SafeURL(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
