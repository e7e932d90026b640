package render

import (
	"strings"
	"testing"
)

func TestToHTML_Inline(t *testing.T) {
	if got := ToHTML("**bold** and _it_"); got != "<b>bold</b> and <i>it</i>" {
		t.Fatalf("unexpected html %q", got)
	}
}

func TestToHTML_Blocks(t *testing.T) {
	got := ToHTML("# Title\n\n- one\n- two\n")

	if !strings.HasPrefix(got, "<b>Title</b>\n\n") {
		t.Fatalf("heading must become bold: %q", got)
	}
	if !strings.Contains(got, "• one\n• two") {
		t.Fatalf("list must become bullets: %q", got)
	}
}

func TestSanitize(t *testing.T) {
	in := `<div><script>alert(1)</script><strong>ok</strong> &amp; <a href="https://example.org" onclick="x()">link</a><span>plain</span></div>`
	want := `<b>ok</b> &amp; <a href="https://example.org">link</a>plain`

	if got := sanitize(in); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestSanitize_KeepsPreformattedWhitespace(t *testing.T) {
	got := sanitize("<pre><code>a  b\n\nc</code></pre>")
	if got != "<pre><code>a  b\n\nc</code></pre>" {
		t.Fatalf("unexpected %q", got)
	}
}
