package render

import (
	"bytes"
	"io"
	"strings"

	"github.com/russross/blackfriday"
	"golang.org/x/net/html"
)

const (
	markdownExtensions = blackfriday.EXTENSION_NO_INTRA_EMPHASIS |
		blackfriday.EXTENSION_FENCED_CODE |
		blackfriday.EXTENSION_AUTOLINK |
		blackfriday.EXTENSION_STRIKETHROUGH |
		blackfriday.EXTENSION_SPACE_HEADERS

	markdownHTMLFlags = blackfriday.HTML_SKIP_HTML |
		blackfriday.HTML_SKIP_IMAGES |
		blackfriday.HTML_SKIP_STYLE |
		blackfriday.HTML_SAFELINK
)

// ToHTML converts markdown to the HTML subset Telegram accepts.
func ToHTML(markdown string) string {
	renderer := blackfriday.HtmlRenderer(markdownHTMLFlags, "", "")
	out := blackfriday.Markdown([]byte(markdown), renderer, markdownExtensions)
	return sanitize(string(out))
}

func escape(s string) string {
	return html.EscapeString(s)
}

var tagRewrites = map[string]string{
	"b":          "b",
	"strong":     "b",
	"i":          "i",
	"em":         "i",
	"u":          "u",
	"ins":        "u",
	"s":          "s",
	"strike":     "s",
	"del":        "s",
	"code":       "code",
	"pre":        "pre",
	"blockquote": "blockquote",
}

var headings = map[string]bool{"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true}

// sanitize rewrites arbitrary HTML into Telegram's supported tags, turning
// block elements into line breaks and dropping everything else.
func sanitize(src string) string {
	var out strings.Builder
	z := html.NewTokenizer(strings.NewReader(src))

	preDepth, skipDepth := 0, 0

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() != io.EOF {
				return strings.TrimSpace(out.String())
			}
			break
		}

		name, hasAttr := z.TagName()
		tag := string(name)

		switch tt {
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			text := string(z.Text())
			if preDepth == 0 && strings.TrimSpace(text) == "" && strings.Contains(text, "\n") {
				continue
			}
			out.WriteString(escape(text))

		case html.StartTagToken, html.SelfClosingTagToken:
			switch {
			case tag == "script" || tag == "style":
				if tt == html.StartTagToken {
					skipDepth++
				}
			case tag == "br":
				out.WriteString("\n")
			case tag == "li":
				out.WriteString("• ")
			case tag == "a":
				out.WriteString(`<a href="` + escape(href(z, hasAttr)) + `">`)
			case headings[tag]:
				out.WriteString("<b>")
			default:
				if rewritten, ok := tagRewrites[tag]; ok {
					if rewritten == "pre" {
						preDepth++
					}
					out.WriteString("<" + rewritten + ">")
				}
			}

		case html.EndTagToken:
			switch {
			case tag == "script" || tag == "style":
				if skipDepth > 0 {
					skipDepth--
				}
			case tag == "p":
				out.WriteString("\n\n")
			case tag == "li":
				out.WriteString("\n")
			case tag == "a":
				out.WriteString("</a>")
			case headings[tag]:
				out.WriteString("</b>\n\n")
			default:
				if rewritten, ok := tagRewrites[tag]; ok {
					out.WriteString("</" + rewritten + ">")
					if rewritten == "pre" {
						preDepth--
						out.WriteString("\n\n")
					}
				}
			}
		}
	}

	return collapseBlankLines(strings.TrimSpace(out.String()))
}

func href(z *html.Tokenizer, hasAttr bool) string {
	for hasAttr {
		var key, val []byte
		key, val, hasAttr = z.TagAttr()
		if bytes.Equal(key, []byte("href")) {
			return string(val)
		}
	}
	return ""
}

func collapseBlankLines(s string) string {
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return s
}
