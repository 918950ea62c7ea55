// ABOUTME: Markdown to HTML rendering for replies that carry links
// ABOUTME: Uses goldmark so escaping of link text and destination is handled in one place

package conversation

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
)

var markdown = goldmark.New()

// markdownEscaper backslash-escapes every ASCII punctuation character that
// email syntax allows and markdown treats specially.
var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	`_`, `\_`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`<`, `\<`,
	`>`, `\>`,
	"`", "\\`",
)

// renderInline renders a single markdown paragraph and drops the <p> wrapper.
func renderInline(src string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	out := strings.TrimSpace(buf.String())
	out = strings.TrimPrefix(out, "<p>")
	out = strings.TrimSuffix(out, "</p>")
	return out, nil
}

// mailtoHTML renders email as a clickable mailto link. A literal '%' in the
// address is encoded in the href so it is not read as a percent escape.
func mailtoHTML(email string) (string, error) {
	href := strings.ReplaceAll(email, "%", "%25")
	return renderInline(fmt.Sprintf("[%s](<mailto:%s>)", markdownEscaper.Replace(email), href))
}
