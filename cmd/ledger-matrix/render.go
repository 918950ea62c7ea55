// ABOUTME: Converts conversation replies into Matrix message content
// ABOUTME: Buttons become a bullet list since Matrix has no reply keyboards

package main

import (
	"html"
	"strings"

	"maunium.net/go/mautrix/event"

	"github.com/2389/state-ledger/internal/conversation"
)

// renderReply builds an m.text event. HTML replies are sent as
// org.matrix.custom.html with the plain text as the fallback body.
func renderReply(r conversation.Reply) *event.MessageEventContent {
	content := &event.MessageEventContent{
		MsgType: event.MsgText,
		Body:    r.Text,
	}
	if r.HTML != "" {
		content.Format = event.FormatHTML
		content.FormattedBody = r.HTML
	}

	if len(r.Buttons) == 0 {
		return content
	}

	var plain strings.Builder
	plain.WriteString("\n")
	for _, label := range r.Buttons {
		plain.WriteString("\n• ")
		plain.WriteString(label)
	}
	content.Body += plain.String()

	if content.Format == event.FormatHTML {
		var rich strings.Builder
		rich.WriteString("<ul>")
		for _, label := range r.Buttons {
			rich.WriteString("<li>")
			rich.WriteString(html.EscapeString(label))
			rich.WriteString("</li>")
		}
		rich.WriteString("</ul>")
		content.FormattedBody += rich.String()
	}

	return content
}
