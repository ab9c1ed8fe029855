// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"html"
	"strings"

	"github.com/pdiddy/paperflow/pkg/types"
)

// FormatNote renders the summary and classification as the HTML note
// attached to a processed item. All model-produced text is escaped.
func FormatNote(summary types.PaperSummary, classification types.Classification) string {
	var b strings.Builder

	b.WriteString("<h2>Paper Summary</h2>\n")
	b.WriteString("<p>" + html.EscapeString(summary.Summary) + "</p>\n")

	if len(summary.KeyPoints) > 0 {
		b.WriteString("<h3>Key Points</h3>\n<ul>\n")
		for _, point := range summary.KeyPoints {
			b.WriteString("<li>" + html.EscapeString(point) + "</li>\n")
		}
		b.WriteString("</ul>\n")
	}

	if summary.Methods != "" {
		b.WriteString("<p><strong>Methods:</strong> " + html.EscapeString(summary.Methods) + "</p>\n")
	}
	if summary.PaperType != "" {
		b.WriteString("<p><strong>Paper Type:</strong> " + html.EscapeString(string(summary.PaperType)) + "</p>\n")
	}

	if len(classification.Collections) > 0 {
		b.WriteString("<p><strong>Collections:</strong> " + html.EscapeString(strings.Join(classification.Collections, ", ")) + "</p>\n")
	}
	if len(classification.Tags) > 0 {
		b.WriteString("<p><strong>Tags:</strong> " + html.EscapeString(strings.Join(classification.Tags, ", ")) + "</p>\n")
	}
	b.WriteString(fmt.Sprintf("<p><strong>Confidence:</strong> %.0f%%</p>\n", classification.Confidence*100))
	if classification.Reasoning != "" {
		b.WriteString("<p><em>" + html.EscapeString(classification.Reasoning) + "</em></p>\n")
	}

	b.WriteString("<p><small>Generated by paperflow</small></p>")
	return b.String()
}
