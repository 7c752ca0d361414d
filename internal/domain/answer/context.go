// Package answer formats the chat re-ranking exchange: the document context
// sent to the completion provider and the cleaned text streamed back.
package answer

import (
	"strings"

	"github.com/ohmygaugh/factgpt/internal/domain/document"
)

// entryMarker starts every document entry in a context block.
const entryMarker = "title:"

// Default context limits, in runes.
const (
	DefaultSummaryChars = 30
	DefaultContextChars = 3000
)

// ContextOptions bounds the size of a context block.
type ContextOptions struct {
	SummaryChars int
	ContextChars int
}

func (o ContextOptions) withDefaults() ContextOptions {
	if o.SummaryChars <= 0 {
		o.SummaryChars = DefaultSummaryChars
	}
	if o.ContextChars <= 0 {
		o.ContextChars = DefaultContextChars
	}
	return o
}

// BuildContext renders documents as the plain-text context block for the
// completion provider and trims it to whole entries within ContextChars.
func BuildContext(docs []document.Document, opts ContextOptions) string {
	opts = opts.withDefaults()

	var b strings.Builder
	for _, d := range docs {
		writeEntry(&b, d, opts.SummaryChars)
	}
	return Truncate(b.String(), opts.ContextChars)
}

func writeEntry(b *strings.Builder, d document.Document, summaryChars int) {
	b.WriteString(entryMarker + " " + d.Title + "\n")
	b.WriteString("summary: " + runePrefix(d.Summary, summaryChars) + "\n")
	b.WriteString("tags: " + strings.Join(d.AllTags(), ", ") + "\n")
	b.WriteString("url: " + d.URL + "\n\n")
}

// Truncate keeps the first limit runes of content and then drops the last
// entry, which is the one the cut may have split. The final entry is dropped
// even when nothing was cut.
func Truncate(content string, limit int) string {
	parts := strings.Split(runePrefix(content, limit), entryMarker)
	return strings.Join(parts[:len(parts)-1], entryMarker)
}

func runePrefix(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
