// Package transform converts a raw source message into zero or more outbound
// units: filter cleanup first, then length-based splitting against the
// destination's message and caption limits.
package transform

import (
	"strings"
	"unicode/utf8"

	"github.com/mirrorgram/mirrorgram/internal/filter"
	"github.com/mirrorgram/mirrorgram/pkg/message"
)

// Telegram's documented limits, used when the configuration leaves them unset.
const (
	DefaultMaxMessage = 4096
	DefaultMaxCaption = 1024
)

const splitBoundary = " \t\n"

// Transformer holds the compiled filters and length limits. It is stateless
// per message and safe for concurrent use across pair workers.
type Transformer struct {
	patterns   *filter.Patterns
	maxMessage int
	maxCaption int
}

// New creates a Transformer. Non-positive limits fall back to the Telegram
// defaults.
func New(patterns *filter.Patterns, maxMessage, maxCaption int) *Transformer {
	if maxMessage <= 0 {
		maxMessage = DefaultMaxMessage
	}
	if maxCaption <= 0 {
		maxCaption = DefaultMaxCaption
	}
	return &Transformer{
		patterns:   patterns,
		maxMessage: maxMessage,
		maxCaption: maxCaption,
	}
}

// Apply turns one source message into its outbound units, in send order.
// A nil or empty result means the message has nothing left to forward and
// should be skipped with its offset advanced.
//
// The attachment always travels with the first unit; its caption is bounded
// by the caption limit and any overflow continues as plain text messages.
func (t *Transformer) Apply(src message.Source) []message.Unit {
	text := t.patterns.Cleanup(src.Text)

	att := src.Attachment
	if att != nil && t.patterns.IgnoreFile(att.Name()) {
		att = nil
	}

	if att == nil && strings.TrimSpace(text) == "" {
		return nil
	}

	if att != nil {
		if len(text) <= t.maxCaption {
			return []message.Unit{{Text: text, Attachment: att}}
		}
		caption, rest := splitAt(text, t.maxCaption)
		units := []message.Unit{{Text: caption, Attachment: att}}
		for _, chunk := range split(rest, t.maxMessage) {
			units = append(units, message.Unit{Text: chunk})
		}
		return units
	}

	chunks := split(text, t.maxMessage)
	units := make([]message.Unit, 0, len(chunks))
	for _, chunk := range chunks {
		units = append(units, message.Unit{Text: chunk})
	}
	return units
}

// split breaks text into the fewest chunks each at most limit bytes,
// preferring whitespace boundaries.
func split(text string, limit int) []string {
	var chunks []string
	for text != "" {
		head, rest := splitAt(text, limit)
		if head == "" {
			break
		}
		chunks = append(chunks, head)
		text = rest
	}
	return chunks
}

// splitAt cuts text at the last whitespace at or before limit. A single run
// longer than the limit is hard-cut at a rune boundary so no chunk carries a
// torn multi-byte character. Boundary whitespace is consumed by the split
// point.
func splitAt(text string, limit int) (head, rest string) {
	if len(text) <= limit {
		return text, ""
	}

	hard := limit
	for hard > 0 && !utf8.RuneStart(text[hard]) {
		hard--
	}
	if hard == 0 {
		// A single rune wider than the limit; nothing sane to emit but the
		// raw bytes.
		hard = limit
	}

	cut := hard
	if idx := strings.LastIndexAny(text[:limit+1], splitBoundary); idx > 0 {
		cut = idx
	}

	head = strings.TrimRight(text[:cut], splitBoundary)
	rest = strings.TrimLeft(text[cut:], splitBoundary)
	if head == "" {
		// Whitespace-only prefix; fall back to the hard cut.
		head = text[:hard]
		rest = strings.TrimLeft(text[hard:], splitBoundary)
	}
	return head, rest
}
