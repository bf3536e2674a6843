// Package filter holds the two configuration-supplied matchers applied to
// every source message: one deciding which attachments to drop, one stripping
// unwanted substrings from message text.
package filter

import (
	"fmt"
	"regexp"
)

// Patterns carries the compiled matchers. Both are optional; a nil matcher
// matches nothing. Patterns are compiled once at startup and never
// recompiled per message.
type Patterns struct {
	ignoreFiles *regexp.Regexp
	cleanup     *regexp.Regexp
}

// Compile builds Patterns from raw configuration strings. An empty string
// disables that matcher. Matching is case-insensitive. A malformed pattern
// is a startup-fatal error.
func Compile(ignoreFiles, cleanup string) (*Patterns, error) {
	p := &Patterns{}

	if ignoreFiles != "" {
		re, err := regexp.Compile("(?i)" + ignoreFiles)
		if err != nil {
			return nil, fmt.Errorf("filter: invalid ignore_files pattern: %w", err)
		}
		p.ignoreFiles = re
	}

	if cleanup != "" {
		re, err := regexp.Compile("(?i)" + cleanup)
		if err != nil {
			return nil, fmt.Errorf("filter: invalid cleanup pattern: %w", err)
		}
		p.cleanup = re
	}

	return p, nil
}

// IgnoreFile reports whether an attachment with the given filename should be
// dropped.
func (p *Patterns) IgnoreFile(name string) bool {
	return p.ignoreFiles != nil && p.ignoreFiles.MatchString(name)
}

// Cleanup removes every matched span from text. With no cleanup pattern
// configured the text is returned unchanged.
func (p *Patterns) Cleanup(text string) string {
	if p.cleanup == nil {
		return text
	}
	return p.cleanup.ReplaceAllString(text, "")
}
