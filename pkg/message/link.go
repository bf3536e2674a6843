package message

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// linkPattern extracts a chat ID and optional topic ID from the supported
// link shapes:
//
//	https://t.me/c/2032328913/35664
//	https://web.telegram.org/a/#-1002488363_17645660
//	-1002488363/35664
//	-1002488363
var linkPattern = regexp.MustCompile(`(-?\d+)(?:[/_](-?\d+))?`)

// ParseChatLink parses a Telegram chat link (or a bare "chat[/topic]" ID
// form) into a ChatLink.
func ParseChatLink(link string) (ChatLink, error) {
	cleaned := strings.TrimRight(strings.TrimSpace(link), "/")

	m := linkPattern.FindStringSubmatch(cleaned)
	if m == nil {
		return ChatLink{}, fmt.Errorf("message: invalid chat link %q", link)
	}

	chatID, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return ChatLink{}, fmt.Errorf("message: invalid chat ID in %q: %w", link, err)
	}

	var topicID int64
	if m[2] != "" {
		topicID, err = strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return ChatLink{}, fmt.Errorf("message: invalid topic ID in %q: %w", link, err)
		}
	}

	return ChatLink{ChatID: chatID, TopicID: topicID}, nil
}

// ParsePairs zips two equal-length link lists into pairs. Unequal or empty
// lists are a configuration error.
func ParsePairs(from, to []string) ([]Pair, error) {
	if len(from) != len(to) {
		return nil, fmt.Errorf("message: pair count mismatch: %d source links, %d destination links", len(from), len(to))
	}
	if len(from) == 0 {
		return nil, fmt.Errorf("message: no chat pairs configured")
	}

	pairs := make([]Pair, 0, len(from))
	for i := range from {
		src, err := ParseChatLink(from[i])
		if err != nil {
			return nil, fmt.Errorf("message: from[%d]: %w", i, err)
		}
		dst, err := ParseChatLink(to[i])
		if err != nil {
			return nil, fmt.Errorf("message: to[%d]: %w", i, err)
		}
		pairs = append(pairs, Pair{From: src, To: dst})
	}
	return pairs, nil
}
