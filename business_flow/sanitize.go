package businessflow

import (
	"regexp"
	"strings"
)

var blockedWords = regexp.MustCompile(`(?i)\b(fuck|shit|cunt|nazi|rape)\b`)

func isPictograph(r rune) bool {
	switch {
	case r == 0x200D || r == 0xFE0F || r == 0x20E3:
		return true
	case r >= 0x1F000 && r <= 0x1FAFF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	case r >= 0x2B00 && r <= 0x2BFF:
		return true
	case r >= 0x1F1E6 && r <= 0x1F1FF:
		return true
	}
	return false
}

// stripPictographs removes emoji and pictographic symbols. Other symbols such
// as degree and numero signs are kept.
func stripPictographs(s string) string {
	return strings.Map(func(r rune) rune {
		if isPictograph(r) {
			return -1
		}
		return r
	}, s)
}

// truncateRunes cuts s to at most n characters
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}

// containsBlocked reports whether any field hits the blocked word list
func containsBlocked(fields ...string) bool {
	for _, f := range fields {
		if blockedWords.MatchString(f) {
			return true
		}
	}
	return false
}

// cleanText strips pictographs, collapses whitespace and truncates
func cleanText(s string, maxLen int) string {
	s = stripPictographs(s)
	s = strings.Join(strings.Fields(s), " ")
	return truncateRunes(s, maxLen)
}
