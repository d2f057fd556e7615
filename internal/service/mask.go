package service

import (
	"regexp"
	"strings"
)

var phonePattern = regexp.MustCompile(`^(\d{3})-?(\d{3,4})-?(\d{4})$`)

// MaskRecipient hides the middle of phone numbers and most of an email's
// local part. Values of any other shape are returned unchanged.
func MaskRecipient(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if m := phonePattern.FindStringSubmatch(s); m != nil {
		return m[1] + "-****-" + m[3]
	}
	if masked, ok := maskEmail(s); ok {
		return masked
	}
	return s
}

func maskEmail(s string) (string, bool) {
	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 || strings.ContainsAny(s, " \t") {
		return "", false
	}
	local, domain := s[:at], s[at+1:]
	keep := 2
	if len(local) <= 2 {
		keep = 1
	}
	// Keep whole runes so multi-byte local parts are not cut mid character
	runes := []rune(local)
	if keep > len(runes) {
		keep = len(runes)
	}
	return string(runes[:keep]) + "***@" + domain, true
}
