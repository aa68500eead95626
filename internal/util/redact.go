package util

import (
	"regexp"
	"strings"
)

var (
	// Matches credential-bearing gateway XML elements. Error strings can
	// carry request or response fragments from downstream libraries.
	passwordElemRe = regexp.MustCompile(`(?is)<(password|sender_password|user_password)>.*?</(password|sender_password|user_password)>`)
	sessionElemRe  = regexp.MustCompile(`(?is)<sessionid>.*?</sessionid>`)

	// Common key=value formats that sometimes leak in error strings.
	passwordKVRe = regexp.MustCompile(`(?i)\b(sender[_-]?password|user[_-]?password|password|sessionid)\b\s*[:=]\s*[^\s"']+`)
)

// RedactSecrets removes obvious secret-bearing substrings from error/log strings.
//
// This is intentionally conservative: it should be safe to call on any message,
// including user-provided inputs and upstream error strings.
func RedactSecrets(s string) string {
	if s == "" {
		return ""
	}
	out := s
	out = passwordElemRe.ReplaceAllString(out, "<$1><redacted></$1>")
	out = sessionElemRe.ReplaceAllString(out, "<sessionid><redacted></sessionid>")
	out = passwordKVRe.ReplaceAllString(out, "$1=<redacted>")
	return strings.TrimSpace(out)
}
