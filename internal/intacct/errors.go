package intacct

import (
	"fmt"
	"strings"

	"github.com/pipewise/target-intacct/internal/util"
)

// APIError is a sanitized summary of a failed gateway call.
//
// Important: do not include raw request/response bodies here (they can leak
// credentials and session ids).
type APIError struct {
	Op         string
	StatusCode int
	ErrorNo    string
	Message    string
	Correction string

	// Snippet is a redacted, truncated hint for responses that did not carry
	// a structured error element.
	Snippet string
}

func (e *APIError) Error() string {
	if e == nil {
		return "intacct gateway error"
	}
	parts := []string{fmt.Sprintf("intacct gateway error: op=%s", strings.TrimSpace(e.Op))}
	if e.StatusCode != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if strings.TrimSpace(e.ErrorNo) != "" {
		parts = append(parts, "errorno="+strings.TrimSpace(e.ErrorNo))
	}
	if strings.TrimSpace(e.Message) != "" {
		parts = append(parts, "message="+strings.TrimSpace(e.Message))
	}
	if strings.TrimSpace(e.Correction) != "" {
		parts = append(parts, "correction="+strings.TrimSpace(e.Correction))
	}
	if strings.TrimSpace(e.Snippet) != "" {
		parts = append(parts, "body="+strings.TrimSpace(e.Snippet))
	}
	return strings.Join(parts, " ")
}

func snippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	const max = 256
	b := body
	if len(b) > max {
		b = b[:max]
	}
	s := util.RedactSecrets(string(b))
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(body) > max {
		return s + "..."
	}
	return s
}
