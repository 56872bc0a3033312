// Package shared holds small helpers used by more than one adapter.
package shared

import (
	"fmt"
	"strings"
)

// HTTPStatusError creates a formatted error for non-2xx HTTP responses.
func HTTPStatusError(status int, url string) error {
	return fmt.Errorf("status=%d url=%s", status, url)
}

// HTTPStatusErrorWithBody includes the trimmed response body, which
// Artifactory uses for its error details.
func HTTPStatusErrorWithBody(status int, url string, body string) error {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return HTTPStatusError(status, url)
	}
	return fmt.Errorf("status=%d url=%s response=%s", status, url, trimmed)
}

// RedactURL drops userinfo so credentials embedded in an endpoint never reach
// the logs.
func RedactURL(raw string) string {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return raw
	}
	at := strings.LastIndex(rest, "@")
	slash := strings.Index(rest, "/")
	if at < 0 || (slash >= 0 && at > slash) {
		return raw
	}
	return scheme + "://" + rest[at+1:]
}
