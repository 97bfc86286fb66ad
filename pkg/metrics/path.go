package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// NormalizePath replaces path segments that look like resource IDs
// (UUIDs, numeric IDs, hyphenated or long alphanumeric IDs) with a
// fixed ":id" placeholder, so per-request HTTP metrics never explode
// into one cardinality bucket per distinct ID served.
func NormalizePath(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if looksLikeID(seg) {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}

func looksLikeID(segment string) bool {
	if isAllDigits(segment) {
		return true
	}
	hasDigit, hasLetter := false, false
	for _, r := range segment {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			hasLetter = true
		}
	}
	if !hasDigit {
		return false
	}
	if strings.Contains(segment, "-") {
		return true
	}
	// A bare alphanumeric ID (no hyphen) needs more than a couple of
	// characters to distinguish it from a short version segment like
	// "v1" that happens to contain a digit.
	return hasLetter && len(segment) >= 6
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	if _, err := strconv.Atoi(s); err != nil {
		return false
	}
	return true
}

// Middleware wraps an http.Handler, recording HTTPRequestDuration for
// every request keyed by its normalized path.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		HTTPRequestDuration.WithLabelValues(
			NormalizePath(r.URL.Path),
			r.Method,
			strconv.Itoa(recorder.status),
		).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
