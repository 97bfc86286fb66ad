// Package middleware supplies HTTP middleware shared by the toolset
// gateway surfaces that accept arbitrary payloads from component
// registrations: content-type negotiation today, more as the gateway
// grows shared cross-cutting request validation.
package middleware

import (
	"encoding/json"
	"mime"
	"net/http"
)

const problemBase = "https://tekton.dev/errors/"

type problem struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail"`
	Instance  string `json:"instance"`
	RequestID string `json:"request_id,omitempty"`
}

func writeUnsupportedMediaType(w http.ResponseWriter, r *http.Request, detail string) {
	body := problem{
		Type:      problemBase + "unsupported-media-type",
		Title:     "Unsupported Media Type",
		Status:    http.StatusUnsupportedMediaType,
		Detail:    detail,
		Instance:  r.URL.Path,
		RequestID: r.Header.Get("X-Request-ID"),
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(http.StatusUnsupportedMediaType)
	_ = json.NewEncoder(w).Encode(body)
}

// ValidateContentType rejects any request carrying a body (anything
// other than GET/HEAD/DELETE) whose Content-Type is missing or not
// application/json, responding with an RFC 7807 problem document.
// GET requests pass through unvalidated.
func ValidateContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodDelete:
			next.ServeHTTP(w, r)
			return
		}

		contentType := r.Header.Get("Content-Type")
		if contentType == "" {
			writeUnsupportedMediaType(w, r, "request is missing a Content-Type header")
			return
		}

		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil || mediaType != "application/json" {
			writeUnsupportedMediaType(w, r, "unsupported Content-Type: "+contentType)
			return
		}

		next.ServeHTTP(w, r)
	})
}
