package blockpage

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Detector examines a failed (non-2xx) instance response and reports
// whether it recognizes the page that blocked the request.
type Detector func(statusCode int, header http.Header, body []byte) (detected bool, source string)

// DefaultDetectors returns the standard list of block-page detectors, most
// specific first.
func DefaultDetectors() []Detector {
	return []Detector{
		detectSearxLimiter,
		detectCloudflare,
		detectHTMLError,
	}
}

// Classify runs the response through the default detectors and returns the
// recognized source, or "" when nothing matched. The result only refines
// error reporting; retry behavior never depends on it.
func Classify(statusCode int, header http.Header, body []byte) string {
	for _, d := range DefaultDetectors() {
		if detected, source := d(statusCode, header, body); detected {
			return source
		}
	}
	return ""
}

// detectSearxLimiter recognizes the instance's own rate limiter, which
// answers 429 with a short HTML page instead of JSON.
func detectSearxLimiter(statusCode int, header http.Header, body []byte) (bool, string) {
	if statusCode != http.StatusTooManyRequests {
		return false, ""
	}
	if bytes.Contains(body, []byte("Too Many Requests")) ||
		bytes.Contains(body, []byte("searxng")) ||
		bytes.Contains(body, []byte("rate limit")) {
		return true, "SearXNG limiter"
	}
	return true, "rate limited"
}

// detectCloudflare looks for common Cloudflare challenge/block signatures
// in front of public instances.
func detectCloudflare(statusCode int, header http.Header, body []byte) (bool, string) {
	if statusCode != http.StatusForbidden && statusCode != http.StatusServiceUnavailable {
		return false, ""
	}

	server := strings.ToLower(header.Get("Server"))
	if strings.Contains(server, "cloudflare") {
		return true, "Cloudflare"
	}

	if bytes.Contains(body, []byte("cf-browser-verification")) ||
		bytes.Contains(body, []byte("cf-turnstile")) ||
		bytes.Contains(body, []byte("Attention Required! | Cloudflare")) {
		return true, "Cloudflare"
	}
	return false, ""
}

// detectHTMLError is the fallback: when the failure body is an HTML page,
// its title usually says what happened, so surface it.
func detectHTMLError(statusCode int, header http.Header, body []byte) (bool, string) {
	ct := header.Get("Content-Type")
	if !strings.Contains(ct, "text/html") && !bytes.Contains(body, []byte("<html")) {
		return false, ""
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return false, ""
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		return true, "HTML error page"
	}
	return true, "HTML error page: " + title
}
