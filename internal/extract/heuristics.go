package extract

import (
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	// CanonicalOrigin is the public origin every normalized URL resolves to.
	CanonicalOrigin = "https://nola.gov"

	canonicalHost   = "nola.gov"
	secondaryDomain = "nopdnews.com"

	// DefaultDate and DefaultExcerpt fill fields the page did not provide.
	DefaultDate    = "Recent"
	DefaultExcerpt = "No description available"

	defaultSource = "City of New Orleans"
	nopdSource    = "NOPD News"
	nopdMarker    = "From NOPD News"
)

var dateRe = regexp.MustCompile(`[A-Z][a-z]+ \d{1,2}, \d{4}`)

// NormalizeURL rewrites an anchor href into an absolute URL on the
// canonical origin. Loopback hosts keep their path but lose scheme and
// host; rooted paths and bare relative paths are prefixed with the origin.
// Already-normalized URLs pass through unchanged.
func NormalizeURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	if strings.Contains(href, "localhost") || strings.Contains(href, "127.0.0.1") {
		u, err := url.Parse(href)
		if err != nil {
			return CanonicalOrigin
		}
		u.Scheme = "https"
		u.Host = canonicalHost
		return u.String()
	}

	if strings.HasPrefix(href, "/") {
		return CanonicalOrigin + href
	}

	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if strings.Contains(href, secondaryDomain) {
		return href
	}

	return CanonicalOrigin + "/" + href
}

// FindDate returns the first "Month D, YYYY" match in the context text,
// or DefaultDate when none is present.
func FindDate(context string) string {
	if m := dateRe.FindString(context); m != "" {
		return m
	}
	return DefaultDate
}

// ParseDate converts a FindDate result into a time. The ok result is false
// for DefaultDate and anything else the layout rejects.
func ParseDate(date string) (time.Time, bool) {
	ts, err := time.Parse("January 2, 2006", date)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// InferSource attributes a record based on the context text. Without an
// explicit attribution phrase the city itself is assumed.
func InferSource(context string) string {
	if strings.Contains(context, nopdMarker) {
		return nopdSource
	}
	return defaultSource
}

// FindExcerpt scans the context lines following the title line for the
// first one that reads like a description: non-empty, not an attribution,
// not a date, longer than 20 characters.
func FindExcerpt(context, title string) string {
	lines := make([]string, 0, 8)
	for _, raw := range strings.Split(context, "\n") {
		if trimmed := strings.TrimSpace(raw); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}

	start := 0
	for i, line := range lines {
		if line == title {
			start = i + 1
			break
		}
	}

	for _, line := range lines[start:] {
		if strings.Contains(line, "From ") {
			continue
		}
		if dateRe.MatchString(line) {
			continue
		}
		if len(line) > 20 {
			return line
		}
	}

	return DefaultExcerpt
}

// DeriveID returns the last path segment of a normalized URL, or "" when
// the URL is empty or has no usable segment.
func DeriveID(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return ""
	}
	segments := strings.Split(path, "/")
	return segments[len(segments)-1]
}
