package titlefetch

import (
	"net/url"
	"regexp"
	"strings"
)

var urlPattern = regexp.MustCompile(`https?://[^ ]+`)

func parseURL(rawURL string) (*url.URL, error) {
	return url.Parse(rawURL)
}

// ExtractURLs scans message for URLs in text order. Duplicates are
// not deduplicated here; the caches are responsible for suppression
// (spec.md §4.3).
func ExtractURLs(message string) []string {
	return urlPattern.FindAllString(message, -1)
}

// prepareURL reproduces original_source/plugins/title_plugin.py's
// prepare_url: unquote the path, strip "- +_ space", lower-case,
// strip trailing digits, split on "/".
func prepareURL(rawURL string) []string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return []string{strings.ToLower(rawURL)}
	}
	path, err := url.PathUnescape(u.Path)
	if err != nil {
		path = u.Path
	}
	path = strings.ToLower(stripSeparators(path))
	path = strings.TrimRight(path, "0123456789")
	return strings.Split(path, "/")
}

// prepareTitle reproduces prepare_title: strip separators, lower-case,
// truncate at the first '-' or en-dash.
func prepareTitle(title string) string {
	title = strings.ToLower(stripSeparators(title))
	if i := strings.IndexAny(title, "-–"); i >= 0 {
		title = title[:i]
	}
	return title
}

func stripSeparators(s string) string {
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "+", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "_", "")
	return s
}

// collapseWhitespace collapses all internal whitespace runs to a
// single space (spec.md §4.3 title extraction).
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
