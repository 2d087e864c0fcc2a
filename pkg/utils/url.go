package utils

import (
	"net/url"
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`[\s\x0B\x00]+`)

// CollapseWhitespace replaces every run of whitespace (line breaks included)
// with a single space and trims the result.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// StripWWW lower-cases a host name and removes a leading "www.".
func StripWWW(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

// SameHost compares two host names case-insensitively, ignoring "www.".
func SameHost(a, b string) bool {
	return a != "" && StripWWW(a) == StripWWW(b)
}

// ToAbsoluteURL converts a relative URL to an absolute URL given a base URL.
func ToAbsoluteURL(base *url.URL, relative string) (string, error) {
	relURL, err := url.Parse(relative)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(relURL).String(), nil
}

// TrimOrigin returns rawURL with trailing slashes removed, the canonical form
// of a site origin.
func TrimOrigin(rawURL string) string {
	return strings.TrimRight(strings.TrimSpace(rawURL), "/")
}
