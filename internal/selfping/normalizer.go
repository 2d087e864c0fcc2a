// Package selfping rewrites internal references to either absolute URLs
// (self-pings allowed) or site-relative paths (self-pings avoided).
package selfping

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/user/linkfinder-service/internal/entity"
	"github.com/user/linkfinder-service/internal/extractor"
	"github.com/user/linkfinder-service/pkg/utils"
)

// Bare script file names are taken to be relative to the owning document.
var bareScript = regexp.MustCompile(`(?i)^[a-z0-9-]+?\.php`)

// Normalizer knows the canonical origin of one site.
type Normalizer struct {
	origin     string // "https://ex.com", no path, no trailing slash
	home       string // site url without trailing slash, may carry a path
	siteMarker *regexp.Regexp
}

// New creates a Normalizer for siteURL.
func New(siteURL string) (*Normalizer, error) {
	home := utils.TrimOrigin(siteURL)
	u, err := url.Parse(home)
	if err != nil {
		return nil, fmt.Errorf("invalid site url %q: %w", siteURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("site url %q must be absolute", siteURL)
	}
	domain := utils.StripWWW(u.Host)
	// The domain must be followed by a path, query or fragment separator (or
	// the end) so "ex.com.evil.org" is never taken for "ex.com".
	marker, err := regexp.Compile(`(?i)^(?:https?:)?(?://)?(?:www\.)?` + regexp.QuoteMeta(domain) + `([/#?]|$)`)
	if err != nil {
		return nil, fmt.Errorf("compile site pattern: %w", err)
	}
	return &Normalizer{origin: u.Scheme + "://" + u.Host, home: home, siteMarker: marker}, nil
}

// Value rewrites one reference value. ok is false when the value is not
// recognised as pointing at the site or is already in the requested form.
func (n *Normalizer) Value(value string, doc *entity.Document, allow bool) (string, bool) {
	v := utils.CollapseWhitespace(value)
	rest, recognised := n.sitePath(v)

	var out string
	switch {
	case recognised && allow:
		out = n.origin + rest
	case recognised:
		out = rest
		if out == "" {
			out = "/"
		}
	case allow && bareScript.MatchString(v):
		slug := ""
		if doc != nil {
			slug = strings.Trim(doc.Slug, "/")
		}
		if slug == "" {
			out = n.home + "/" + v
		} else {
			out = n.home + "/" + slug + "/" + v
		}
	default:
		return "", false
	}
	if out == value {
		return "", false
	}
	return out, true
}

// sitePath strips the site origin, returning the remaining path, query or
// fragment. Values already starting with "/", "#" or "?" are returned as is.
func (n *Normalizer) sitePath(v string) (string, bool) {
	if loc := n.siteMarker.FindStringSubmatchIndex(v); loc != nil {
		return v[loc[2]:], true
	}
	if strings.HasPrefix(v, "//") {
		return "", false
	}
	if v != "" && strings.ContainsRune("/#?", rune(v[0])) {
		return v, true
	}
	return "", false
}

// Normalize returns the edit for occ, or nil when the reference is left untouched.
func (n *Normalizer) Normalize(occ entity.Occurrence, doc *entity.Document, allow bool) *entity.RewriteEdit {
	value, ok := n.Value(occ.Value, doc, allow)
	if !ok {
		return nil
	}
	return &entity.RewriteEdit{
		DocumentID: doc.ID,
		OldElement: occ.Element(),
		NewElement: occ.WithValue(value),
	}
}

// NormalizeCorpus returns every edit needed to apply the policy across docs.
func (n *Normalizer) NormalizeCorpus(docs []*entity.Document, allow bool) []entity.RewriteEdit {
	var edits []entity.RewriteEdit
	for _, doc := range docs {
		for occ := range extractor.All(doc.Content) {
			if edit := n.Normalize(occ, doc, allow); edit != nil {
				edits = append(edits, *edit)
			}
		}
	}
	return edits
}
