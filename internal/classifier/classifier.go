// Package classifier decides where a reference points and which bucket it falls in.
package classifier

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/user/linkfinder-service/internal/entity"
	"github.com/user/linkfinder-service/pkg/utils"
)

var schemePrefix = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)

// Target is a reference resolved to the URL that would be probed.
type Target struct {
	URL      string
	Internal bool
	Skip     entity.SkipReason
}

// Probeable reports whether the target should be fetched.
func (t Target) Probeable() bool {
	return t.Skip == entity.SkipNone
}

// Classifier resolves references against one site.
type Classifier struct {
	site      *url.URL // path always ends in "/"
	adminPath string
}

// New creates a Classifier for siteURL. References on the site under adminPath are never probed.
func New(siteURL, adminPath string) (*Classifier, error) {
	site, err := url.Parse(utils.TrimOrigin(siteURL))
	if err != nil {
		return nil, fmt.Errorf("invalid site url %q: %w", siteURL, err)
	}
	if site.Scheme == "" || site.Host == "" {
		return nil, fmt.Errorf("site url %q must be absolute", siteURL)
	}
	site.Path += "/"
	site.RawQuery, site.Fragment = "", ""

	if adminPath != "" && !strings.HasPrefix(adminPath, "/") {
		adminPath = "/" + adminPath
	}
	return &Classifier{site: site, adminPath: strings.TrimRight(adminPath, "/")}, nil
}

// SiteURL returns the canonical site origin without a trailing slash.
func (c *Classifier) SiteURL() string {
	return strings.TrimSuffix(c.site.String(), "/")
}

// Resolve computes the probe target for a reference found in doc.
func (c *Classifier) Resolve(value string, doc *entity.Document) Target {
	v := utils.CollapseWhitespace(value)
	if v == "" {
		return Target{Skip: entity.SkipEmpty}
	}

	var t Target
	switch lower := strings.ToLower(v); {
	case strings.HasPrefix(lower, "www."):
		t = c.external("http://" + v)
	case schemePrefix.MatchString(v):
		scheme := lower[:strings.IndexByte(lower, ':')]
		if scheme != "http" && scheme != "https" {
			return Target{Skip: entity.SkipNonHTTPScheme}
		}
		t = c.external(v)
	case strings.HasPrefix(v, "//"):
		t = c.external(c.site.Scheme + ":" + v)
	default:
		t = c.relative(v, doc)
	}
	if t.Skip != entity.SkipNone {
		return t
	}
	if t.Internal && c.underAdmin(t.URL) {
		return Target{URL: t.URL, Internal: true, Skip: entity.SkipAdminPath}
	}
	return t
}

func (c *Classifier) external(raw string) Target {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return Target{Skip: entity.SkipInvalid}
	}
	return Target{URL: raw, Internal: utils.SameHost(u.Hostname(), c.site.Hostname())}
}

func (c *Classifier) relative(v string, doc *entity.Document) Target {
	ref := v
	if !strings.HasPrefix(v, "/") && doc != nil && doc.Slug != "" {
		ref = strings.Trim(doc.Slug, "/") + "/" + v
	}
	abs, err := utils.ToAbsoluteURL(c.site, ref)
	if err != nil {
		return Target{Internal: true, Skip: entity.SkipInvalid}
	}
	return Target{URL: abs, Internal: true}
}

func (c *Classifier) underAdmin(target string) bool {
	if c.adminPath == "" {
		return false
	}
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return u.Path == c.adminPath || strings.HasPrefix(u.Path, c.adminPath+"/")
}

// Bucket assigns the bucket for a probed reference.
func (c *Classifier) Bucket(probe entity.ProbeResult, internal bool, doc *entity.Document) entity.Bucket {
	return entity.BucketFor(probe.StatusCode, internal, doc != nil && doc.IsPublished())
}

// Classify resolves occ and buckets it using probe. Skipped references are always "other".
func (c *Classifier) Classify(occ entity.Occurrence, doc *entity.Document, probe entity.ProbeResult) (bool, entity.Bucket) {
	t := c.Resolve(occ.Value, doc)
	if !t.Probeable() {
		return t.Internal, entity.BucketOther
	}
	return t.Internal, c.Bucket(probe, t.Internal, doc)
}
