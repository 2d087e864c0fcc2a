package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/linkfinder-service/internal/entity"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := New("https://ex.com/", "/wp-admin")
	require.NoError(t, err)
	return c
}

func TestNew_RejectsRelativeSite(t *testing.T) {
	_, err := New("ex.com", "")
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	c := newTestClassifier(t)
	home := &entity.Document{ID: "1", Slug: "home", Status: entity.StatusPublish}

	tests := []struct {
		name     string
		value    string
		want     string
		internal bool
		skip     entity.SkipReason
	}{
		{"absolute path", "/about", "https://ex.com/about", true, entity.SkipNone},
		{"relative path", "contact", "https://ex.com/home/contact", true, entity.SkipNone},
		{"same host", "https://EX.com/page", "https://EX.com/page", true, entity.SkipNone},
		{"same host with www", "http://www.ex.com/page", "http://www.ex.com/page", true, entity.SkipNone},
		{"bare www host", "www.ex.com/x", "http://www.ex.com/x", true, entity.SkipNone},
		{"bare external www host", "www.other.org", "http://www.other.org", false, entity.SkipNone},
		{"external", "https://other.org/a", "https://other.org/a", false, entity.SkipNone},
		{"look-alike host", "https://ex.com.evil.org/", "https://ex.com.evil.org/", false, entity.SkipNone},
		{"protocol relative external", "//cdn.other.org/a.js", "https://cdn.other.org/a.js", false, entity.SkipNone},
		{"protocol relative internal", "//ex.com/a.js", "https://ex.com/a.js", true, entity.SkipNone},
		{"whitespace collapsed", "  /multi\n line ", "https://ex.com/multi%20line", true, entity.SkipNone},
		{"empty", "   ", "", false, entity.SkipEmpty},
		{"mailto", "mailto:a@b.com", "", false, entity.SkipNonHTTPScheme},
		{"tel upper case", "TEL:+123", "", false, entity.SkipNonHTTPScheme},
		{"javascript", "javascript:void(0)", "", false, entity.SkipNonHTTPScheme},
		{"admin path", "/wp-admin/post.php?post=1", "https://ex.com/wp-admin/post.php?post=1", true, entity.SkipAdminPath},
		{"admin absolute", "https://www.ex.com/wp-admin", "https://www.ex.com/wp-admin", true, entity.SkipAdminPath},
		{"admin prefix lookalike", "/wp-admin-tools/", "https://ex.com/wp-admin-tools/", true, entity.SkipNone},
		{"external admin path", "https://other.org/wp-admin/", "https://other.org/wp-admin/", false, entity.SkipNone},
		{"invalid host", "http:///nohost", "", false, entity.SkipInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Resolve(tt.value, home)
			assert.Equal(t, tt.skip, got.Skip)
			assert.Equal(t, tt.internal, got.Internal)
			if tt.want != "" {
				assert.Equal(t, tt.want, got.URL)
			}
		})
	}
}

func TestResolve_SiteInSubdirectory(t *testing.T) {
	c, err := New("https://ex.com/blog", "/blog/wp-admin")
	require.NoError(t, err)
	doc := &entity.Document{Slug: "post"}

	assert.Equal(t, "https://ex.com/blog/post/img.png", c.Resolve("img.png", doc).URL)
	assert.Equal(t, "https://ex.com/about", c.Resolve("/about", doc).URL)
	assert.Equal(t, entity.SkipAdminPath, c.Resolve("/blog/wp-admin/", doc).Skip)
	assert.Equal(t, "https://ex.com/blog", c.SiteURL())
}

func TestClassify_Scenarios(t *testing.T) {
	c := newTestClassifier(t)
	published := &entity.Document{Slug: "home", Status: entity.StatusPublish}
	draft := &entity.Document{Slug: "home", Status: entity.StatusDraft}

	internal, bucket := c.Classify(entity.Occurrence{Value: "https://other.org/gone"}, published, entity.ProbeResult{StatusCode: 404})
	assert.False(t, internal)
	assert.Equal(t, entity.BucketError, bucket)

	_, bucket = c.Classify(entity.Occurrence{Value: "mailto:a@b.com"}, published, entity.ProbeResult{})
	assert.Equal(t, entity.BucketOther, bucket)

	internal, bucket = c.Classify(entity.Occurrence{Value: "/about"}, published, entity.ProbeResult{StatusCode: 200})
	assert.True(t, internal)
	assert.Equal(t, entity.BucketWarning, bucket)

	_, bucket = c.Classify(entity.Occurrence{Value: "/about"}, draft, entity.ProbeResult{StatusCode: 200})
	assert.Equal(t, entity.BucketOther, bucket)

	_, bucket = c.Classify(entity.Occurrence{Value: "/about"}, published, entity.ProbeResult{ErrorLabel: "timeout"})
	assert.Equal(t, entity.BucketOther, bucket, "transport failures on internal links are not warnings")

	_, bucket = c.Classify(entity.Occurrence{Value: "https://other.org/"}, draft, entity.ProbeResult{StatusCode: 301})
	assert.Equal(t, entity.BucketWarning, bucket)

	_, bucket = c.Classify(entity.Occurrence{Value: "/wp-admin/"}, published, entity.ProbeResult{StatusCode: 500})
	assert.Equal(t, entity.BucketOther, bucket, "admin references are never classified from a probe")
}

func TestBucketFor_Totality(t *testing.T) {
	for code := 0; code < 700; code++ {
		for _, internal := range []bool{false, true} {
			for _, published := range []bool{false, true} {
				b := entity.BucketFor(code, internal, published)
				isError := code >= 400 && code < 600
				assert.Equal(t, isError, b == entity.BucketError, "code %d", code)
				assert.Contains(t, []entity.Bucket{entity.BucketError, entity.BucketWarning, entity.BucketOther}, b)
				if code >= 300 && code < 400 {
					assert.Equal(t, entity.BucketWarning, b)
				}
			}
		}
	}
}
