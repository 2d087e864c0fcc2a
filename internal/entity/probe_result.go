package entity

// ProbeResult is the outcome of a single reachability check.
type ProbeResult struct {
	StatusCode   int    `json:"status_code"` // 0 on transport failure
	ErrorLabel   string `json:"error_label,omitempty"`
	EffectiveURL string `json:"effective_url,omitempty"`
}

// TransportFailed reports whether no HTTP response was obtained.
func (p ProbeResult) TransportFailed() bool {
	return p.StatusCode == 0
}

// Bucket is the coarse health classification of a reference.
type Bucket string

const (
	BucketError   Bucket = "error"
	BucketWarning Bucket = "warning"
	BucketOther   Bucket = "other"
)

// BucketFor assigns a bucket. Error takes precedence over warning, warning over other.
func BucketFor(statusCode int, internal, published bool) Bucket {
	switch {
	case statusCode >= 400 && statusCode < 600:
		return BucketError
	case statusCode >= 300 && statusCode < 400:
		return BucketWarning
	case internal && published && statusCode != 0:
		return BucketWarning
	default:
		return BucketOther
	}
}

// SkipReason explains why a reference was classified without probing.
type SkipReason string

const (
	SkipNone          SkipReason = ""
	SkipEmpty         SkipReason = "empty"
	SkipNonHTTPScheme SkipReason = "non_http_scheme"
	SkipAdminPath     SkipReason = "admin_path"
	SkipInvalid       SkipReason = "invalid_reference"
)

// LinkResult is a classified reference as streamed to consumers.
// Consumers correlate results by (DocumentID, Index).
type LinkResult struct {
	DocumentID     string      `json:"document_id"`
	DocumentTitle  string      `json:"document_title"`
	DocumentType   string      `json:"document_type"`
	DocumentStatus string      `json:"document_status"`
	Index          int         `json:"index"`
	Tag            string      `json:"tag"`
	Attribute      string      `json:"attribute"`
	Value          string      `json:"value"`
	Element        string      `json:"element"`
	Target         string      `json:"target,omitempty"`
	Internal       bool        `json:"internal"`
	Skipped        SkipReason  `json:"skipped,omitempty"`
	Probe          ProbeResult `json:"probe"`
	Bucket         Bucket      `json:"bucket"`
}
