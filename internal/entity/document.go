package entity

import "strings"

// Document status and type tags the content store uses.
const (
	StatusPublish   = "publish"
	StatusPublished = "published"
	StatusDraft     = "draft"
	StatusTrash     = "trash"
	StatusPrivate   = "private"

	TypeRevision = "revision"
)

// Document mirrors a row of the `documents` table (or a file of the filesystem store).
type Document struct {
	ID      string `db:"id"`
	Title   string `db:"title"`
	Slug    string `db:"slug"` // Base segment for relative references
	Type    string `db:"type"`
	Status  string `db:"status"`
	Content string `db:"content"`
}

// IsPublished reports whether the document is publicly visible.
func (d *Document) IsPublished() bool {
	s := strings.ToLower(d.Status)
	return s == StatusPublish || s == StatusPublished
}

// Occurrence is one element carrying a followable reference attribute,
// split into the segments needed to rebuild it byte-for-byte.
type Occurrence struct {
	Opening   string `json:"opening"` // "<a class=x href=\""
	Tag       string `json:"tag"`
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
	Closing   string `json:"closing"` // "\" target=_blank>"
	Index     int    `json:"index"`
	Offset    int    `json:"offset"`
}

// Element returns the full matched markup of the occurrence.
func (o Occurrence) Element() string {
	return o.Opening + o.Value + o.Closing
}

// WithValue returns the element markup with its reference replaced.
func (o Occurrence) WithValue(value string) string {
	return o.Opening + value + o.Closing
}
