package entity

// RewriteEdit replaces one element's markup inside a single document.
type RewriteEdit struct {
	DocumentID string `json:"document_id"`
	OldElement string `json:"old_element"`
	NewElement string `json:"new_element"`
}

// ReviewItem is a user-approved change for one reference.
type ReviewItem struct {
	DocumentID string `json:"document_id"`
	Index      int    `json:"index"`
	OldElement string `json:"old_element"`
	NewValue   string `json:"new_value"`
}

// SelfPingPolicy selects how internal references are written after a rewrite.
type SelfPingPolicy string

const (
	SelfPingsAllow     SelfPingPolicy = "allow"
	SelfPingsAvoid     SelfPingPolicy = "avoid"
	SelfPingsUnchanged SelfPingPolicy = "unchanged"
)

// Valid reports whether p is a known policy. The empty policy counts as unchanged.
func (p SelfPingPolicy) Valid() bool {
	switch p {
	case SelfPingsAllow, SelfPingsAvoid, SelfPingsUnchanged, "":
		return true
	}
	return false
}

// EditOutcome records what happened to one edit.
type EditOutcome struct {
	Edit    RewriteEdit `json:"edit"`
	Applied bool        `json:"applied"`
	Error   string      `json:"error,omitempty"`
}

// SkippedItem is a review item that could not be turned into an edit.
type SkippedItem struct {
	Item   ReviewItem `json:"item"`
	Reason string     `json:"reason"`
}

// RewriteReport aggregates per-edit outcomes. Success is true only if every edit applied.
type RewriteReport struct {
	Success  bool          `json:"success"`
	Outcomes []EditOutcome `json:"outcomes"`
	Skipped  []SkippedItem `json:"skipped,omitempty"`
}

// Merge appends another report's outcomes and combines the success flags.
func (r *RewriteReport) Merge(other RewriteReport) {
	r.Success = r.Success && other.Success
	r.Outcomes = append(r.Outcomes, other.Outcomes...)
	r.Skipped = append(r.Skipped, other.Skipped...)
}
