package request

import "github.com/user/linkfinder-service/internal/entity"

type StartAuditRequest struct {
	FollowRedirects bool `json:"follow_redirects"`
}

type ProbeRequest struct {
	URL    string `json:"url"`
	Follow bool   `json:"follow"`
}

// RewriteRequest carries reviewed edits. An item with an empty new_value is left unchanged.
type RewriteRequest struct {
	Edits     []entity.ReviewItem   `json:"edits"`
	SelfPings entity.SelfPingPolicy `json:"self_pings"` // "allow", "avoid" or "unchanged"
}
