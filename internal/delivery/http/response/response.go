package response

import "github.com/user/linkfinder-service/internal/entity"

type StartAuditResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	RunID   string `json:"run_id"`
}

// AuditRunResponse is a run snapshot with one page of its results.
type AuditRunResponse struct {
	entity.AuditRun
	Percent int                 `json:"percent"`
	Offset  int64               `json:"offset"`
	Limit   int64               `json:"limit"`
	Results []entity.LinkResult `json:"results"`
}

type ProbeResponse struct {
	URL string `json:"url"`
	entity.ProbeResult
}
