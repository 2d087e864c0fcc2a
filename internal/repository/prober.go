package repository

import (
	"context"

	"github.com/user/linkfinder-service/internal/entity"
)

// Prober defines the contract for a single outbound reachability check.
type Prober interface {
	// Probe fetches url once. Transport failures are reported in the result
	// with a zero status code, never as an error.
	Probe(ctx context.Context, url string, followRedirects bool) entity.ProbeResult
}
