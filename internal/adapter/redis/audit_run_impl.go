package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/linkfinder-service/internal/entity"
	"github.com/user/linkfinder-service/internal/repository"
)

const runKeyPrefix = "linkfinder:run:"

// DefaultRunTTL is how long a run and its results stay readable after the last write.
const DefaultRunTTL = time.Hour

// AuditRunRepoImpl keeps run snapshots as JSON strings and results as a Redis list.
type AuditRunRepoImpl struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAuditRunRepo creates a new instance of AuditRunRepoImpl.
func NewAuditRunRepo(client *redis.Client, ttl time.Duration) *AuditRunRepoImpl {
	if ttl <= 0 {
		ttl = DefaultRunTTL
	}
	return &AuditRunRepoImpl{client: client, ttl: ttl}
}

func runKey(id string) string     { return runKeyPrefix + id }
func resultsKey(id string) string { return runKeyPrefix + id + ":results" }

// SaveRun stores the snapshot and refreshes the expiry of the run's keys.
func (r *AuditRunRepoImpl) SaveRun(ctx context.Context, run *entity.AuditRun) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", run.ID, err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, runKey(run.ID), data, r.ttl)
		pipe.Expire(ctx, resultsKey(run.ID), r.ttl)
		return nil
	})
	return err
}

// GetRun returns repository.ErrRunNotFound for unknown or expired runs.
func (r *AuditRunRepoImpl) GetRun(ctx context.Context, id string) (*entity.AuditRun, error) {
	data, err := r.client.Get(ctx, runKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	var run entity.AuditRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}
	return &run, nil
}

// AppendResults pushes results to the tail of the run's list.
func (r *AuditRunRepoImpl) AppendResults(ctx context.Context, id string, results ...entity.LinkResult) error {
	if len(results) == 0 {
		return nil
	}
	values := make([]any, len(results))
	for i, res := range results {
		data, err := json.Marshal(res)
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		values[i] = data
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, resultsKey(id), values...)
		pipe.Expire(ctx, resultsKey(id), r.ttl)
		return nil
	})
	return err
}

// ListResults returns up to limit results from offset. A non-positive limit returns the rest of the list.
func (r *AuditRunRepoImpl) ListResults(ctx context.Context, id string, offset, limit int64) ([]entity.LinkResult, error) {
	if offset < 0 {
		offset = 0
	}
	stop := int64(-1)
	if limit > 0 {
		stop = offset + limit - 1
	}
	raw, err := r.client.LRange(ctx, resultsKey(id), offset, stop).Result()
	if err != nil {
		return nil, err
	}
	results := make([]entity.LinkResult, 0, len(raw))
	for _, item := range raw {
		var res entity.LinkResult
		if err := json.Unmarshal([]byte(item), &res); err != nil {
			return nil, fmt.Errorf("decode result of run %s: %w", id, err)
		}
		results = append(results, res)
	}
	return results, nil
}
