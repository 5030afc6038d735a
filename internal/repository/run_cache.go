package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/acadgrid/timetable-api/internal/models"
	appErrors "github.com/acadgrid/timetable-api/pkg/errors"
)

const runKeyPrefix = "timetable:run:"

// RunCache mirrors finished generation runs into Redis so results survive a
// process restart and can be shared between instances. It is an optional
// layer: a nil *RunCache is a no-op.
type RunCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRunCache(client *redis.Client, ttl time.Duration) *RunCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RunCache{client: client, ttl: ttl}
}

// Save stores the run under its ID with the configured TTL.
func (c *RunCache) Save(ctx context.Context, run *models.GenerationRun) error {
	if c == nil || c.client == nil {
		return nil
	}
	payload, err := json.Marshal(run)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode run")
	}
	if err := c.client.Set(ctx, runKeyPrefix+run.ID, payload, c.ttl).Err(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cache run")
	}
	return nil
}

// Get loads a run by ID. Missing keys map to ErrNotFound.
func (c *RunCache) Get(ctx context.Context, id string) (*models.GenerationRun, error) {
	if c == nil || c.client == nil {
		return nil, appErrors.ErrNotFound
	}
	payload, err := c.client.Get(ctx, runKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, appErrors.ErrNotFound
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read cached run")
	}
	var run models.GenerationRun
	if err := json.Unmarshal(payload, &run); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode cached run")
	}
	return &run, nil
}
