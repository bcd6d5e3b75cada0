package main

import (
	"github.com/bangunhq/estimator/internal/application/estimate"
	"github.com/bangunhq/estimator/internal/infrastructure/database/redis"
)

// lockProvider narrows the redis client to the orchestrator's lock interface.
type lockProvider struct {
	client *redis.Client
}

func (p lockProvider) JobLock(jobID string) estimate.DispatchLock {
	return p.client.JobLock(jobID)
}
