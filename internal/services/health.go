package services

import (
	"context"
	"time"
)

// HealthStatus represents the status of a service
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details,omitempty"`
}

// HealthService handles health check operations
type HealthService struct {
	db    Pinger // Status store
	redis Pinger // Work queue
}

// NewHealthService creates a new health service
func NewHealthService(db Pinger, redis Pinger) *HealthService {
	return &HealthService{
		db:    db,
		redis: redis,
	}
}

func check(ctx context.Context, p Pinger) HealthStatus {
	if p == nil {
		return HealthStatus{
			Status:    "error",
			Timestamp: time.Now(),
			Details:   "not configured",
		}
	}
	if err := p.Ping(ctx); err != nil {
		return HealthStatus{
			Status:    "error",
			Timestamp: time.Now(),
			Details:   err.Error(),
		}
	}
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
	}
}

// CheckDatabase checks the status store connection
func (s *HealthService) CheckDatabase(ctx context.Context) map[string]HealthStatus {
	return map[string]HealthStatus{"database": check(ctx, s.db)}
}

// CheckRedis checks Redis connection
func (s *HealthService) CheckRedis(ctx context.Context) map[string]HealthStatus {
	return map[string]HealthStatus{"redis": check(ctx, s.redis)}
}

// CheckOverall checks all services
func (s *HealthService) CheckOverall(ctx context.Context) map[string]HealthStatus {
	status := make(map[string]HealthStatus)

	for k, v := range s.CheckDatabase(ctx) {
		status[k] = v
	}
	for k, v := range s.CheckRedis(ctx) {
		status[k] = v
	}

	return status
}

// Healthy reports whether every check in status is ok
func Healthy(status map[string]HealthStatus) bool {
	for _, s := range status {
		if s.Status != "ok" {
			return false
		}
	}
	return true
}
