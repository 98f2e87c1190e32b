package services

import (
	"time"
)

// Services holds all service instances
type Services struct {
	Health    *HealthService
	Ingestion *IngestionService
	Retrieval *RetrievalService
	Auth      *AuthService
	Processor *JobProcessor
	Workers   *JobWorkerPool
}

// Close gracefully shuts down all services
func (s *Services) Close() {
	if s.Workers != nil {
		s.Workers.Stop(30 * time.Second)
	}
}
