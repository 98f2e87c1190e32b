package handlers

import (
	"rag-worker/internal/services"
)

// Handlers holds all handler instances
type Handlers struct {
	Chat      *ChatHandler
	Ingestion *IngestionHandler
	Health    *HealthHandler
	Auth      *AuthHandler
}

// NewHandlers creates and returns all handler instances
func NewHandlers(services *services.Services) *Handlers {
	return &Handlers{
		Chat:      NewChatHandler(services),
		Ingestion: NewIngestionHandler(services),
		Health:    NewHealthHandler(services),
		Auth:      NewAuthHandler(services),
	}
}
