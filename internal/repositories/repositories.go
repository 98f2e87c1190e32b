package repositories

import (
	"rag-worker/pkg/postgres"
)

// Repositories holds all repository instances
type Repositories struct {
	Document *DocumentRepository
	User     *UserRepository
}

// NewRepositories creates and returns all repository instances
func NewRepositories(db *postgres.DB) *Repositories {
	return &Repositories{
		Document: NewDocumentRepository(db),
		User:     NewUserRepository(db),
	}
}
