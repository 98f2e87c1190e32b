package weaviate

import "github.com/weaviate/weaviate-go-client/v5/weaviate"

type WeaviateClient struct {
	*weaviate.Client
	config *PopulateConfig
}

// PopulateConfig holds configuration for writing chunk vectors
type PopulateConfig struct {
	ClassName        string // Weaviate class name to insert data into
	BatchSize        int    // Number of objects to batch insert
	ConsistencyLevel string // Consistency level for writes (ONE, QUORUM, ALL)
}

// DefaultPopulateConfig returns default configuration
func DefaultPopulateConfig() *PopulateConfig {
	return &PopulateConfig{
		ClassName:        "KnowledgeChunk",
		BatchSize:        100,
		ConsistencyLevel: "ONE",
	}
}

// Property names of the chunk class
const (
	propText       = "text"
	propSourceURL  = "source_url"
	propJobID      = "job_id"
	propUserID     = "user_id"
	propVectorID   = "vector_id"
	propChunkIndex = "chunk_index"
)
