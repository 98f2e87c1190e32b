package defines

// JobStatus represents the current state of a scrape job
type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusInProgress JobStatus = "IN_PROGRESS"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// DefaultQueueName is the Redis list producers push scrape jobs onto
const DefaultQueueName = "scraping_queue"

// EmbeddingTask selects how text is embedded. Both tasks share one vector space.
type EmbeddingTask string

const (
	EmbeddingTaskDocument EmbeddingTask = "RETRIEVAL_DOCUMENT"
	EmbeddingTaskQuery    EmbeddingTask = "RETRIEVAL_QUERY"
)
