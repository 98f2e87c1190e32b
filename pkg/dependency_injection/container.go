package dependency_injection

import (
	"context"
	"fmt"

	"rag-worker/cmd/configs"
	"rag-worker/internal/auth"
	"rag-worker/internal/chunker"
	"rag-worker/internal/handlers"
	"rag-worker/internal/middleware"
	"rag-worker/internal/repositories"
	"rag-worker/internal/services"
	apperrors "rag-worker/pkg/errors"
	"rag-worker/pkg/llm"
	"rag-worker/pkg/memorydb"
	"rag-worker/pkg/postgres"
	"rag-worker/pkg/qdrant"
	"rag-worker/pkg/scraper"
	"rag-worker/pkg/weaviate"

	fylogger "github.com/FyersDev/trading-logger-go"
)

const (
	VectorBackendWeaviate = "weaviate"
	VectorBackendQdrant   = "qdrant"
)

// vectorBackend is a vector store that can also create its own schema
type vectorBackend interface {
	services.VectorStore
	EnsureSchema(ctx context.Context) error
}

type weaviateBackend struct {
	*weaviate.WeaviateClient
}

func (w weaviateBackend) EnsureSchema(ctx context.Context) error { return w.EnsureClass(ctx) }

type qdrantBackend struct {
	*qdrant.QdrantClient
}

func (q qdrantBackend) EnsureSchema(ctx context.Context) error { return q.EnsureCollection(ctx) }

type options struct {
	pipeline   bool
	workerPool bool
}

// Option trims what NewContainer builds for commands that need less
type Option func(*options)

// WithoutPipeline skips the scraper, job processor and worker pool. Use it for
// processes that only enqueue jobs or read the index.
func WithoutPipeline() Option {
	return func(o *options) {
		o.pipeline = false
		o.workerPool = false
	}
}

// WithoutWorkerPool keeps the job processor but skips the pool, for consumers
// that run jobs inline.
func WithoutWorkerPool() Option {
	return func(o *options) {
		o.workerPool = false
	}
}

type Container struct {
	Config         *configs.Config
	DB             *postgres.DB
	RedisClient    *memorydb.RedisClient
	QdrantClient   *qdrant.QdrantClient
	VectorStore    services.VectorStore
	Repositories   *repositories.Repositories
	TokenService   *auth.TokenService
	AuthMiddleware *middleware.AuthMiddleware
	Services       *services.Services
	Handlers       *handlers.Handlers

	vector vectorBackend
}

func NewContainer(ctx context.Context, config *configs.Config, opts ...Option) (*Container, error) {
	o := options{pipeline: true, workerPool: true}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Container{Config: config}

	// Initialize redis client
	redisClient, err := memorydb.NewRedisClient(ctx, config)
	if err != nil {
		fylogger.ErrorLog(ctx, "Failed to initialize redis client", err, nil)
		return nil, apperrors.Wrap(apperrors.ErrQueueConnection, err)
	}
	c.RedisClient = redisClient

	// Initialize database client
	db, err := postgres.NewPostgresClient(ctx, config)
	if err != nil {
		fylogger.ErrorLog(ctx, "Failed to initialize database", err, nil)
		c.Close()
		return nil, err
	}
	c.DB = db
	c.Repositories = repositories.NewRepositories(db)

	if err := c.initVectorStore(ctx); err != nil {
		fylogger.ErrorLog(ctx, "Failed to initialize vector store", err, map[string]interface{}{
			"backend": config.VectorBackend,
		})
		c.Close()
		return nil, err
	}

	embedder, err := llm.NewEmbedder(config)
	if err != nil {
		c.Close()
		return nil, err
	}
	generator, err := llm.NewGenerator(config)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.TokenService = auth.NewTokenService(config)
	c.AuthMiddleware = middleware.NewAuthMiddleware(c.TokenService)

	c.Services = &services.Services{
		Health:    services.NewHealthService(db, redisClient),
		Ingestion: services.NewIngestionService(c.Repositories.Document, redisClient, config.QueueName),
		Retrieval: services.NewRetrievalService(embedder, c.VectorStore, generator, config.Pipeline.TopK),
		Auth:      services.NewAuthService(c.Repositories.User, c.TokenService),
	}

	if o.pipeline {
		splitter := chunker.NewSplitter(config.Pipeline.ChunkSize, config.Pipeline.ChunkOverlap)
		status := services.NewStatusTracker(c.Repositories.Document)
		c.Services.Processor = services.NewJobProcessor(scraper.NewScraper(config), splitter, embedder, c.VectorStore, status)
	}

	if o.workerPool {
		workers, err := services.NewJobWorkerPool(c.Services.Processor, services.DefaultWorkerPoolConfig())
		if err != nil {
			c.Close()
			return nil, err
		}
		c.Services.Workers = workers
	}

	c.Handlers = handlers.NewHandlers(c.Services)

	return c, nil
}

func (c *Container) initVectorStore(ctx context.Context) error {
	switch c.Config.VectorBackend {
	case "", VectorBackendWeaviate:
		client, err := weaviate.NewWeaviateClient(ctx, c.Config)
		if err != nil {
			return err
		}
		c.vector = weaviateBackend{client}
	case VectorBackendQdrant:
		client, err := qdrant.NewQdrantClient(c.Config)
		if err != nil {
			return err
		}
		c.QdrantClient = client
		c.vector = qdrantBackend{client}
	default:
		return fmt.Errorf("unknown vector backend %q", c.Config.VectorBackend)
	}
	c.VectorStore = c.vector
	return nil
}

// Migrate creates the status and users tables and the vector class or collection
func (c *Container) Migrate(ctx context.Context) error {
	if err := c.Repositories.Document.CreateSchema(ctx); err != nil {
		return err
	}
	if err := c.Repositories.User.CreateSchema(ctx); err != nil {
		return err
	}
	if err := c.vector.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to create vector schema: %w", err)
	}
	fylogger.InfoLog(ctx, "schema ready", map[string]interface{}{
		"backend": c.Config.VectorBackend,
	})
	return nil
}

// NewConsumer builds a queue consumer. Polling consumers go through the worker
// pool so jobs never run on a request goroutine; blocking consumers call the
// processor directly.
func (c *Container) NewConsumer(mode services.ConsumerMode) (*services.QueueConsumer, error) {
	var handler services.JobHandler
	switch {
	case mode == services.ConsumerModePolling && c.Services.Workers != nil:
		handler = c.Services.Workers
	case mode != services.ConsumerModePolling && c.Services.Processor != nil:
		handler = c.Services.Processor
	default:
		return nil, fmt.Errorf("container was built without the job pipeline needed for %s consumers", mode)
	}

	return services.NewQueueConsumer(c.RedisClient, handler, services.ConsumerConfig{
		QueueName:    c.Config.QueueName,
		Mode:         mode,
		PollInterval: c.Config.Pipeline.PollInterval,
		Backoff:      c.Config.Pipeline.Backoff,
	}), nil
}

func (c *Container) Close() {
	// Stop services first (workers)
	if c.Services != nil {
		c.Services.Close()
	}

	if c.QdrantClient != nil {
		c.QdrantClient.Close()
	}
	if c.DB != nil {
		c.DB.Close()
	}
	if c.RedisClient != nil {
		c.RedisClient.Close()
	}
}
