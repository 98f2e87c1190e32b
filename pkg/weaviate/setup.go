package weaviate

import (
	"context"
	"fmt"

	"rag-worker/cmd/configs"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
)

func NewWeaviateClient(ctx context.Context, config *configs.Config) (*WeaviateClient, error) {
	// Build host with port - weaviate-go-client expects "host:port" format
	host := config.WeaviateHost
	if host == "" {
		host = "localhost"
	}
	port := config.WeaviatePort
	if port == "" {
		port = "8080"
	}
	hostWithPort := fmt.Sprintf("%s:%s", host, port)

	scheme := config.WeaviateScheme
	if scheme == "" {
		scheme = "http"
	}

	cfg := weaviate.Config{
		Host:   hostWithPort,
		Scheme: scheme,
	}

	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize weaviate client (connecting to %s://%s): %w", scheme, hostWithPort, err)
	}

	// Check if Weaviate is ready
	ready, err := client.Misc().ReadyChecker().Do(ctx)
	if !ready {
		if err != nil {
			return nil, fmt.Errorf("weaviate is not ready at %s://%s: %w", scheme, hostWithPort, err)
		}
		return nil, fmt.Errorf("weaviate is not ready at %s://%s", scheme, hostWithPort)
	}

	populate := DefaultPopulateConfig()
	if config.WeaviateClass != "" {
		populate.ClassName = config.WeaviateClass
	}

	return &WeaviateClient{
		Client: client,
		config: populate,
	}, nil
}
