package weaviate

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"rag-worker/internal/models"

	fylogger "github.com/FyersDev/trading-logger-go"
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	wvmodels "github.com/weaviate/weaviate/entities/models"
)

// ObjectID maps a "<jobId>#<idx>" record id onto a stable UUID, so re-running a
// job overwrites the same objects.
func ObjectID(recordID string) strfmt.UUID {
	return strfmt.UUID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(recordID)).String())
}

func chunkClass(className string) *wvmodels.Class {
	exact := func(name string, dataType string) *wvmodels.Property {
		return &wvmodels.Property{Name: name, DataType: []string{dataType}, Tokenization: "field"}
	}

	return &wvmodels.Class{
		Class:       className,
		Description: "Scraped page chunks with externally computed embeddings",
		Vectorizer:  "none",
		Properties: []*wvmodels.Property{
			{Name: propText, DataType: []string{"text"}},
			exact(propSourceURL, "text"),
			exact(propJobID, "text"),
			exact(propUserID, "text"),
			exact(propVectorID, "text"),
			{Name: propChunkIndex, DataType: []string{"int"}},
		},
	}
}

// EnsureClass creates the chunk class unless it already exists
func (w *WeaviateClient) EnsureClass(ctx context.Context) error {
	className := w.config.ClassName

	exists, err := w.Client.Schema().ClassExistenceChecker().WithClassName(className).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to check class %s: %w", className, err)
	}
	if exists {
		return nil
	}

	err = w.Client.Schema().ClassCreator().WithClass(chunkClass(className)).Do(ctx)
	if err != nil {
		// Lost a race with another creator
		exists, _ := w.Client.Schema().ClassExistenceChecker().WithClassName(className).Do(ctx)
		if exists {
			return nil
		}
		return fmt.Errorf("failed to create class %s: %w", className, err)
	}

	fylogger.InfoLog(ctx, "created weaviate class", map[string]interface{}{
		"class_name": className,
	})
	return nil
}

func toObject(className string, record models.VectorRecord) *wvmodels.Object {
	return &wvmodels.Object{
		Class: className,
		ID:    ObjectID(record.ID),
		Properties: map[string]interface{}{
			propText:       record.Metadata.Text,
			propSourceURL:  record.Metadata.SourceURL,
			propJobID:      record.Metadata.JobID,
			propUserID:     record.Metadata.UserID,
			propVectorID:   record.ID,
			propChunkIndex: chunkIndexOf(record.ID),
		},
		Vector: record.Values,
	}
}

// chunkIndexOf extracts idx from "<jobId>#<idx>", -1 if absent
func chunkIndexOf(recordID string) int {
	i := strings.LastIndex(recordID, "#")
	if i < 0 {
		return -1
	}
	n, err := strconv.Atoi(recordID[i+1:])
	if err != nil || n < 0 {
		return -1
	}
	return n
}

// Upsert writes records in batches. Objects are keyed by ObjectID so an existing
// object with the same record id is replaced.
func (w *WeaviateClient) Upsert(ctx context.Context, records []models.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	batchSize := w.config.BatchSize
	if batchSize <= 0 {
		batchSize = len(records)
	}

	for start := 0; start < len(records); start += batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}

		batcher := w.Client.Batch().ObjectsBatcher()
		if w.config.ConsistencyLevel != "" {
			batcher = batcher.WithConsistencyLevel(w.config.ConsistencyLevel)
		}
		for _, record := range records[start:end] {
			batcher = batcher.WithObjects(toObject(w.config.ClassName, record))
		}

		responses, err := batcher.Do(ctx)
		if err != nil {
			return fmt.Errorf("batch upsert failed at record %d: %w", start, err)
		}
		if err := batchError(responses); err != nil {
			return fmt.Errorf("batch upsert failed at record %d: %w", start, err)
		}
	}

	return nil
}

// batchError collects per-object failures, which the batch endpoint reports with a 200
func batchError(responses []wvmodels.ObjectsGetResponse) error {
	var messages []string
	for _, res := range responses {
		if res.Result == nil || res.Result.Errors == nil {
			continue
		}
		for _, item := range res.Result.Errors.Error {
			if item != nil && item.Message != "" {
				messages = append(messages, fmt.Sprintf("%s: %s", res.ID, item.Message))
			}
		}
	}
	if len(messages) == 0 {
		return nil
	}
	return fmt.Errorf("%d object(s) rejected: %s", len(messages), strings.Join(messages, "; "))
}
