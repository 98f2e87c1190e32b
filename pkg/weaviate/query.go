package weaviate

import (
	"context"
	"fmt"
	"sort"

	"rag-worker/internal/models"

	fylogger "github.com/FyersDev/trading-logger-go"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
)

func getFields() []graphql.Field {
	return []graphql.Field{
		{Name: propText},
		{Name: propSourceURL},
		{Name: propJobID},
		{Name: propUserID},
		{Name: propVectorID},
		{Name: "_additional", Fields: []graphql.Field{{Name: "id"}, {Name: "distance"}}},
	}
}

// whereFilter builds an equality filter over metadata keys, ANDed when there are several
func whereFilter(filter map[string]string) *filters.WhereBuilder {
	if len(filter) == 0 {
		return nil
	}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	operands := make([]*filters.WhereBuilder, 0, len(keys))
	for _, k := range keys {
		operands = append(operands, filters.Where().
			WithPath([]string{k}).
			WithOperator(filters.Equal).
			WithValueText(filter[k]))
	}
	if len(operands) == 1 {
		return operands[0]
	}
	return filters.Where().WithOperator(filters.And).WithOperands(operands)
}

// Query returns the nearest chunks to q.Vector, most similar first.
// Score is 1 - cosine distance.
func (w *WeaviateClient) Query(ctx context.Context, q models.VectorQuery) ([]models.Match, error) {
	className := w.config.ClassName

	get := w.Client.GraphQL().Get().
		WithClassName(className).
		WithFields(getFields()...).
		WithNearVector(
			w.Client.GraphQL().NearVectorArgBuilder().
				WithVector(q.Vector),
		).
		WithLimit(q.TopK)

	if where := whereFilter(q.Filter); where != nil {
		get = get.WithWhere(where)
	}

	response, err := get.Do(ctx)
	if err != nil {
		fylogger.ErrorLog(ctx, "failed to query near vector", err, map[string]interface{}{
			"class_name": className,
			"top_k":      q.TopK,
		})
		return nil, err
	}

	if len(response.Errors) > 0 {
		return nil, fmt.Errorf("weaviate query error: %s", response.Errors[0].Message)
	}

	if response.Data == nil {
		return nil, nil
	}
	data, ok := response.Data["Get"].(map[string]interface{})
	if !ok {
		return nil, nil
	}

	matches := parseMatches(data, className)
	if !q.IncludeMetadata {
		for i := range matches {
			matches[i].Metadata = models.VectorMetadata{}
		}
	}
	return matches, nil
}

func parseMatches(data map[string]interface{}, className string) []models.Match {
	results := []models.Match{}

	collectionData, ok := data[className].([]interface{})
	if !ok {
		return results
	}

	for _, raw := range collectionData {
		item, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}

		match := models.Match{
			ID: stringField(item, propVectorID),
			Metadata: models.VectorMetadata{
				Text:      stringField(item, propText),
				SourceURL: stringField(item, propSourceURL),
				JobID:     stringField(item, propJobID),
				UserID:    stringField(item, propUserID),
			},
		}

		if additional, ok := item["_additional"].(map[string]interface{}); ok {
			if match.ID == "" {
				match.ID = stringField(additional, "id")
			}
			if distance, ok := additional["distance"].(float64); ok {
				match.Score = float32(1 - distance)
			}
		}

		results = append(results, match)
	}

	// Weaviate already orders by distance; keep it stable for equal scores
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results
}

func stringField(item map[string]interface{}, key string) string {
	if v, ok := item[key].(string); ok {
		return v
	}
	return ""
}
