package qdrant

import (
	"context"
	"fmt"
	"sort"

	"rag-worker/cmd/configs"
	"rag-worker/internal/models"

	fylogger "github.com/FyersDev/trading-logger-go"
	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Payload keys of a chunk point
const (
	payloadText      = "text"
	payloadSourceURL = "source_url"
	payloadJobID     = "job_id"
	payloadUserID    = "user_id"
	payloadVectorID  = "vector_id"
)

// QdrantClient stores chunk vectors in a single Qdrant collection
type QdrantClient struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	dimensions  int
}

func NewQdrantClient(config *configs.Config) (*QdrantClient, error) {
	conn, err := grpc.NewClient(config.QdrantAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to dial qdrant %s: %w", config.QdrantAddr, err)
	}
	return &QdrantClient{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  config.QdrantCollection,
		dimensions:  config.VectorDimensions,
	}, nil
}

// Close closes the underlying gRPC connection
func (q *QdrantClient) Close() error {
	return q.conn.Close()
}

// PointID maps a "<jobId>#<idx>" record id onto a stable UUID
func PointID(recordID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(recordID)).String()
}

// EnsureCollection creates the collection with cosine distance if it doesn't exist
func (q *QdrantClient) EnsureCollection(ctx context.Context) error {
	list, err := q.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == q.collection {
			return nil
		}
	}

	_, err = q.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(q.dimensions),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", q.collection, err)
	}

	fylogger.InfoLog(ctx, "created qdrant collection", map[string]interface{}{
		"collection": q.collection,
		"dimensions": q.dimensions,
	})
	return nil
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func toPoint(record models.VectorRecord) *pb.PointStruct {
	return &pb.PointStruct{
		Id: &pb.PointId{
			PointIdOptions: &pb.PointId_Uuid{Uuid: PointID(record.ID)},
		},
		Vectors: &pb.Vectors{
			VectorsOptions: &pb.Vectors_Vector{
				Vector: &pb.Vector{Data: record.Values},
			},
		},
		Payload: map[string]*pb.Value{
			payloadText:      stringValue(record.Metadata.Text),
			payloadSourceURL: stringValue(record.Metadata.SourceURL),
			payloadJobID:     stringValue(record.Metadata.JobID),
			payloadUserID:    stringValue(record.Metadata.UserID),
			payloadVectorID:  stringValue(record.ID),
		},
	}
}

// Upsert writes all records in one request and waits for them to be applied
func (q *QdrantClient) Upsert(ctx context.Context, records []models.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(records))
	for i, r := range records {
		points[i] = toPoint(r)
	}

	wait := true
	_, err := q.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: q.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert %d points: %w", len(records), err)
	}
	return nil
}

func fieldMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}

func searchRequest(collection string, query models.VectorQuery) *pb.SearchPoints {
	req := &pb.SearchPoints{
		CollectionName: collection,
		Vector:         query.Vector,
		Limit:          uint64(query.TopK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: query.IncludeMetadata}},
	}

	if len(query.Filter) > 0 {
		keys := make([]string, 0, len(query.Filter))
		for k := range query.Filter {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		must := make([]*pb.Condition, 0, len(keys))
		for _, k := range keys {
			must = append(must, fieldMatch(k, query.Filter[k]))
		}
		req.Filter = &pb.Filter{Must: must}
	}
	return req
}

func toMatch(point *pb.ScoredPoint) models.Match {
	payload := point.GetPayload()
	match := models.Match{
		ID:    payload[payloadVectorID].GetStringValue(),
		Score: point.GetScore(),
		Metadata: models.VectorMetadata{
			Text:      payload[payloadText].GetStringValue(),
			SourceURL: payload[payloadSourceURL].GetStringValue(),
			JobID:     payload[payloadJobID].GetStringValue(),
			UserID:    payload[payloadUserID].GetStringValue(),
		},
	}
	if match.ID == "" {
		match.ID = point.GetId().GetUuid()
	}
	return match
}

// Query performs a filtered k-NN search, most similar first
func (q *QdrantClient) Query(ctx context.Context, query models.VectorQuery) ([]models.Match, error) {
	resp, err := q.points.Search(ctx, searchRequest(q.collection, query))
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", q.collection, err)
	}

	matches := make([]models.Match, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		matches[i] = toMatch(r)
	}
	return matches, nil
}
