package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"rag-worker/internal/models"

	fylogger "github.com/FyersDev/trading-logger-go"
	"github.com/mark3labs/mcp-go/mcp"
)

const maxTopK = 20

// Retriever is the part of the retrieval service the tools use
type Retriever interface {
	Search(ctx context.Context, query, userID string, topK int) ([]models.Match, error)
	AnswerQuery(ctx context.Context, query, userID string) (*models.Answer, error)
}

// Enqueuer is the part of the ingestion service the tools use
type Enqueuer interface {
	Enqueue(ctx context.Context, rawURL, userID string) (*models.EnqueueResponse, error)
}

// Tools binds the MCP tool handlers to the services
type Tools struct {
	retrieval Retriever
	ingestion Enqueuer
}

func NewTools(retrieval Retriever, ingestion Enqueuer) *Tools {
	return &Tools{retrieval: retrieval, ingestion: ingestion}
}

// errUnauthenticated is returned when the transport attached no token subject
const errUnauthenticated = "unauthorized: a valid bearer token is required"

// AnswerTool answers a question from the caller's ingested pages
var AnswerTool = mcp.Tool{
	Name: "knowledge_base_answer",
	Description: `Answer a question using only web pages previously ingested for the caller.

Returns the answer and the distinct source URLs it was grounded on. When the pages do not
contain the answer the model replies that it does not know.`,
	InputSchema: mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "The question to answer",
			},
		},
		Required: []string{"query"},
	},
}

// SearchTool returns raw chunks for the caller to reason over
var SearchTool = mcp.Tool{
	Name:        "knowledge_base_search",
	Description: `Return the chunks of the caller's ingested pages closest to the query, as JSON, ordered by similarity.`,
	InputSchema: mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "The search query text",
			},
			"top_k": map[string]interface{}{
				"type":        "integer",
				"description": "Number of chunks to return (1-20). Default is 3",
				"default":     3,
			},
		},
		Required: []string{"query"},
	},
}

// EnqueueTool queues a page for ingestion
var EnqueueTool = mcp.Tool{
	Name: "enqueue_url",
	Description: `Queue a web page for scraping and indexing into the caller's knowledge base.

Ingestion is asynchronous; the returned jobId can be used to follow its status.`,
	InputSchema: mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"url": map[string]interface{}{
				"type":        "string",
				"description": "Absolute http(s) URL of the page",
			},
		},
		Required: []string{"url"},
	},
}

func arguments(request mcp.CallToolRequest) (map[string]interface{}, error) {
	argsMap, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid arguments format")
	}
	return argsMap, nil
}

func requiredString(args map[string]interface{}, key string) (string, error) {
	v, ok := args[key].(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("%s parameter is required", key)
	}
	return v, nil
}

// parseTopK accepts the numeric types a JSON decoder may hand us
func parseTopK(raw interface{}) (int, error) {
	var k int
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case int:
		k = v
	case int64:
		k = int(v)
	case float64:
		k = int(v)
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("invalid top_k value %q: %w", v, err)
		}
		k = int(i)
	default:
		return 0, fmt.Errorf("unsupported top_k type %T", raw)
	}
	if k < 1 || k > maxTopK {
		return 0, fmt.Errorf("top_k must be between 1 and %d", maxTopK)
	}
	return k, nil
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

func (t *Tools) HandleAnswer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return mcp.NewToolResultError(errUnauthenticated), nil
	}
	args, err := arguments(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	query, err := requiredString(args, "query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	answer, err := t.retrieval.AnswerQuery(ctx, query, userID)
	if err != nil {
		fylogger.ErrorLog(ctx, "mcp answer failed", err, map[string]interface{}{"user_id": userID})
		return mcp.NewToolResultError(fmt.Sprintf("answer failed: %v", err)), nil
	}

	return jsonResult(answer)
}

// SearchResult is the JSON body of knowledge_base_search
type SearchResult struct {
	Query       string         `json:"query"`
	TopK        int            `json:"top_k,omitempty"`
	ResultCount int            `json:"result_count"`
	Results     []models.Match `json:"results"`
}

func (t *Tools) HandleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return mcp.NewToolResultError(errUnauthenticated), nil
	}
	args, err := arguments(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	query, err := requiredString(args, "query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	topK, err := parseTopK(args["top_k"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	matches, err := t.retrieval.Search(ctx, query, userID, topK)
	if err != nil {
		fylogger.ErrorLog(ctx, "mcp search failed", err, map[string]interface{}{"user_id": userID})
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if matches == nil {
		matches = []models.Match{}
	}

	return jsonResult(SearchResult{
		Query:       query,
		TopK:        topK,
		ResultCount: len(matches),
		Results:     matches,
	})
}

func (t *Tools) HandleEnqueue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return mcp.NewToolResultError(errUnauthenticated), nil
	}
	args, err := arguments(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rawURL, err := requiredString(args, "url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp, err := t.ingestion.Enqueue(ctx, rawURL, userID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("enqueue failed: %v", err)), nil
	}

	return jsonResult(resp)
}
