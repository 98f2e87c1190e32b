package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"rag-worker/cmd/configs"
	"rag-worker/cmd/defines"
	"rag-worker/internal/auth"
	"rag-worker/internal/middleware"
	"rag-worker/internal/models"
	"rag-worker/internal/services"
	apperrors "rag-worker/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(context.Context, string, defines.EmbeddingTask) ([]float32, error) {
	return []float32{1, 0}, nil
}

type stubStore struct {
	matches []models.Match
	filter  map[string]string
}

func (s *stubStore) Upsert(context.Context, []models.VectorRecord) error { return nil }

func (s *stubStore) Query(_ context.Context, q models.VectorQuery) ([]models.Match, error) {
	s.filter = q.Filter
	return s.matches, nil
}

type stubGenerator struct{ err error }

func (g stubGenerator) Generate(context.Context, string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return "Paris", nil
}

type memDocuments struct {
	mu   sync.Mutex
	docs map[string]*models.Document
}

func (m *memDocuments) Create(_ context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *doc
	m.docs[doc.ID] = &cp
	return nil
}

func (m *memDocuments) GetByID(_ context.Context, id string) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, apperrors.Wrap(apperrors.ErrNotFound, fmt.Errorf("document %s", id))
	}
	cp := *doc
	return &cp, nil
}

func (m *memDocuments) UpdateStatus(_ context.Context, id string, status defines.JobStatus, msg *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc, ok := m.docs[id]; ok {
		doc.Status = status
		doc.ErrorMessage = msg
	}
	return nil
}

type memQueue struct {
	pushed [][]byte
}

func (q *memQueue) Ping(context.Context) error { return nil }
func (q *memQueue) LPush(_ context.Context, _ string, payload []byte) error {
	q.pushed = append(q.pushed, payload)
	return nil
}
func (q *memQueue) BRPop(context.Context, string) ([]byte, error) { return nil, nil }
func (q *memQueue) RPop(context.Context, string) ([]byte, error)  { return nil, nil }

type memUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func (m *memUsers) Create(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Email]; ok {
		return apperrors.ErrConflict
	}
	cp := *user
	m.users[user.Email] = &cp
	return nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[email]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type fixture struct {
	router *gin.Engine
	tokens *auth.TokenService
	store  *stubStore
	queue  *memQueue
}

func newFixture(t *testing.T, gen stubGenerator, dbErr error) *fixture {
	t.Helper()

	cfg := &configs.Config{AppEnv: "test"}
	cfg.JWT.SecretKey = "handler-secret"
	tokens := auth.NewTokenService(cfg)

	store := &stubStore{matches: []models.Match{
		{ID: "j1#0", Score: 0.9, Metadata: models.VectorMetadata{Text: "Paris is the capital.", SourceURL: "https://a.example"}},
	}}
	queue := &memQueue{}
	docs := &memDocuments{docs: map[string]*models.Document{}}

	svcs := &services.Services{
		Health:    services.NewHealthService(pinger{err: dbErr}, pinger{}),
		Ingestion: services.NewIngestionService(docs, queue, defines.DefaultQueueName),
		Retrieval: services.NewRetrievalService(stubEmbedder{}, store, gen, services.DefaultTopK),
		Auth:      services.NewAuthService(&memUsers{users: map[string]*models.User{}}, tokens),
	}

	return &fixture{
		router: NewRouter(cfg, NewHandlers(svcs), middleware.NewAuthMiddleware(tokens)),
		tokens: tokens,
		store:  store,
		queue:  queue,
	}
}

func (f *fixture) do(t *testing.T, method, path, body, userID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, err := f.tokens.GenerateAccessToken(userID, "")
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestChat(t *testing.T) {
	f := newFixture(t, stubGenerator{}, nil)

	w := f.do(t, http.MethodPost, "/rag-chat", `{"query":"capital of France?"}`, "user-1")
	require.Equal(t, http.StatusOK, w.Code)

	var answer models.Answer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &answer))
	assert.Equal(t, "Paris", answer.Answer)
	assert.Equal(t, []string{"https://a.example"}, answer.Sources)
	assert.Equal(t, map[string]string{"user_id": "user-1"}, f.store.filter)
}

func TestChat_Errors(t *testing.T) {
	f := newFixture(t, stubGenerator{}, nil)

	w := f.do(t, http.MethodPost, "/rag-chat", `{"query":"hi"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/rag-chat", `{}`, "user-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	failing := newFixture(t, stubGenerator{err: fmt.Errorf("llm down")}, nil)
	w = failing.do(t, http.MethodPost, "/rag-chat", `{"query":"hi"}`, "user-1")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), apperrors.ErrExternalService.Code)
}

func TestIngestion_EnqueueAndLookup(t *testing.T) {
	f := newFixture(t, stubGenerator{}, nil)

	w := f.do(t, http.MethodPost, "/ingestion", `{"url":"https://example.com/page"}`, "user-1")
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp models.EnqueueResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, defines.JobStatusPending, resp.Status)
	assert.Equal(t, "Job successfully queued", resp.Message)
	require.Len(t, f.queue.pushed, 1)

	w = f.do(t, http.MethodGet, "/ingestion/"+resp.JobID, "", "user-1")
	require.Equal(t, http.StatusOK, w.Code)
	var doc models.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "https://example.com/page", doc.SourceURL)

	w = f.do(t, http.MethodGet, "/ingestion/"+resp.JobID, "", "user-2")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIngestion_RejectsBadURL(t *testing.T) {
	f := newFixture(t, stubGenerator{}, nil)

	w := f.do(t, http.MethodPost, "/ingestion", `{"url":"ftp://example.com"}`, "user-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, f.queue.pushed)
}

func TestHealth(t *testing.T) {
	w := newFixture(t, stubGenerator{}, nil).do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = newFixture(t, stubGenerator{}, fmt.Errorf("db down")).do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "db down")
}

func (f *fixture) post(t *testing.T, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestAuth_SignupLoginAndChat(t *testing.T) {
	f := newFixture(t, stubGenerator{}, nil)

	w := f.post(t, "/auth/signup", `{"email":"ana@example.com","password":"password123"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)
	var signup models.SignupResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &signup))
	assert.Equal(t, "User created successfully", signup.Message)
	require.NotEmpty(t, signup.UserID)

	w = f.post(t, "/auth/login", `{"email":"ana@example.com","password":"password123"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	var login models.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	require.NotEmpty(t, login.AccessToken)

	w = f.post(t, "/rag-chat", `{"query":"capital of France?"}`, login.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]string{"user_id": signup.UserID}, f.store.filter)
}

func TestAuth_Errors(t *testing.T) {
	f := newFixture(t, stubGenerator{}, nil)

	w := f.post(t, "/auth/signup", `{"email":"not-an-email","password":"password123"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.post(t, "/auth/signup", `{"email":"ben@example.com","password":"short"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.post(t, "/auth/signup", `{"email":"ben@example.com","password":"password123"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.post(t, "/auth/signup", `{"email":"ben@example.com","password":"password456"}`, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Email already exists")

	w = f.post(t, "/auth/login", `{"email":"ben@example.com","password":"wrong-password"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid credentials")

	w = f.post(t, "/auth/login", `{"email":"ghost@example.com","password":"password123"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.post(t, "/auth/login", `{}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
