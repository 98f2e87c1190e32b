package main

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rag-worker/cmd/configs"
	"rag-worker/internal/auth"
	"rag-worker/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokens() *auth.TokenService {
	cfg := &configs.Config{}
	cfg.JWT.SecretKey = "mcp-secret"
	return auth.NewTokenService(cfg)
}

func bearer(t *testing.T, tokens *auth.TokenService, userID string) string {
	t.Helper()
	token, err := tokens.GenerateAccessToken(userID, "")
	require.NoError(t, err)
	return "Bearer " + token
}

func TestRequireToken(t *testing.T) {
	tokens := newTestTokens()
	a := newTokenAuth(tokens)

	var seen string
	h := a.requireToken(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = userIDFromContext(a.sseContext(r.Context(), r))
		w.WriteHeader(http.StatusOK)
	}))

	other := newTokenAuth(func() *auth.TokenService {
		cfg := &configs.Config{}
		cfg.JWT.SecretKey = "someone-else"
		return auth.NewTokenService(cfg)
	}())

	for name, header := range map[string]string{
		"missing":      "",
		"not bearer":   "Basic dXNlcjpwYXNz",
		"garbage":      "Bearer not-a-jwt",
		"wrong secret": bearer(t, other.tokens, "u1"),
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/sse", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
		})
	}
	assert.Empty(t, seen)

	req := httptest.NewRequest(http.MethodGet, "/sse", nil)
	req.Header.Set("Authorization", bearer(t, tokens, "u1"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", seen)
}

func TestStdioContext(t *testing.T) {
	tokens := newTestTokens()
	a := newTokenAuth(tokens)

	_, err := a.stdioContext("")
	assert.Error(t, err)

	token, err := tokens.GenerateAccessToken("u7", "")
	require.NoError(t, err)
	fn, err := a.stdioContext(token)
	require.NoError(t, err)

	userID, ok := userIDFromContext(fn(context.Background()))
	assert.True(t, ok)
	assert.Equal(t, "u7", userID)
}

// sseEvents streams the data lines of an SSE response
func sseEvents(body *bufio.Scanner) <-chan string {
	out := make(chan string, 16)
	go func() {
		defer close(out)
		for body.Scan() {
			if line := body.Text(); strings.HasPrefix(line, "data: ") {
				out <- strings.TrimPrefix(line, "data: ")
			}
		}
	}()
	return out
}

func nextEvent(t *testing.T, events <-chan string, contains string) string {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "event stream closed")
			if strings.Contains(ev, contains) {
				return ev
			}
		case <-timeout:
			t.Fatalf("no event containing %q", contains)
		}
	}
}

// userEcho answers every search with a match named after the caller
type userEcho struct{}

func (userEcho) Search(_ context.Context, _ string, userID string, _ int) ([]models.Match, error) {
	return []models.Match{{ID: "owner:" + userID, Score: 0.5}}, nil
}

func (userEcho) AnswerQuery(context.Context, string, string) (*models.Answer, error) {
	return &models.Answer{}, nil
}

func TestSSE_ToolCallsRunAsTokenSubject(t *testing.T) {
	tokens := newTestTokens()
	srv := NewMCPServer(NewTools(userEcho{}, &fakeEnqueuer{}), newTokenAuth(tokens))

	ts := httptest.NewUnstartedServer(nil)
	ts.Config.Handler = srv.Handler("http://" + ts.Listener.Addr().String())
	ts.Start()
	defer ts.Close()

	// unauthenticated clients cannot open a session
	resp, err := http.Get(ts.URL + "/sse")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	authHeader := bearer(t, tokens, "subject-1")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/sse", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", authHeader)
	stream, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer stream.Body.Close()
	require.Equal(t, http.StatusOK, stream.StatusCode)

	events := sseEvents(bufio.NewScanner(stream.Body))
	endpoint := nextEvent(t, events, "sessionId=")
	if strings.HasPrefix(endpoint, "/") {
		endpoint = ts.URL + endpoint
	}

	post := func(body, header string) int {
		req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	call := `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"knowledge_base_search","arguments":{"query":"q","user_id":"intruder"}}}`

	// the session id alone does not authorize a message
	assert.Equal(t, http.StatusUnauthorized, post(call, ""))

	initialize := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1.0.0"}}}`
	assert.Equal(t, http.StatusAccepted, post(initialize, authHeader))
	nextEvent(t, events, `"id":1`)

	assert.Equal(t, http.StatusAccepted, post(call, authHeader))
	result := nextEvent(t, events, `"id":7`)

	assert.Contains(t, result, "owner:subject-1")
	assert.NotContains(t, result, "intruder")
}
