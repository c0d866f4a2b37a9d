package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/samarthnaikk/ychat20/internal/auth"
	"github.com/samarthnaikk/ychat20/internal/history"
	"github.com/samarthnaikk/ychat20/internal/identity"
	"github.com/samarthnaikk/ychat20/internal/ratelimit"
	"github.com/samarthnaikk/ychat20/internal/store"
)

const testSecret = "api-endpoint-signing-key-for-unit-checks"

type testEnv struct {
	engine    *gin.Engine
	validator *auth.JWTValidator
	mem       *store.MemoryStore
	limiter   *ratelimit.RequestLimiter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	validator := auth.NewJWTValidator(testSecret)
	mem := store.NewMemory()
	mem.AddUser(1)
	mem.AddUser(2)

	logger := zap.NewNop().Sugar()
	ident := identity.New(validator, mem)
	svc := history.New(mem, logger)
	limiter := ratelimit.NewRequestLimiter(15*time.Minute, 100)

	engine := gin.New()
	group := engine.Group("/api/messages")
	group.Use(AuthMiddleware(ident, logger))
	group.Use(RateLimitMiddleware(limiter, logger))
	group.GET("/history/:userID", HandleChatHistory(svc, logger))
	group.POST("/read", HandleMarkRead(svc, logger))

	return &testEnv{engine: engine, validator: validator, mem: mem, limiter: limiter}
}

func (e *testEnv) token(t *testing.T, userID int64) string {
	t.Helper()
	token, err := e.validator.Issue(userID, time.Hour)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func TestHistoryRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	t.Run("missing header", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/messages/history/2", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/messages/history/2", "bogus", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestHistoryValidation(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, 1)

	t.Run("non-numeric user id", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/messages/history/alice", token, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "Validation error", body["error"])
		assert.Equal(t, "Valid user ID is required", body["message"])
	})

	t.Run("unknown user", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/messages/history/99", token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "User not found", body["error"])
	})
}

func TestHistoryPage(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, 1)

	for i := 0; i < 3; i++ {
		_, err := env.mem.Append(context.Background(), 1, 2, fmt.Sprintf("msg-%d", i))
		require.NoError(t, err)
	}

	w := env.do(t, http.MethodGet, "/api/messages/history/2?limit=2", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Messages []struct {
			ID      int64  `json:"id"`
			Content string `json:"content"`
		} `json:"messages"`
		Pagination struct {
			Limit  int `json:"limit"`
			Offset int `json:"offset"`
			Total  int `json:"total"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	require.Len(t, body.Messages, 2)
	// Most recent window, returned oldest first.
	assert.Equal(t, "msg-1", body.Messages[0].Content)
	assert.Equal(t, "msg-2", body.Messages[1].Content)
	assert.Equal(t, 2, body.Pagination.Limit)
	assert.Equal(t, 0, body.Pagination.Offset)
	assert.Equal(t, 2, body.Pagination.Total)
}

func TestHistoryBadPaginationFallsBack(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, 1)

	_, err := env.mem.Append(context.Background(), 1, 2, "hello")
	require.NoError(t, err)

	w := env.do(t, http.MethodGet, "/api/messages/history/2?limit=abc&offset=xyz", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Pagination struct {
			Limit  int `json:"limit"`
			Offset int `json:"offset"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 50, body.Pagination.Limit)
	assert.Equal(t, 0, body.Pagination.Offset)
}

func TestHistoryRateLimit(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, 1)

	// Rebuild the route stack with a tiny budget.
	logger := zap.NewNop().Sugar()
	ident := identity.New(env.validator, env.mem)
	svc := history.New(env.mem, logger)
	limiter := ratelimit.NewRequestLimiter(15*time.Minute, 2)

	engine := gin.New()
	group := engine.Group("/api/messages")
	group.Use(AuthMiddleware(ident, logger))
	group.Use(RateLimitMiddleware(limiter, logger))
	group.GET("/history/:userID", HandleChatHistory(svc, logger))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/messages/history/2", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/messages/history/2", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestMarkRead(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, 1)

	toAlice, err := env.mem.Append(context.Background(), 2, 1, "unread")
	require.NoError(t, err)

	t.Run("marks owned messages", func(t *testing.T) {
		body, _ := json.Marshal(map[string][]int64{"message_ids": {toAlice.ID}})
		w := env.do(t, http.MethodPost, "/api/messages/read", token, body)
		require.Equal(t, http.StatusOK, w.Code)

		var got struct {
			Read  []int64 `json:"read"`
			Count int     `json:"count"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, []int64{toAlice.ID}, got.Read)
		assert.Equal(t, 1, got.Count)
	})

	t.Run("empty ids rejected", func(t *testing.T) {
		body, _ := json.Marshal(map[string][]int64{"message_ids": {}})
		w := env.do(t, http.MethodPost, "/api/messages/read", token, body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed body rejected", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/messages/read", token, []byte("{"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
