package aisvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seekmycourse/backend/core"
)

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func completionBody(content string) string {
	body, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"content": content}},
		},
	})
	return string(body)
}

func newService(primaryURL, fallbackURL string) *openAIService {
	conf := core.Conf.AI
	defer func() { core.Conf.AI = conf }()

	core.Conf.AI.BaseURL = primaryURL
	core.Conf.AI.Keys = []string{"key-1", "key-2"}
	core.Conf.AI.MaxRetries = 1
	core.Conf.AI.Timeout = 5 * time.Second
	core.Conf.AI.FallbackBaseURL = fallbackURL
	core.Conf.AI.FallbackKeys = nil
	if fallbackURL != "" {
		core.Conf.AI.FallbackKeys = []string{"fb-key"}
	}

	svc := NewOpenAIService(nopLogger{})
	svc.retryBackoff = 0
	return svc
}

func TestGenerateText(t *testing.T) {
	ctx := context.Background()

	t.Run("success with bearer key", func(t *testing.T) {
		var gotAuth string
		var gotReq chatRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
			w.Write([]byte(completionBody("hello there")))
		}))
		defer server.Close()

		svc := newService(server.URL, "")
		content, err := svc.GenerateText(ctx, "say hello")
		require.NoError(t, err)
		assert.Equal(t, "hello there", content)
		assert.Equal(t, "Bearer key-1", gotAuth)
		require.Len(t, gotReq.Messages, 1)
		assert.Equal(t, "user", gotReq.Messages[0].Role)
		assert.Nil(t, gotReq.ResponseFormat)
	})

	t.Run("json mode sets response format", func(t *testing.T) {
		var gotReq chatRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
			w.Write([]byte(completionBody(`{"ok": true}`)))
		}))
		defer server.Close()

		svc := newService(server.URL, "")
		_, err := svc.GenerateJSON(ctx, "return json")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"type": "json_object"}, gotReq.ResponseFormat)
	})

	t.Run("retries on 429 and rotates keys", func(t *testing.T) {
		var auths []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auths = append(auths, r.Header.Get("Authorization"))
			if len(auths) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Write([]byte(completionBody("recovered")))
		}))
		defer server.Close()

		svc := newService(server.URL, "")
		content, err := svc.GenerateText(ctx, "prompt")
		require.NoError(t, err)
		assert.Equal(t, "recovered", content)
		assert.Equal(t, []string{"Bearer key-1", "Bearer key-2"}, auths)
	})

	t.Run("bad request is not retried", func(t *testing.T) {
		var calls int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error": {"message": "bad prompt"}}`))
		}))
		defer server.Close()

		svc := newService(server.URL, "")
		_, err := svc.GenerateText(ctx, "prompt")
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("falls back to secondary provider", func(t *testing.T) {
		primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer primary.Close()

		var fallbackAuth string
		fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fallbackAuth = r.Header.Get("Authorization")
			w.Write([]byte(completionBody("from fallback")))
		}))
		defer fallback.Close()

		svc := newService(primary.URL, fallback.URL)
		content, err := svc.GenerateText(ctx, "prompt")
		require.NoError(t, err)
		assert.Equal(t, "from fallback", content)
		assert.Equal(t, "Bearer fb-key", fallbackAuth)
	})

	t.Run("empty completion is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices": []}`))
		}))
		defer server.Close()

		svc := newService(server.URL, "")
		_, err := svc.GenerateText(ctx, "prompt")
		assert.Error(t, err)
	})
}
