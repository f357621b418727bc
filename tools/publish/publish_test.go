package publish

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/inkwell/llm"
)

func TestExecutor_Publish(t *testing.T) {
	var got post
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	e := NewExecutor(Config{WebhookURL: srv.URL, AuthToken: "tok"})
	result, err := e.Execute(context.Background(), llm.ToolCall{
		ID:   "c1",
		Name: "publish_post",
		Arguments: json.RawMessage(`{
			"title":"Remote Work","body":"the post","image_url":"https://img.example.com/1.png"}`),
	})
	require.NoError(t, err)
	assert.Empty(t, result.Error)
	assert.Contains(t, result.Content, "Remote Work")
	assert.Equal(t, "the post", got.Body)
	assert.Equal(t, "https://img.example.com/1.png", got.ImageURL)
}

func TestExecutor_PublishErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	t.Run("not configured", func(t *testing.T) {
		e := NewExecutor(Config{})
		result, err := e.Execute(context.Background(), llm.ToolCall{
			Arguments: json.RawMessage(`{"title":"t","body":"b"}`),
		})
		require.NoError(t, err)
		assert.Contains(t, result.Error, "not configured")
	})

	t.Run("missing fields", func(t *testing.T) {
		e := NewExecutor(Config{WebhookURL: srv.URL})
		result, err := e.Execute(context.Background(), llm.ToolCall{
			Arguments: json.RawMessage(`{"title":"t"}`),
		})
		require.NoError(t, err)
		assert.Contains(t, result.Error, "requires title and body")
	})

	t.Run("endpoint failure", func(t *testing.T) {
		e := NewExecutor(Config{WebhookURL: srv.URL})
		result, err := e.Execute(context.Background(), llm.ToolCall{
			Arguments: json.RawMessage(`{"title":"t","body":"b"}`),
		})
		require.NoError(t, err)
		assert.Contains(t, result.Error, "returned 502")
	})
}
