package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completions(t *testing.T, srv *httptest.Server, system, user string) string {
	t.Helper()
	body, _ := json.Marshal(chatRequest{
		Model: "mock",
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	resp, err := http.Post(srv.URL+"/v1/chat/completions", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out chatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Choices, 1)
	return out.Choices[0].Message.Content
}

func TestDetectPhase(t *testing.T) {
	tests := []struct {
		name   string
		system string
		want   string
	}{
		{"planner", "You are a content planning assistant. Given a user request...", "planner"},
		{"research", "You are a research assistant. Use the available tools...", "research"},
		{"positioning", "You are a content strategist. Derive how...", "positioning"},
		{"critic improve", "You are an exacting editor. Improve the draft...", "critic"},
		{"critic review", "You are an exacting editor. List the specific improvements the draft needs.", "critic-review"},
		{"image", "You write prompts for an image generation model.", "image"},
		{"single agent", "You produce short-form posts end to end: research...", "agent"},
		{"unknown falls back to draft", "You are a helpful assistant.", "draft"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectPhase([]chatMessage{{Role: "system", Content: tt.system}})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChatCompletions_BuiltinResponses(t *testing.T) {
	s := newServer(nil)
	srv := httptest.NewServer(http.HandlerFunc(s.handleChatCompletions))
	defer srv.Close()

	plan := completions(t, srv, "You are a content planning assistant.", "write about databases")
	assert.Contains(t, plan, `"plan"`)

	draft := completions(t, srv, "You are a professional writer.", "write it")
	assert.Contains(t, draft, "Boring technology")
}

func TestChatCompletions_FixtureSequence(t *testing.T) {
	s := newServer(map[string][]string{
		"planner": {`{"questions": [{"id": "q1", "text": "Who for?"}]}`, `{"plan": {"topic": "t"}}`},
	})
	srv := httptest.NewServer(http.HandlerFunc(s.handleChatCompletions))
	defer srv.Close()

	first := completions(t, srv, "You are a content planning assistant.", "write")
	assert.Contains(t, first, "questions")

	second := completions(t, srv, "You are a content planning assistant.", "answers")
	assert.Contains(t, second, "plan")

	// The sequence tail repeats once exhausted.
	third := completions(t, srv, "You are a content planning assistant.", "again")
	assert.Equal(t, second, third)
}

func TestLoadFixtures(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	write("planner.1.txt", "first")
	write("planner.2.txt", "second")
	write("planner.txt", "tail")
	write("draft.txt", "the draft")
	write("notes.md", "ignored")

	fixtures, err := loadFixtures(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second", "tail"}, fixtures["planner"])
	assert.Equal(t, []string{"the draft"}, fixtures["draft"])
	assert.NotContains(t, fixtures, "notes")
}

func TestRequestsEndpoint(t *testing.T) {
	s := newServer(nil)
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", s.handleChatCompletions)
	mux.HandleFunc("/requests", s.handleRequests)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	completions(t, srv, "You are a professional writer.", "write about caching")

	resp, err := http.Get(srv.URL + "/requests?phase=draft")
	require.NoError(t, err)
	defer resp.Body.Close()

	var captured []capturedRequest
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&captured))
	require.Len(t, captured, 1)
	assert.Equal(t, "draft", captured[0].Phase)
	assert.Equal(t, "write about caching", captured[0].Messages[1].Content)
}
