package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{
			name:    "bare object",
			content: `{"topic": "remote work"}`,
			want:    `{"topic": "remote work"}`,
		},
		{
			name:    "markdown code block",
			content: "Here is the plan:\n```json\n{\"topic\": \"remote work\"}\n```\nDone.",
			want:    `{"topic": "remote work"}`,
		},
		{
			name:    "code block without language tag",
			content: "```\n{\"a\": 1}\n```",
			want:    `{"a": 1}`,
		},
		{
			name:    "surrounding prose",
			content: `Sure! {"a": 1} Hope that helps.`,
			want:    `{"a": 1}`,
		},
		{
			name:    "no JSON at all",
			content: "I could not produce a plan.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.content)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrNoJSON)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractJSON_CleansArtifacts(t *testing.T) {
	content := "```json\n" + `{
	"topic": "remote work", // the main topic
	"points": ["a", "b",],
}` + "\n```"

	extracted, err := ExtractJSON(content)
	require.NoError(t, err)

	var decoded struct {
		Topic  string   `json:"topic"`
		Points []string `json:"points"`
	}
	require.NoError(t, json.Unmarshal([]byte(extracted), &decoded))
	assert.Equal(t, "remote work", decoded.Topic)
	assert.Equal(t, []string{"a", "b"}, decoded.Points)
}

func TestExtractJSON_CommentInsideString(t *testing.T) {
	content := `{"url": "http://example.com/path"}`
	extracted, err := ExtractJSON(content)
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(extracted), &decoded))
	assert.Equal(t, "http://example.com/path", decoded["url"])
}

func TestExtractJSONArray(t *testing.T) {
	content := "```json\n[{\"id\": \"q1\"}, {\"id\": \"q2\"}]\n```"
	extracted, err := ExtractJSONArray(content)
	require.NoError(t, err)

	var decoded []map[string]string
	require.NoError(t, json.Unmarshal([]byte(extracted), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "q1", decoded[0]["id"])
}

func TestExtractJSONArray_NoArray(t *testing.T) {
	_, err := ExtractJSONArray("nothing structured here")
	require.ErrorIs(t, err, ErrNoJSON)
}
