package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIGraderRequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIGrader(OpenAIConfig{})
	require.Error(t, err)
}

func TestParseGradingResponse(t *testing.T) {
	tests := []struct {
		name         string
		content      string
		wantScore    float64
		wantFeedback string
	}{
		{
			name:         "well formed",
			content:      "Score: 85/100\nFeedback: Good work overall.",
			wantScore:    85,
			wantFeedback: "Good work overall.",
		},
		{
			name:         "fractional score",
			content:      "Score: 92.5/100\nFeedback: Correct and efficient.",
			wantScore:    92.5,
			wantFeedback: "Correct and efficient.",
		},
		{
			name:         "score without denominator",
			content:      "Score: 70\nFeedback: Partially correct.",
			wantScore:    70,
			wantFeedback: "Partially correct.",
		},
		{
			name:         "missing score line",
			content:      "The solution looks reasonable.",
			wantScore:    0,
			wantFeedback: "The solution looks reasonable.",
		},
		{
			name:         "missing feedback line keeps full output",
			content:      "Score: 40/100\nThe loop is quadratic.",
			wantScore:    40,
			wantFeedback: "Score: 40/100\nThe loop is quadratic.",
		},
		{
			name:         "empty score value",
			content:      "Score: /100\nFeedback: hard to judge",
			wantScore:    0,
			wantFeedback: "hard to judge",
		},
		{
			name:         "unparseable score",
			content:      "Score: excellent/100\nFeedback: nice",
			wantScore:    0,
			wantFeedback: unparseableFeedback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, feedback := parseGradingResponse(tt.content)
			require.Equal(t, tt.wantScore, score)
			require.Equal(t, tt.wantFeedback, feedback)
		})
	}
}

func newCompletionServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}

		response := map[string]interface{}{
			"id":     "cmpl-test",
			"object": "chat.completion",
			"model":  "gpt-3.5-turbo",
			"choices": []map[string]interface{}{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]interface{}{
						"role":    "assistant",
						"content": content,
					},
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(response))
	}))
}

func TestGradeParsesCompletion(t *testing.T) {
	server := newCompletionServer(t, http.StatusOK, "Score: 95/100\nFeedback: Correct and efficient.")
	defer server.Close()

	grader, err := NewOpenAIGrader(OpenAIConfig{
		APIKey:  "test-key",
		BaseURL: server.URL + "/v1",
		Timeout: 5 * time.Second,
		Logger:  zerolog.New(io.Discard),
	})
	require.NoError(t, err)

	result := grader.Grade(context.Background(), GradeInput{
		SubmittedCode:      "def add(a, b): return a + b",
		InstructorSolution: "def add(a, b): return a + b",
	})

	require.False(t, result.Failed())
	require.Equal(t, 95.0, *result.Score)
	require.Equal(t, "Correct and efficient.", result.Feedback)
}

func TestGradeSoftFailsOnAPIError(t *testing.T) {
	server := newCompletionServer(t, http.StatusInternalServerError, "")
	defer server.Close()

	grader, err := NewOpenAIGrader(OpenAIConfig{
		APIKey:  "test-key",
		BaseURL: server.URL + "/v1",
		Timeout: 5 * time.Second,
		Logger:  zerolog.New(io.Discard),
	})
	require.NoError(t, err)

	result := grader.Grade(context.Background(), GradeInput{SubmittedCode: "x = 1"})

	require.True(t, result.Failed())
	require.Nil(t, result.Score)
	require.Equal(t, failureFeedback, result.Feedback)
}
