package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caesar-in-a-year/internal/domain/grading"
	"caesar-in-a-year/internal/domain/learning"
)

func candidate(text string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"role": "model", "parts": []map[string]any{{"text": text}}}},
		},
	}
}

func newTestServer(t *testing.T, status int, body any) (*httptest.Server, *generateRequest) {
	t.Helper()
	captured := &generateRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.RawQuery)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(captured))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

var request = grading.Request{
	LatinText:       "Gallia est omnis divisa in partes tres.",
	UserAnswer:      "All Gaul is divided in three parts.",
	ReferenceAnswer: "Gaul as a whole is divided into three parts.",
	Context:         "De Bello Gallico 1.1",
}

func TestNewGeminiRequiresKey(t *testing.T) {
	_, err := NewGemini("http://localhost", "m", "")
	assert.Error(t, err)
}

func TestGeminiGrade(t *testing.T) {
	srv, captured := newTestServer(t, http.StatusOK, candidate(
		"```json\n{\"status\":\"partial\",\"feedback\":\"Close.\",\"correction\":\"Gaul as a whole...\","+
			"\"analysis\":{\"notes\":[{\"kind\":\"grammar\",\"text\":\"omnis modifies Gallia\"}]}}\n```"))

	g, err := NewGemini(srv.URL+"/", "gemini-test", "secret")
	require.NoError(t, err)

	res, err := g.Grade(context.Background(), request)
	require.NoError(t, err)

	assert.Equal(t, learning.OutcomePartial, res.Status)
	assert.Equal(t, "Close.", res.Feedback)
	assert.Equal(t, "Gaul as a whole...", res.Correction)
	require.NotNil(t, res.Analysis)
	require.Len(t, res.Analysis.Notes, 1)
	assert.Equal(t, "grammar", res.Analysis.Notes[0].Kind)
	assert.False(t, res.Fallback)

	require.Len(t, captured.Contents, 1)
	prompt := captured.Contents[0].Parts[0].Text
	assert.Contains(t, prompt, request.LatinText)
	assert.Contains(t, prompt, request.UserAnswer)
	assert.Contains(t, prompt, request.Context)
	assert.Equal(t, "application/json", captured.GenerationConfig.ResponseMimeType)
}

func TestGeminiGradeErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      any
		malformed bool
	}{
		{
			name:   "api error",
			status: http.StatusTooManyRequests,
			body:   map[string]any{"error": map[string]any{"code": 429, "message": "quota"}},
		},
		{name: "server error without body", status: http.StatusBadGateway, body: map[string]any{}},
		{name: "no candidates", status: http.StatusOK, body: map[string]any{"candidates": []any{}}, malformed: true},
		{name: "not json", status: http.StatusOK, body: candidate("looks fine to me"), malformed: true},
		{name: "unknown status", status: http.StatusOK, body: candidate(`{"status":"GREAT","feedback":"x"}`), malformed: true},
		{name: "empty feedback", status: http.StatusOK, body: candidate(`{"status":"CORRECT","feedback":" "}`), malformed: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.status, tt.body)
			g, err := NewGemini(srv.URL, "gemini-test", "secret")
			require.NoError(t, err)

			_, err = g.Grade(context.Background(), request)
			require.Error(t, err)
			if tt.malformed {
				assert.ErrorIs(t, err, grading.ErrMalformedResult)
			}
		})
	}
}

func TestGeminiGradeHonoursContext(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, candidate(`{"status":"CORRECT","feedback":"ok"}`))
	g, err := NewGemini(srv.URL, "gemini-test", "secret")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Grade(ctx, request)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGeminiErrorsNeverCarryKey(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	g, err := NewGemini(addr, "gemini-test", "SECRET-KEY-123")
	require.NoError(t, err)

	_, err = g.Grade(context.Background(), request)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET-KEY-123")
	assert.Contains(t, err.Error(), "failed to send request")
}
