package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"caesar-in-a-year/internal/domain/grading"
	"caesar-in-a-year/internal/domain/learning"
)

const systemPrompt = `You are a patient Latin tutor grading a learner's English translation.
Compare the learner's translation with the reference translation. Accept any
rendering that preserves the meaning, grammar and voice of the Latin, even if
the wording differs from the reference.

Reply with a single JSON object and nothing else:
{"status": "CORRECT" | "PARTIAL" | "INCORRECT",
 "feedback": "one or two encouraging sentences",
 "correction": "an improved translation, omitted when CORRECT",
 "analysis": {"notes": [{"kind": "grammar" | "vocabulary" | "meaning", "text": "..."}]}}`

// Gemini grades translations with the Google Generative Language API
type Gemini struct {
	endpoint string
	model    string
	apiKey   string
	client   *http.Client
}

// NewGemini creates a client. The HTTP client carries no timeout of its own;
// callers bound each call through the context.
func NewGemini(endpoint, model, apiKey string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}
	return &Gemini{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		apiKey:   apiKey,
		client:   &http.Client{},
	}, nil
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMimeType string  `json:"responseMimeType"`
}

type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// verdict mirrors the JSON the model is asked to produce
type verdict struct {
	Status     string            `json:"status"`
	Feedback   string            `json:"feedback"`
	Correction string            `json:"correction"`
	Analysis   *grading.Analysis `json:"analysis"`
}

// Grade implements grading.Grader
func (g *Gemini) Grade(ctx context.Context, req grading.Request) (grading.Result, error) {
	body, err := json.Marshal(generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: systemPrompt}}},
		Contents:          []content{{Role: "user", Parts: []part{{Text: buildPrompt(req)}}}},
		GenerationConfig:  generationConfig{Temperature: 0.2, ResponseMimeType: "application/json"},
	})
	if err != nil {
		return grading.Result{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	// the key travels in a header so it never appears in URLs quoted by errors
	u := fmt.Sprintf("%s/models/%s:generateContent", g.endpoint, url.PathEscape(g.model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return grading.Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return grading.Result{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return grading.Result{}, fmt.Errorf("failed to read response: %w", err)
	}

	var response generateResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return grading.Result{}, fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	if response.Error != nil {
		return grading.Result{}, fmt.Errorf("API error %d: %s", response.Error.Code, response.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return grading.Result{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		return grading.Result{}, fmt.Errorf("%w: no candidates returned", grading.ErrMalformedResult)
	}

	return parseVerdict(response.Candidates[0].Content.Parts[0].Text)
}

func buildPrompt(req grading.Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Latin: %s\n", req.LatinText)
	fmt.Fprintf(&b, "Reference translation: %s\n", req.ReferenceAnswer)
	if req.Context != "" {
		fmt.Fprintf(&b, "Context: %s\n", req.Context)
	}
	fmt.Fprintf(&b, "Learner translation: %s\n", req.UserAnswer)
	return b.String()
}

// parseVerdict extracts the grading JSON from the model text, tolerating a
// surrounding markdown fence
func parseVerdict(text string) (grading.Result, error) {
	text = strings.TrimSpace(text)
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		text = text[start : end+1]
	}

	var v verdict
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return grading.Result{}, fmt.Errorf("%w: %v", grading.ErrMalformedResult, err)
	}

	status, err := learning.ParseOutcome(v.Status)
	if err != nil {
		return grading.Result{}, fmt.Errorf("%w: %v", grading.ErrMalformedResult, err)
	}

	result := grading.Result{
		Status:     status,
		Feedback:   strings.TrimSpace(v.Feedback),
		Correction: strings.TrimSpace(v.Correction),
		Analysis:   v.Analysis,
	}
	if err := result.Validate(); err != nil {
		return grading.Result{}, err
	}
	return result, nil
}
