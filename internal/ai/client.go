// Package ai scores issue descriptions for severity through a hosted
// generateContent endpoint.
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
	"time"
)

const systemInstruction = `You are an assistant that analyzes a reported civic problem.

For the input issue:
1. Assign a "severityScore" from 0 to 100 (0 = not urgent, 100 = extremely urgent).
2. Provide "suggestedActions": one or two sentences each, explaining exactly what should be done to address the problem.

Always return strictly this JSON shape:

{"severityScore": number, "suggestedActions": [string]}

Do not include any other commentary or metadata.`

const fallbackSuggestion = "No additional suggestion provided."

const defaultBaseURL = "https://generativelanguage.googleapis.com"

type Config struct {
	APIKey string
	Model  string
	// BaseURL overrides the upstream host, for tests.
	BaseURL string
	Timeout time.Duration
}

func (c Config) Enabled() bool { return c.APIKey != "" }

// Client calls the model over plain HTTP. Construct with NewClient; a
// nil *Client is not usable.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("ai: api key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

type generateRequest struct {
	SystemInstruction content  `json:"systemInstruction"`
	Contents          []content `json:"contents"`
	GenerationConfig  struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Assess sends the description to the model and returns a severity score
// in [0,100] with at least two suggested actions.
func (c *Client) Assess(ctx context.Context, description string) (int, []string, error) {
	reqBody := generateRequest{
		SystemInstruction: content{Parts: []part{{Text: systemInstruction}}},
		Contents:          []content{{Parts: []part{{Text: description}}}},
	}
	reqBody.GenerationConfig.Temperature = 0.7
	reqBody.GenerationConfig.MaxOutputTokens = 400

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("ai: encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.baseURL, c.model, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("ai: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("ai: call model: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, fmt.Errorf("ai: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, nil, fmt.Errorf("ai: model returned status %d", resp.StatusCode)
	}

	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return 0, nil, fmt.Errorf("ai: decode response: %w", err)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return 0, nil, fmt.Errorf("ai: empty response")
	}

	return parseAssessment(decoded.Candidates[0].Content.Parts[0].Text)
}

// parseAssessment extracts the JSON verdict from the model text. Models
// wrap output in code fences often enough that stripping them first is
// part of the contract.
func parseAssessment(text string) (int, []string, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var verdict struct {
		SeverityScore    float64  `json:"severityScore"`
		SuggestedActions []string `json:"suggestedActions"`
	}
	if err := json.Unmarshal([]byte(cleaned), &verdict); err != nil {
		return 0, nil, fmt.Errorf("ai: parse verdict: %w", err)
	}

	score := int(verdict.SeverityScore)
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	suggestions := make([]string, 0, 2)
	for _, s := range verdict.SuggestedActions {
		if s = strings.TrimSpace(s); s != "" {
			suggestions = append(suggestions, s)
		}
	}
	for len(suggestions) < 2 {
		suggestions = append(suggestions, fallbackSuggestion)
	}
	return score, suggestions, nil
}
