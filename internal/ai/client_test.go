package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func modelServer(t *testing.T, text string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "generateContent") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") == "" {
			t.Error("missing api key")
		}
		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": text}}}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	client, err := NewClient(Config{APIKey: "test-key", BaseURL: serverURL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestAssessStripsFencesAndClamps(t *testing.T) {
	srv := modelServer(t, "```json\n{\"severityScore\": 140, \"suggestedActions\": [\"close the road\", \"dispatch a crew\"]}\n```")
	defer srv.Close()

	score, suggestions, err := newTestClient(t, srv.URL).Assess(context.Background(), "sinkhole on main street")
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if score != 100 {
		t.Fatalf("expected score clamped to 100, got %d", score)
	}
	if len(suggestions) != 2 || suggestions[0] != "close the road" {
		t.Fatalf("unexpected suggestions: %v", suggestions)
	}
}

func TestAssessPadsSuggestions(t *testing.T) {
	srv := modelServer(t, `{"severityScore": 30, "suggestedActions": ["report to the council"]}`)
	defer srv.Close()

	score, suggestions, err := newTestClient(t, srv.URL).Assess(context.Background(), "flickering lamp")
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if score != 30 {
		t.Fatalf("unexpected score: %d", score)
	}
	if len(suggestions) != 2 || suggestions[1] != fallbackSuggestion {
		t.Fatalf("expected padded suggestions, got %v", suggestions)
	}
}

func TestAssessRejectsNonJSON(t *testing.T) {
	srv := modelServer(t, "I cannot help with that.")
	defer srv.Close()

	if _, _, err := newTestClient(t, srv.URL).Assess(context.Background(), "anything"); err == nil {
		t.Fatal("expected error for non-JSON verdict")
	}
}

func TestAssessUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	if _, _, err := newTestClient(t, srv.URL).Assess(context.Background(), "anything"); err == nil {
		t.Fatal("expected error for upstream failure")
	}
}

func TestParseAssessmentNegativeClamp(t *testing.T) {
	score, _, err := parseAssessment(`{"severityScore": -5, "suggestedActions": []}`)
	if err != nil {
		t.Fatalf("parseAssessment: %v", err)
	}
	if score != 0 {
		t.Fatalf("expected score clamped to 0, got %d", score)
	}
}
