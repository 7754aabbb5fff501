// Package assist wraps the AI completion API behind two narrow contracts:
// product recommendation and place-name suggestion. Both are best-effort;
// callers degrade to static fallbacks when the API misbehaves.
package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/zuritech/duka-api/internal/models"
	"github.com/zuritech/duka-api/internal/pricing"
)

// Recommender picks products matching a shopper's stated preferences.
type Recommender interface {
	Recommend(ctx context.Context, preferences string, candidates []models.Product) ([]string, error)
}

// PlaceSuggester completes a partial town name.
type PlaceSuggester interface {
	Suggest(ctx context.Context, partial string) ([]string, error)
}

const (
	maxRecommendations = 3
	maxSuggestions     = 5
)

// Client calls an OpenAI-compatible chat-completions endpoint.
type Client struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
}

// NewClient builds an assist client. endpoint may be empty; calls then fail
// and callers use their fallbacks.
func NewClient(endpoint, apiKey, model string) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	if c.endpoint == "" {
		return "", fmt.Errorf("assist endpoint not configured")
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion API returned %d", resp.StatusCode)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("completion API returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}

// Recommend asks the model for up to three product ids from the candidate
// list. Ids not present among the candidates are dropped.
func (c *Client) Recommend(ctx context.Context, preferences string, candidates []models.Product) ([]string, error) {
	var catalog strings.Builder
	valid := make(map[string]bool, len(candidates))
	for _, p := range candidates {
		valid[p.ID] = true
		fmt.Fprintf(&catalog, "%s: %s (KES %.0f, %s)\n", p.ID, p.Name, p.Price, p.Category)
	}

	content, err := c.complete(ctx,
		"You are a shopping assistant for a Kenyan tech gadget store. "+
			"Reply with up to 3 product ids from the catalog, comma separated, nothing else.",
		fmt.Sprintf("Customer preferences: %s\n\nCatalog:\n%s", preferences, catalog.String()))
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, part := range strings.Split(content, ",") {
		id := strings.TrimSpace(part)
		if valid[id] {
			ids = append(ids, id)
		}
		if len(ids) == maxRecommendations {
			break
		}
	}
	return ids, nil
}

// Suggest completes a partial place name. Inputs shorter than two runes
// return nothing. Without a configured endpoint it prefix-matches the
// delivery town tables instead of calling out.
func (c *Client) Suggest(ctx context.Context, partial string) ([]string, error) {
	partial = strings.TrimSpace(partial)
	if len([]rune(partial)) < 2 {
		return nil, nil
	}

	if c.endpoint == "" {
		return localTownMatches(partial), nil
	}

	content, err := c.complete(ctx,
		"You suggest Kenyan town names. Reply with up to 5 town names, comma separated, nothing else.",
		partial)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, part := range strings.Split(content, ",") {
		name := strings.TrimSpace(part)
		if name != "" {
			names = append(names, name)
		}
		if len(names) == maxSuggestions {
			break
		}
	}
	return names, nil
}

func localTownMatches(partial string) []string {
	prefix := strings.ToLower(partial)
	var names []string
	for _, town := range pricing.Towns() {
		if strings.HasPrefix(strings.ToLower(town), prefix) {
			names = append(names, town)
		}
		if len(names) == maxSuggestions {
			break
		}
	}
	return names
}

// RecommendOrFallback applies the caller-side degradation rule: on any
// recommender failure, take the first three candidates unfiltered.
func RecommendOrFallback(ctx context.Context, r Recommender, preferences string, candidates []models.Product) []string {
	ids, err := r.Recommend(ctx, preferences, candidates)
	if err == nil && len(ids) > 0 {
		return ids
	}
	if err != nil {
		log.Printf("[ASSIST] recommendation failed, using first candidates: %v", err)
	}
	n := maxRecommendations
	if len(candidates) < n {
		n = len(candidates)
	}
	fallback := make([]string, 0, n)
	for _, p := range candidates[:n] {
		fallback = append(fallback, p.ID)
	}
	return fallback
}
