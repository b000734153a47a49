package archon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"google.golang.org/genai"
)

// Planner is the external planning capability: given a fully composed
// prompt it returns raw text expected (but never trusted) to be a JSON
// directive. Implementations must honour context cancellation.
type Planner interface {
	Plan(ctx context.Context, prompt string) (string, error)
}

// defaultPlannerTimeout bounds a single planner attempt.
const defaultPlannerTimeout = 5 * time.Second

// HTTPPlanner calls a planning endpoint that wraps an orchestration model.
//
// Request body: {"tool": ..., "task": <prompt>, "parameters": {...}}.
// Expected response: {"output": "<raw model text>"}.
type HTTPPlanner struct {
	Endpoint string
	Tool     string
	Model    string
	Client   *http.Client
}

// NewHTTPPlanner builds a planner client for the given endpoint.
func NewHTTPPlanner(endpoint, tool, model string) *HTTPPlanner {
	return &HTTPPlanner{
		Endpoint: endpoint,
		Tool:     tool,
		Model:    model,
		Client:   &http.Client{Timeout: defaultPlannerTimeout},
	}
}

type httpPlanRequest struct {
	Tool       string         `json:"tool"`
	Task       string         `json:"task"`
	Parameters map[string]any `json:"parameters"`
}

type httpPlanResponse struct {
	Output string `json:"output"`
}

// Plan posts the prompt and returns the raw model output.
func (p *HTTPPlanner) Plan(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(httpPlanRequest{
		Tool: p.Tool,
		Task: prompt,
		Parameters: map[string]any{
			"mode":  "orchestration",
			"model": p.Model,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal plan request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build plan request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("plan request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("planner returned %d: %s", resp.StatusCode, payload)
	}

	var decoded httpPlanResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode plan response: %w", err)
	}
	return decoded.Output, nil
}

// GeminiPlanner asks a Gemini model for a routing directive.
type GeminiPlanner struct {
	client *genai.Client
	model  string
}

// NewGeminiPlanner builds a planner over the Gemini API.
// model defaults to gemini-2.0-flash when empty.
func NewGeminiPlanner(ctx context.Context, apiKey, model string) (*GeminiPlanner, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini planner requires an API key")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiPlanner{client: client, model: model}, nil
}

// Plan sends the prompt and returns the raw completion text.
func (g *GeminiPlanner) Plan(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini plan failed: %w", err)
	}
	return result.Text(), nil
}
