// Package capability provides backing-worker implementations the daemon
// registry delegates invocations to. The core treats a capability as
// opaque: it gets a daemon, a task and parameters, and returns a result
// with a success flag and measured execution time.
package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/arcanelabs/arcaneos/pkg/arcana"
)

// defaultHTTPTimeout bounds a remote invocation when the caller's context
// carries no deadline of its own.
const defaultHTTPTimeout = 30 * time.Second

// Simulated is an in-process capability that fabricates plausible results
// per daemon. It stands in for the real model-routing interface during
// development and tests.
type Simulated struct {
	// Delay, when set, is slept before answering to mimic model latency.
	Delay time.Duration
}

// Invoke returns a deterministic canned result for the daemon.
func (s *Simulated) Invoke(ctx context.Context, daemon arcana.DaemonID, task string, params map[string]any) (*arcana.InvocationResult, error) {
	started := time.Now()
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	var output string
	switch daemon {
	case arcana.DaemonClaude:
		output = fmt.Sprintf("Claude reasons through %q and delivers a structured analysis.", task)
	case arcana.DaemonGemini:
		output = fmt.Sprintf("Gemini dreams up a vivid response to %q.", task)
	case arcana.DaemonLiquidMetal:
		output = fmt.Sprintf("LiquidMetal reshapes itself around %q and adapts.", task)
	default:
		return nil, fmt.Errorf("no capability bound for daemon %q", daemon)
	}

	return &arcana.InvocationResult{
		Success:       true,
		Output:        output,
		ExecutionTime: time.Since(started).Seconds(),
		Metadata: map[string]any{
			"simulated":     true,
			"invocation_id": uuid.New().String(),
			"parameters":    params,
		},
		Timestamp: time.Now().UTC(),
	}, nil
}

// HTTP invokes daemons through a remote invocation endpoint.
//
// Request body: {"daemon": ..., "task": ..., "parameters": {...}}.
// Expected response: {"success": bool, "output": any,
// "execution_time": float, "metadata": {...}}.
type HTTP struct {
	Endpoint string
	Client   *http.Client
}

// NewHTTP builds an HTTP capability for the given endpoint with a bounded
// default client.
func NewHTTP(endpoint string) *HTTP {
	return &HTTP{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: defaultHTTPTimeout},
	}
}

type httpInvokeRequest struct {
	Daemon     arcana.DaemonID `json:"daemon"`
	Task       string          `json:"task"`
	Parameters map[string]any  `json:"parameters,omitempty"`
}

type httpInvokeResponse struct {
	Success       bool           `json:"success"`
	Output        any            `json:"output"`
	ExecutionTime float64        `json:"execution_time"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Invoke posts the task to the invocation endpoint and decodes the result.
// Transport and decode failures are returned as errors; the registry
// converts them into failed results.
func (h *HTTP) Invoke(ctx context.Context, daemon arcana.DaemonID, task string, params map[string]any) (*arcana.InvocationResult, error) {
	body, err := json.Marshal(httpInvokeRequest{Daemon: daemon, Task: task, Parameters: params})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal invocation request: %w", err)
	}

	started := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build invocation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invocation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("invocation endpoint returned %d: %s", resp.StatusCode, payload)
	}

	var decoded httpInvokeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode invocation response: %w", err)
	}

	executionTime := decoded.ExecutionTime
	if executionTime == 0 {
		executionTime = time.Since(started).Seconds()
	}

	return &arcana.InvocationResult{
		Success:       decoded.Success,
		Output:        decoded.Output,
		ExecutionTime: executionTime,
		Metadata:      decoded.Metadata,
		Timestamp:     time.Now().UTC(),
	}, nil
}
