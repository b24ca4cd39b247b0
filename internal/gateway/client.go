// Package gateway wraps the answering service's HTTP API with tiered
// timeouts and error normalization. The chat endpoint gets a long timeout
// because the service may fall back between backends before answering;
// auxiliary calls use a short one.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Default timeout tiers.
const (
	DefaultSendTimeout  = 90 * time.Second
	DefaultQuickTimeout = 5 * time.Second
)

// ChatRequest is the POST /chat body.
type ChatRequest struct {
	Message           string   `json:"message"`
	ConversationID    string   `json:"conversation_id,omitempty"`
	MaxResults        int      `json:"max_results,omitempty"`
	SearchCollections []string `json:"search_collections,omitempty"`
}

// TokenOptimization reports server-side prompt compression.
type TokenOptimization struct {
	TokensSaved      int     `json:"tokens_saved,omitempty"`
	CompressionRatio float64 `json:"compression_ratio,omitempty"`
}

// ChatResponse is the POST /chat result.
type ChatResponse struct {
	Response            string             `json:"response"`
	ConversationID      string             `json:"conversation_id"`
	SearchResults       []json.RawMessage  `json:"search_results,omitempty"`
	CollectionsSearched []string           `json:"collections_searched,omitempty"`
	ModelUsed           string             `json:"model_used,omitempty"`
	TokenOptimization   *TokenOptimization `json:"token_optimization,omitempty"`
	FromCache           bool               `json:"from_cache,omitempty"`
}

// HealthStatus is the GET /health result.
type HealthStatus struct {
	Status      string `json:"status"`
	Database    string `json:"database"`
	Collections int    `json:"collections"`
	Message     string `json:"message,omitempty"`
}

// Healthy reports whether the service considers itself healthy.
func (h *HealthStatus) Healthy() bool {
	return h.Status == "healthy"
}

// CollectionStats is the GET /stats result.
type CollectionStats struct {
	Collections map[string]int `json:"collections"`
	TotalChunks int            `json:"total_chunks"`
}

// errorBody is the structured error shape the service returns on non-2xx.
type errorBody struct {
	Detail string `json:"detail"`
	Error  string `json:"error"`
}

// Client issues requests against the answering service.
type Client struct {
	baseURL     string
	sendClient  *http.Client
	quickClient *http.Client
}

// NewClient creates a gateway client for the given base URL. Non-positive
// timeouts fall back to the defaults.
func NewClient(baseURL string, sendTimeout, quickTimeout time.Duration) *Client {
	if sendTimeout <= 0 {
		sendTimeout = DefaultSendTimeout
	}
	if quickTimeout <= 0 {
		quickTimeout = DefaultQuickTimeout
	}
	return &Client{
		baseURL:     baseURL,
		sendClient:  &http.Client{Timeout: sendTimeout},
		quickClient: &http.Client{Timeout: quickTimeout},
	}
}

// Send posts a chat message and returns the service's answer. Failures are
// normalized to NetworkError, TimeoutError or ServiceError.
func (c *Client) Send(ctx context.Context, content string, conversationID uuid.UUID, maxResults int) (*ChatResponse, error) {
	chatReq := ChatRequest{
		Message:        content,
		ConversationID: conversationID.String(),
		MaxResults:     maxResults,
	}

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	start := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.sendClient.Do(httpReq)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		svcErr := &ServiceError{StatusCode: resp.StatusCode}
		var eb errorBody
		if err := json.NewDecoder(resp.Body).Decode(&eb); err == nil {
			if eb.Detail != "" {
				svcErr.Detail = eb.Detail
			} else {
				svcErr.Detail = eb.Error
			}
		}
		return nil, svcErr
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	log.Debug().
		Str("conversation_id", conversationID.String()).
		Str("model", chatResp.ModelUsed).
		Bool("from_cache", chatResp.FromCache).
		Int64("latency_ms", time.Since(start).Milliseconds()).
		Msg("chat request completed")

	return &chatResp, nil
}

// CheckHealth probes GET /health on the short tier. It never returns an
// error: any failure maps to an unhealthy status with the failure message.
func (c *Client) CheckHealth(ctx context.Context) *HealthStatus {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return unhealthy(err)
	}

	resp, err := c.quickClient.Do(httpReq)
	if err != nil {
		return unhealthy(classify(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return unhealthy(&ServiceError{StatusCode: resp.StatusCode})
	}

	var status HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return unhealthy(fmt.Errorf("failed to decode health response: %w", err))
	}
	return &status
}

func unhealthy(err error) *HealthStatus {
	return &HealthStatus{
		Status:   "unhealthy",
		Database: "disconnected",
		Message:  err.Error(),
	}
}

// ListCollections is a pass-through read of the available collections.
func (c *Client) ListCollections(ctx context.Context) ([]string, error) {
	var out struct {
		Collections []string `json:"collections"`
	}
	if err := c.getJSON(ctx, "/collections", &out); err != nil {
		return nil, err
	}
	return out.Collections, nil
}

// Stats is a pass-through read of collection statistics.
func (c *Client) Stats(ctx context.Context) (*CollectionStats, error) {
	var out CollectionStats
	if err := c.getJSON(ctx, "/stats", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.quickClient.Do(httpReq)
	if err != nil {
		return classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &ServiceError{StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
