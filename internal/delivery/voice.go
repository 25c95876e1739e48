package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/loadpoint/broker-outreach/internal/pkg/httpretry"
	"github.com/loadpoint/broker-outreach/internal/pkg/logger"
)

// VoiceClient places outreach calls through a REST calling API. Implements
// outreach.CallPlacer. With an empty API key the client runs in dry-run mode.
type VoiceClient struct {
	baseURL    string
	apiKey     string
	httpClient httpretry.HTTPDoer
}

// NewVoiceClient creates a voice API client.
func NewVoiceClient(baseURL, apiKey string, timeout time.Duration) *VoiceClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &VoiceClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: timeout,
		}, 3),
	}
}

// DryRun reports whether the client has no API key configured.
func (c *VoiceClient) DryRun() bool { return c.apiKey == "" }

type callRequest struct {
	To     string `json:"to"`
	From   string `json:"from"`
	Script string `json:"script"`
}

type callResponse struct {
	CallID string `json:"call_id"`
	Status string `json:"status"`
}

// PlaceCall requests an outbound call with the given script. In dry-run mode
// it logs the call and returns a synthetic call id.
func (c *VoiceClient) PlaceCall(ctx context.Context, toNumber, fromNumber, script string) (string, error) {
	if toNumber == "" {
		return "", fmt.Errorf("place call: empty destination number")
	}
	if c.apiKey == "" {
		id := "dry-run-" + uuid.New().String()
		logger.Info("dry-run call", "to_number", toNumber, "call_id", id)
		return id, nil
	}

	payload, err := json.Marshal(callRequest{To: toNumber, From: fromNumber, Script: script})
	if err != nil {
		return "", fmt.Errorf("marshaling call request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/calls", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth("api", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("voice API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var out callResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	logger.Info("call placed", "to_number", toNumber, "call_id", out.CallID)
	return out.CallID, nil
}
