package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Result is the classifier's response. The review core only consumes the
// Sentiment label; the rest is carried through for diagnostics.
type Result struct {
	Sentiment   string `json:"sentiment"`
	Confidence  string `json:"confidence"`
	Explanation string `json:"explanation"`
	RawResponse string `json:"raw_response"`
}

// Client calls the sentiment classification service. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the sentiment service. The timeout bounds
// each Analyze call; review creation fails atomically when it is exceeded.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Analyze classifies the given text and returns the sentiment label
func (c *Client) Analyze(ctx context.Context, text string) (*Result, error) {
	endpoint := fmt.Sprintf("%s/analyze-sentiment?%s", c.baseURL,
		url.Values{"text_input": {text}}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build sentiment request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sentiment request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("sentiment service returned status %d: %s", resp.StatusCode, body)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode sentiment response: %w", err)
	}

	if result.Sentiment == "" {
		return nil, fmt.Errorf("sentiment service returned empty label")
	}

	return &result, nil
}
