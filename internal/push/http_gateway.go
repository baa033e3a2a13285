package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPGateway posts multicast requests as JSON to a push relay. The relay
// answers with a BatchResponse body.
type HTTPGateway struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewHTTPGateway(endpoint, apiKey string, timeout time.Duration) *HTTPGateway {
	return &HTTPGateway{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

type multicastRequest struct {
	Message *Message `json:"message"`
	Tokens  []string `json:"tokens"`
}

func (g *HTTPGateway) SendMulticast(ctx context.Context, msg *Message, tokens []string) (*BatchResponse, error) {
	body, err := json.Marshal(multicastRequest{Message: msg, Tokens: tokens})
	if err != nil {
		return nil, fmt.Errorf("encode multicast: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send multicast: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("push relay returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var out BatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode multicast response: %w", err)
	}
	return &out, nil
}
