package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/vectorflow/embedbatch/internal/tlsutil"
)

// HTTPClient is the concrete Upstream collaborator the Coordinator invokes
// once per Flight. It posts the concatenated inputs for a whole Flight in
// a single call and expects one embedding back per input, in order.
type HTTPClient struct {
	client   *http.Client
	endpoint string
	apiKey   string
}

// NewHTTPClient builds an HTTPClient from cfg, using a TLS-hardened
// transport for the outbound connection.
func NewHTTPClient(cfg Config) *HTTPClient {
	return &HTTPClient{
		client:   tlsutil.SecureHTTPClient(cfg.Timeout),
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
	}
}

// Embed posts inputs to the upstream embedding service and returns one
// embedding per input in the same order. A non-2xx response or a network
// failure is returned as an error; the caller (batch.Coordinator) maps
// that to the "upstream" error code and fans it out to every item in the
// Flight.
func (c *HTTPClient) Embed(ctx context.Context, inputs []string) ([][]float64, error) {
	body, err := json.Marshal(embedRequest{Inputs: inputs})
	if err != nil {
		return nil, fmt.Errorf("marshal upstream request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("upstream returned status %d: %s", resp.StatusCode, truncate(respBody, 256))
	}

	var embeddings [][]float64
	if err := json.Unmarshal(respBody, &embeddings); err != nil {
		return nil, fmt.Errorf("decode upstream response: %w", err)
	}

	return embeddings, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
