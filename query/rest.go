package query

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "query").Logger()
}

// SetLogger allows setting a custom logger
func SetLogger(l zerolog.Logger) {
	log = l
}

// maxBodySize caps REST and RPC response bodies.
const maxBodySize = 16 << 20

// StatusError is a non-2xx HTTP reply.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d: %s", e.URL, e.StatusCode, e.Body)
}

// RestClient issues REST calls against Cosmos LCD endpoints.
type RestClient struct {
	Client *http.Client
}

func NewRestClient(timeout time.Duration) *RestClient {
	return &RestClient{
		Client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return fmt.Errorf("redirect not allowed (count=%d) to %s", len(via), req.URL.String())
			},
		},
	}
}

// Do sends one request to baseURL+path and returns the body of a 2xx reply.
func (c *RestClient) Do(ctx context.Context, baseURL, method, path string, body []byte) ([]byte, error) {
	fullURL := strings.TrimSuffix(baseURL, "/") + path

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", fullURL, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", fullURL, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close response body")
		}
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body %s: %w", fullURL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(respBody)
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return nil, &StatusError{URL: fullURL, StatusCode: resp.StatusCode, Body: snippet}
	}
	return respBody, nil
}
