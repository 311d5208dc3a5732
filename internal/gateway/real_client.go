package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/punchout/dashboard/internal/app"
)

// DefaultTimeout bounds every setup POST
const DefaultTimeout = 10 * time.Second

type RealClient struct {
	httpClient *http.Client
}

// NewRealClient creates a client that posts cXML to a PunchOut gateway
func NewRealClient(timeout time.Duration) *RealClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RealClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetupEndpoint returns the PunchOut setup URL for a gateway base URL
func SetupEndpoint(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/punchout/setup"
}

// SubmitSetup posts the payload and reads the whole response body regardless of status.
// Only transport failures return an error.
func (c *RealClient) SubmitSetup(ctx context.Context, endpointURL, payload string) (*app.SetupResponse, error) {
	if _, err := url.ParseRequestURI(endpointURL); err != nil {
		return nil, fmt.Errorf("invalid setup endpoint %q: %w", endpointURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, strings.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml")
	req.Header.Set("Accept", "text/xml, application/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("setup request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read setup response: %w", err)
	}

	return &app.SetupResponse{
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}, nil
}
