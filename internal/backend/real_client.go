package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/punchout/dashboard/internal/app"
)

// DefaultTimeout matches the dashboard API client
const DefaultTimeout = 10 * time.Second

type RealClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewRealClient creates a client for the session/template backend API
func NewRealClient(baseURL, token string, timeout time.Duration) (*RealClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid scheme in backend URL %q", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &RealClient{
		baseURL: strings.TrimRight(parsed.String(), "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func (c *RealClient) CustomerTemplate(ctx context.Context, environment, customerID string) (*app.CxmlTemplate, error) {
	apiURL := fmt.Sprintf("%s/v1/cxml-templates/environment/%s/customer/%s",
		c.baseURL, url.PathEscape(environment), url.PathEscape(customerID))

	var tpl app.CxmlTemplate
	if err := c.getJSON(ctx, apiURL, &tpl); err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (c *RealClient) DefaultTemplate(ctx context.Context, environment string) (*app.CxmlTemplate, error) {
	apiURL := fmt.Sprintf("%s/v1/cxml-templates/environment/%s/default", c.baseURL, url.PathEscape(environment))

	var tpl app.CxmlTemplate
	if err := c.getJSON(ctx, apiURL, &tpl); err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (c *RealClient) ListTemplates(ctx context.Context, environment string) ([]app.CxmlTemplate, error) {
	apiURL := fmt.Sprintf("%s/v1/cxml-templates/environment/%s", c.baseURL, url.PathEscape(environment))

	templates := []app.CxmlTemplate{}
	if err := c.getJSON(ctx, apiURL, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

func (c *RealClient) SaveTemplate(ctx context.Context, tpl app.CxmlTemplate) (*app.CxmlTemplate, error) {
	body, err := json.Marshal(tpl)
	if err != nil {
		return nil, fmt.Errorf("failed to encode template: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/cxml-templates", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var saved app.CxmlTemplate
	if err := c.do(req, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

func (c *RealClient) NetworkRequests(ctx context.Context, sessionKey string) ([]app.NetworkRequestRecord, error) {
	apiURL := fmt.Sprintf("%s/api/v1/sessions/%s/network-requests", c.baseURL, url.PathEscape(sessionKey))

	records := []app.NetworkRequestRecord{}
	if err := c.getJSON(ctx, apiURL, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *RealClient) getJSON(ctx context.Context, apiURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

func (c *RealClient) do(req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", req.URL.Path, app.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("API returned %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
