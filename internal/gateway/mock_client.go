package gateway

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/punchout/dashboard/internal/app"
)

// Recorder receives the network requests the mock gateway would have logged
type Recorder interface {
	AddNetworkRequest(rec app.NetworkRequestRecord)
}

// MockClient answers setup requests the way the gateway does, without any network I/O
type MockClient struct {
	recorder   Recorder
	catalogURL string
	latency    time.Duration

	mu       sync.Mutex
	payloads []string
}

func NewMockClient(recorder Recorder) *MockClient {
	return &MockClient{
		recorder:   recorder,
		catalogURL: "https://catalog.example.com/punchout",
		latency:    150 * time.Millisecond,
	}
}

// Payloads returns every payload submitted so far
func (c *MockClient) Payloads() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.payloads))
	copy(out, c.payloads)
	return out
}

func (c *MockClient) SubmitSetup(ctx context.Context, endpointURL, payload string) (*app.SetupResponse, error) {
	c.mu.Lock()
	c.payloads = append(c.payloads, payload)
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("setup request failed: %w", ctx.Err())
	case <-time.After(c.latency):
	}

	cookie, ok := ExtractBuyerCookie(payload)
	if !ok {
		resp := &app.SetupResponse{
			StatusCode: http.StatusBadRequest,
			Body:       errorResponse("BuyerCookie is required"),
		}
		return resp, nil
	}

	resp := &app.SetupResponse{
		StatusCode: http.StatusOK,
		Body:       setupResponse(cookie, fmt.Sprintf("%s?session=%s", c.catalogURL, url.QueryEscape(cookie))),
	}

	if c.recorder != nil {
		now := time.Now()
		c.recorder.AddNetworkRequest(app.NetworkRequestRecord{
			ID:           uuid.NewString(),
			SessionKey:   cookie,
			Timestamp:    app.Timestamp{Time: now},
			Direction:    app.DirectionInbound,
			Source:       "B2B Customer",
			Destination:  "PunchOut Gateway",
			Method:       http.MethodPost,
			URL:          endpointURL,
			RequestBody:  payload,
			StatusCode:   resp.StatusCode,
			ResponseBody: resp.Body,
			Duration:     c.latency.Milliseconds(),
			RequestType:  "cXML",
			Success:      true,
		})
		c.recorder.AddNetworkRequest(app.NetworkRequestRecord{
			ID:          uuid.NewString(),
			SessionKey:  cookie,
			Timestamp:   app.Timestamp{Time: now},
			Direction:   app.DirectionOutbound,
			Source:      "PunchOut Gateway",
			Destination: "Catalog Service",
			Method:      http.MethodPost,
			URL:         c.catalogURL,
			StatusCode:  http.StatusOK,
			Duration:    c.latency.Milliseconds() / 2,
			RequestType: "REST",
			Success:     true,
		})
	}

	return resp, nil
}

func setupResponse(cookie, startURL string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<cXML>
  <Response>
    <Status code="200" text="success"/>
    <PunchOutSetupResponse>
      <BuyerCookie>%s</BuyerCookie>
      <StartPage>
        <URL>%s</URL>
      </StartPage>
    </PunchOutSetupResponse>
  </Response>
</cXML>`, escapeText(cookie), escapeText(startURL))
}

func errorResponse(message string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<cXML>
  <Response>
    <Status code="400" text="error">%s</Status>
  </Response>
</cXML>`, escapeText(message))
}

func escapeText(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}
