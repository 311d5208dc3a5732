package app

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// CustomerProfile identifies a simulated buying organization
type CustomerProfile struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Domain  string `json:"domain" yaml:"domain"`
	BuyerID string `json:"buyerId" yaml:"buyerId"`
}

// CxmlTemplate is a parametrized cXML document stored by the backend
type CxmlTemplate struct {
	ID           string    `json:"id,omitempty"`
	TemplateName string    `json:"templateName"`
	Environment  string    `json:"environment"`
	CustomerID   string    `json:"customerId,omitempty"`
	CustomerName string    `json:"customerName,omitempty"`
	Body         string    `json:"cxmlTemplate"`
	Description  string    `json:"description,omitempty"`
	IsDefault    bool      `json:"isDefault"`
	CreatedAt    Timestamp `json:"createdAt,omitempty"`
	UpdatedAt    Timestamp `json:"updatedAt,omitempty"`
	CreatedBy    string    `json:"createdBy,omitempty"`
}

// Direction of a logged network request, relative to the gateway
type Direction string

const (
	DirectionInbound  Direction = "INBOUND"
	DirectionOutbound Direction = "OUTBOUND"
)

// NetworkRequestRecord is one request/response pair the backend logged for a session
type NetworkRequestRecord struct {
	ID              string            `json:"id"`
	SessionKey      string            `json:"sessionKey,omitempty"`
	OrderID         string            `json:"orderId,omitempty"`
	RequestID       string            `json:"requestId,omitempty"`
	Timestamp       Timestamp         `json:"timestamp"`
	Direction       Direction         `json:"direction"`
	Source          string            `json:"source,omitempty"`
	Destination     string            `json:"destination,omitempty"`
	Method          string            `json:"method"`
	URL             string            `json:"url,omitempty"`
	Headers         map[string]string `json:"headers,omitempty"`
	RequestBody     string            `json:"requestBody,omitempty"`
	StatusCode      int               `json:"statusCode"`
	ResponseHeaders map[string]string `json:"responseHeaders,omitempty"`
	ResponseBody    string            `json:"responseBody,omitempty"`
	Duration        int64             `json:"duration"` // milliseconds
	RequestType     string            `json:"requestType,omitempty"`
	Success         bool              `json:"success"`
	ErrorMessage    string            `json:"errorMessage,omitempty"`
}

// SetupResponse is the raw gateway answer to a setup request
type SetupResponse struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// OK reports a 2xx status
func (r *SetupResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// ExecutionState tracks a customer's test through the orchestrator
type ExecutionState string

const (
	StateIdle      ExecutionState = "IDLE"
	StateExecuting ExecutionState = "EXECUTING"
	StateSucceeded ExecutionState = "SUCCEEDED"
	StateFailed    ExecutionState = "FAILED"
)

// ErrorKind classifies transport failures of the setup POST
type ErrorKind string

const (
	ErrorKindNetwork   ErrorKind = "network"
	ErrorKindTimeout   ErrorKind = "timeout"
	ErrorKindCancelled ErrorKind = "cancelled"
)

// TemplateSource records which resolver tier produced the template
type TemplateSource string

const (
	SourceCustomer           TemplateSource = "customer"
	SourceEnvironmentDefault TemplateSource = "environment-default"
	SourceBuiltin            TemplateSource = "builtin"
)

// TestExecutionResult is the outcome of one PunchOut setup test
type TestExecutionResult struct {
	ID              string                 `json:"id"`
	Success         bool                   `json:"success"`
	Status          int                    `json:"status"`
	CorrelationKey  *string                `json:"correlationKey"`
	SessionKey      string                 `json:"sessionKey"`
	CustomerID      string                 `json:"customerId"`
	CustomerName    string                 `json:"customerName"`
	Environment     string                 `json:"environment"`
	TemplateSource  TemplateSource         `json:"templateSource"`
	RequestXML      string                 `json:"requestXml"`
	ResponseXML     string                 `json:"responseXml"`
	NetworkRequests []NetworkRequestRecord `json:"networkRequests"`
	Timestamp       time.Time              `json:"timestamp"`
	DurationMs      int64                  `json:"durationMs"`
	Error           string                 `json:"error,omitempty"`
	ErrorKind       ErrorKind              `json:"errorKind,omitempty"`
}

// State returns the terminal state the result represents
func (r *TestExecutionResult) State() ExecutionState {
	if r.Success {
		return StateSucceeded
	}
	return StateFailed
}

// HasCorrelationKey reports whether a BuyerCookie was extracted
func (r *TestExecutionResult) HasCorrelationKey() bool {
	return r.CorrelationKey != nil && *r.CorrelationKey != ""
}

// Timestamp accepts the zone-less ISO-8601 values the backend emits as well as RFC 3339
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}
