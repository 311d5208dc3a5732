package backend

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/punchout/dashboard/internal/app"
)

// MockClient keeps templates and network requests in memory
type MockClient struct {
	mu        sync.RWMutex
	templates []app.CxmlTemplate
	requests  map[string][]app.NetworkRequestRecord
}

func NewMockClient() *MockClient {
	return &MockClient{
		requests: make(map[string][]app.NetworkRequestRecord),
	}
}

func (c *MockClient) CustomerTemplate(ctx context.Context, environment, customerID string) (*app.CxmlTemplate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, tpl := range c.templates {
		if strings.EqualFold(tpl.Environment, environment) && tpl.CustomerID == customerID {
			t := tpl
			return &t, nil
		}
	}
	return nil, fmt.Errorf("template for %s/%s: %w", environment, customerID, app.ErrNotFound)
}

func (c *MockClient) DefaultTemplate(ctx context.Context, environment string) (*app.CxmlTemplate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, tpl := range c.templates {
		if strings.EqualFold(tpl.Environment, environment) && tpl.IsDefault {
			t := tpl
			return &t, nil
		}
	}
	return nil, fmt.Errorf("default template for %s: %w", environment, app.ErrNotFound)
}

func (c *MockClient) ListTemplates(ctx context.Context, environment string) ([]app.CxmlTemplate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := []app.CxmlTemplate{}
	for _, tpl := range c.templates {
		if strings.EqualFold(tpl.Environment, environment) {
			result = append(result, tpl)
		}
	}
	return result, nil
}

// SaveTemplate inserts or replaces a template by id
func (c *MockClient) SaveTemplate(ctx context.Context, tpl app.CxmlTemplate) (*app.CxmlTemplate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := app.Timestamp{Time: time.Now()}
	tpl.UpdatedAt = now
	if tpl.ID != "" {
		for i, existing := range c.templates {
			if existing.ID == tpl.ID {
				tpl.CreatedAt = existing.CreatedAt
				c.templates[i] = tpl
				return &tpl, nil
			}
		}
	} else {
		tpl.ID = uuid.NewString()
	}
	tpl.CreatedAt = now
	c.templates = append(c.templates, tpl)
	return &tpl, nil
}

func (c *MockClient) NetworkRequests(ctx context.Context, sessionKey string) ([]app.NetworkRequestRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	records := make([]app.NetworkRequestRecord, len(c.requests[sessionKey]))
	copy(records, c.requests[sessionKey])
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp.Time)
	})
	return records, nil
}

// AddNetworkRequest stores a record under its session key
func (c *MockClient) AddNetworkRequest(rec app.NetworkRequestRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests[rec.SessionKey] = append(c.requests[rec.SessionKey], rec)
}
