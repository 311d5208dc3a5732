package environments

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/punchout/dashboard/internal/gateway"
)

var (
	ErrEnvironmentDisabled = errors.New("environment disabled")
	ErrEnvironmentNotFound = errors.New("environment not found")
)

type Manager struct {
	environments map[string]*Environment
	mu           sync.RWMutex

	defaultGatewayURL string
}

// NewManager seeds the standard environments, all enabled and routed to defaultGatewayURL
func NewManager(defaultGatewayURL string) *Manager {
	m := &Manager{
		environments:      make(map[string]*Environment),
		defaultGatewayURL: defaultGatewayURL,
	}

	now := time.Now()
	for _, name := range DefaultNames {
		m.environments[name] = &Environment{
			Name:        name,
			Description: fmt.Sprintf("%s environment", strings.ToUpper(name)),
			Enabled:     true,
			UpdatedAt:   now,
		}
	}
	return m
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// SetupEndpoint returns the PunchOut setup URL for an environment. Unknown
// environments use the default gateway.
func (m *Manager) SetupEndpoint(name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	base := m.defaultGatewayURL
	if env, ok := m.environments[normalize(name)]; ok {
		if !env.Enabled {
			return "", fmt.Errorf("%w: %s", ErrEnvironmentDisabled, env.Name)
		}
		if env.GatewayURL != "" {
			base = env.GatewayURL
		}
	}

	if base == "" {
		return "", fmt.Errorf("no gateway configured for environment %s", name)
	}
	return gateway.SetupEndpoint(base), nil
}

func (m *Manager) Get(name string) (*Environment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	env, ok := m.environments[normalize(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEnvironmentNotFound, name)
	}
	copied := *env
	return &copied, nil
}

func (m *Manager) List() []Environment {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Environment, 0, len(m.environments))
	for _, env := range m.environments {
		result = append(result, *env)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// Upsert creates the environment if needed and applies the non-nil fields
func (m *Manager) Upsert(name string, req UpdateEnvironmentRequest) (*Environment, error) {
	name = normalize(name)
	if name == "" {
		return nil, errors.New("environment name is required")
	}
	if req.GatewayURL != nil && *req.GatewayURL != "" {
		if err := validateURL(*req.GatewayURL); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	env, ok := m.environments[name]
	if !ok {
		env = &Environment{Name: name, Enabled: true}
		m.environments[name] = env
	}
	if req.Description != nil {
		env.Description = *req.Description
	}
	if req.Enabled != nil {
		env.Enabled = *req.Enabled
	}
	if req.GatewayURL != nil {
		env.GatewayURL = strings.TrimRight(*req.GatewayURL, "/")
	}
	env.UpdatedAt = time.Now()

	log.Printf("Environment %s updated: enabled=%t gateway=%q", env.Name, env.Enabled, env.GatewayURL)
	copied := *env
	return &copied, nil
}

func (m *Manager) SetEnabled(name string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	env, ok := m.environments[normalize(name)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEnvironmentNotFound, name)
	}
	env.Enabled = enabled
	env.UpdatedAt = time.Now()
	return nil
}

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid gateway URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid scheme in gateway URL %q", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("missing host in gateway URL %q", raw)
	}
	return nil
}
