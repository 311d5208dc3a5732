package environments

import (
	"time"
)

// Environment is a PunchOut gateway deployment tests can target
type Environment struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description"`
	Enabled     bool   `json:"enabled" yaml:"enabled"`

	// Overrides the default gateway when set
	GatewayURL string `json:"gatewayUrl,omitempty" yaml:"gatewayUrl"`

	UpdatedAt time.Time `json:"updatedAt"`
}

type UpdateEnvironmentRequest struct {
	Description *string `json:"description,omitempty"`
	Enabled     *bool   `json:"enabled,omitempty"`
	GatewayURL  *string `json:"gatewayUrl,omitempty"`
}

// Seeded environments, matching the backend's template set
var DefaultNames = []string{"dev", "stage", "prod", "s4-dev"}
