package app

import (
	"context"
	"errors"
)

// ErrNotFound is returned by collaborators when the requested record does not exist
var ErrNotFound = errors.New("not found")

// TemplateStore serves the cXML templates managed by the backend
type TemplateStore interface {
	CustomerTemplate(ctx context.Context, environment, customerID string) (*CxmlTemplate, error)
	DefaultTemplate(ctx context.Context, environment string) (*CxmlTemplate, error)
}

// NetworkRequestSource returns the records logged against a correlation key
type NetworkRequestSource interface {
	NetworkRequests(ctx context.Context, sessionKey string) ([]NetworkRequestRecord, error)
}

// SetupSubmitter delivers a rendered PunchOutSetupRequest. A non-2xx answer is not an error;
// only transport failures are.
type SetupSubmitter interface {
	SubmitSetup(ctx context.Context, endpointURL, payload string) (*SetupResponse, error)
}

// CustomerDirectory lists the buying organizations available for testing
type CustomerDirectory interface {
	List() []CustomerProfile
	Get(id string) (CustomerProfile, error)
}
