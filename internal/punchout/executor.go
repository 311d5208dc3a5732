package punchout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/punchout/dashboard/internal/app"
	"github.com/punchout/dashboard/internal/gateway"
)

var (
	ErrAlreadyExecuting = errors.New("test already executing for customer")
	ErrInvalidInput     = errors.New("invalid test input")
)

const DefaultExecutionTimeout = 30 * time.Second

// EndpointResolver maps an environment to its PunchOut setup URL
type EndpointResolver interface {
	SetupEndpoint(environment string) (string, error)
}

// StaticEndpoint sends every environment to the same gateway base URL
type StaticEndpoint string

func (s StaticEndpoint) SetupEndpoint(string) (string, error) {
	return gateway.SetupEndpoint(string(s)), nil
}

// Recorder receives every completed result
type Recorder interface {
	InsertTestRun(ctx context.Context, result *app.TestExecutionResult) error
}

type Options struct {
	// CorrelationDelay is the wait before the first network-request fetch.
	// Zero fetches immediately; a negative value selects DefaultCorrelationDelay.
	CorrelationDelay    time.Duration
	CorrelationAttempts int
	ExecutionTimeout    time.Duration
}

type Executor struct {
	resolver   *Resolver
	renderer   *Renderer
	submitter  app.SetupSubmitter
	correlator *Correlator
	endpoints  EndpointResolver
	recorder   Recorder
	timeout    time.Duration

	mu       sync.Mutex
	inFlight map[string]context.CancelFunc
	last     map[string]*app.TestExecutionResult
}

func NewExecutor(templates app.TemplateStore, submitter app.SetupSubmitter, requests app.NetworkRequestSource, endpoints EndpointResolver, opts Options) *Executor {
	if opts.CorrelationDelay < 0 {
		opts.CorrelationDelay = DefaultCorrelationDelay
	}
	if opts.ExecutionTimeout <= 0 {
		opts.ExecutionTimeout = DefaultExecutionTimeout
	}

	return &Executor{
		resolver:   NewResolver(templates),
		renderer:   NewRenderer(),
		submitter:  submitter,
		correlator: NewCorrelator(requests, opts.CorrelationDelay, opts.CorrelationAttempts),
		endpoints:  endpoints,
		timeout:    opts.ExecutionTimeout,
		inFlight:   make(map[string]context.CancelFunc),
		last:       make(map[string]*app.TestExecutionResult),
	}
}

func (e *Executor) SetRecorder(r Recorder) {
	e.recorder = r
}

// Execute runs one PunchOut setup test. Transport and HTTP failures are
// reported inside the result; an error means nothing was sent.
func (e *Executor) Execute(ctx context.Context, customer app.CustomerProfile, environment string) (*app.TestExecutionResult, error) {
	environment = normalizeEnvironment(environment)
	if customer.ID == "" || environment == "" {
		return nil, fmt.Errorf("%w: customer and environment are required", ErrInvalidInput)
	}

	endpoint, err := e.endpoints.SetupEndpoint(environment)
	if err != nil {
		return nil, err
	}

	ctx, release, err := e.acquire(ctx, customer.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	result := &app.TestExecutionResult{
		ID:              uuid.NewString(),
		CustomerID:      customer.ID,
		CustomerName:    customer.Name,
		Environment:     environment,
		NetworkRequests: []app.NetworkRequestRecord{},
		Timestamp:       time.Now().UTC(),
	}

	template, source := e.resolver.Resolve(ctx, environment, customer.ID)
	payload := e.renderer.Render(template, customer, environment)
	result.TemplateSource = source
	result.SessionKey = payload.SessionKey
	result.RequestXML = payload.XML

	log.Printf("Submitting PunchOut setup for %s (%s) to %s using %s template", customer.ID, environment, endpoint, source)

	start := time.Now()
	resp, err := e.submitter.SubmitSetup(ctx, endpoint, payload.XML)
	result.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		result.Error = err.Error()
		result.ErrorKind = classify(err)
		log.Printf("PunchOut setup for %s failed (%s): %v", customer.ID, result.ErrorKind, err)
		e.complete(result)
		return result, nil
	}

	result.Status = resp.StatusCode
	result.ResponseXML = resp.Body
	result.Success = resp.OK()

	if key, ok := gateway.ExtractBuyerCookie(resp.Body); ok {
		result.CorrelationKey = &key
	} else {
		log.Printf("No BuyerCookie in setup response for %s (status %d)", customer.ID, resp.StatusCode)
	}

	result.NetworkRequests = e.correlator.Correlate(ctx, result.CorrelationKey)

	log.Printf("PunchOut setup for %s finished: status=%d success=%t networkRequests=%d",
		customer.ID, result.Status, result.Success, len(result.NetworkRequests))

	e.complete(result)
	return result, nil
}

// Preview is the resolved and rendered payload of a test that was not sent
type Preview struct {
	RenderedPayload
	TemplateSource app.TemplateSource `json:"templateSource" yaml:"templateSource"`
	Endpoint       string             `json:"endpoint" yaml:"endpoint"`
}

func (e *Executor) Preview(ctx context.Context, customer app.CustomerProfile, environment string) (*Preview, error) {
	environment = normalizeEnvironment(environment)
	if customer.ID == "" || environment == "" {
		return nil, fmt.Errorf("%w: customer and environment are required", ErrInvalidInput)
	}

	endpoint, err := e.endpoints.SetupEndpoint(environment)
	if err != nil {
		return nil, err
	}

	template, source := e.resolver.Resolve(ctx, environment, customer.ID)
	return &Preview{
		RenderedPayload: e.renderer.Render(template, customer, environment),
		TemplateSource:  source,
		Endpoint:        endpoint,
	}, nil
}

// Cancel aborts the in-flight execution for a customer, if any
func (e *Executor) Cancel(customerID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	cancel, ok := e.inFlight[customerID]
	if ok {
		cancel()
	}
	return ok
}

func (e *Executor) State(customerID string) app.ExecutionState {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.inFlight[customerID]; ok {
		return app.StateExecuting
	}
	if last, ok := e.last[customerID]; ok {
		return last.State()
	}
	return app.StateIdle
}

// LastResult returns the most recent completed result for a customer
func (e *Executor) LastResult(customerID string) (*app.TestExecutionResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	last, ok := e.last[customerID]
	return last, ok
}

func (e *Executor) acquire(parent context.Context, customerID string) (context.Context, func(), error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.inFlight[customerID]; ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrAlreadyExecuting, customerID)
	}

	ctx, cancel := context.WithTimeout(parent, e.timeout)
	e.inFlight[customerID] = cancel

	release := func() {
		cancel()
		e.mu.Lock()
		delete(e.inFlight, customerID)
		e.mu.Unlock()
	}
	return ctx, release, nil
}

func (e *Executor) complete(result *app.TestExecutionResult) {
	e.mu.Lock()
	e.last[result.CustomerID] = result
	e.mu.Unlock()

	if e.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.recorder.InsertTestRun(ctx, result); err != nil {
		log.Printf("Failed to record test run %s: %v", result.ID, err)
	}
}

// normalizeEnvironment matches the registry's naming so endpoint, template
// lookup and the stored result all use the same name.
func normalizeEnvironment(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func classify(err error) app.ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return app.ErrorKindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return app.ErrorKindCancelled
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return app.ErrorKindTimeout
	}
	return app.ErrorKindNetwork
}
