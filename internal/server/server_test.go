package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/punchout/dashboard/internal/app"
	"github.com/punchout/dashboard/internal/bootstrap"
	"github.com/punchout/dashboard/internal/config"
	"github.com/punchout/dashboard/internal/punchout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *bootstrap.App {
	t.Helper()
	cfg := &config.Config{
		Mock:      true,
		Execution: config.ExecutionConfig{CorrelationDelay: "1ms"},
		Artifacts: config.ArtifactsConfig{Dir: t.TempDir()},
	}
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())

	a, err := bootstrap.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHandleDashboard(t *testing.T) {
	srv := NewServer(newTestApp(t))

	rr := do(t, srv.Router(), "GET", "/", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "PunchOut Test Dashboard")
	assert.Contains(t, rr.Body.String(), "No tests have been run yet.")
}

func TestHealth(t *testing.T) {
	rr := do(t, NewServer(newTestApp(t)).Router(), "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestExecuteFlow(t *testing.T) {
	router := NewServer(newTestApp(t)).Router()

	rr := do(t, router, "POST", "/api/v1/punchout-tests/execute", map[string]string{"customerId": "CUST002", "environment": "stage"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var result app.TestExecutionResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, "TechCorp Industries", result.CustomerName)
	require.NotNil(t, result.CorrelationKey)
	assert.Len(t, result.NetworkRequests, 2)

	rr = do(t, router, "GET", "/api/v1/punchout-tests/last/CUST002", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var last struct {
		State  app.ExecutionState       `json:"state"`
		Result *app.TestExecutionResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &last))
	assert.Equal(t, app.StateSucceeded, last.State)
	require.NotNil(t, last.Result)
	assert.Equal(t, result.ID, last.Result.ID)

	rr = do(t, router, "GET", "/api/v1/punchout-tests/last/CUST001", nil)
	assert.Contains(t, rr.Body.String(), `"state":"IDLE"`)
	assert.Contains(t, rr.Body.String(), `"result":null`)

	rr = do(t, router, "GET", "/api/v1/punchout-tests?customerId=CUST002", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var runs []app.TestExecutionResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &runs))
	require.Len(t, runs, 1)

	rr = do(t, router, "GET", "/api/v1/punchout-tests/"+result.ID, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, router, "GET", "/api/v1/punchout-tests/"+result.ID+"/bundle", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/zip", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), result.ID)

	rr = do(t, router, "GET", "/", nil)
	assert.Contains(t, rr.Body.String(), "TechCorp Industries")
}

func TestExecuteErrors(t *testing.T) {
	router := NewServer(newTestApp(t)).Router()

	tests := []struct {
		name string
		body interface{}
		code int
	}{
		{"unknown customer", map[string]string{"customerId": "CUST999", "environment": "dev"}, http.StatusNotFound},
		{"missing environment", map[string]string{"customerId": "CUST001"}, http.StatusBadRequest},
		{"not json", "nope", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, router, "POST", "/api/v1/punchout-tests/execute", tt.body)
			assert.Equal(t, tt.code, rr.Code)
		})
	}

	rr := do(t, router, "PUT", "/api/v1/environments/prod", map[string]bool{"enabled": false})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, router, "POST", "/api/v1/punchout-tests/execute", map[string]string{"customerId": "CUST001", "environment": "prod"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, router, "GET", "/api/v1/punchout-tests/00000000-0000-0000-0000-000000000000", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, router, "GET", "/api/v1/punchout-tests?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// gatedSubmitter blocks until the test closes release
type gatedSubmitter struct {
	started chan struct{}
	release chan struct{}
}

func (g *gatedSubmitter) SubmitSetup(ctx context.Context, endpointURL, payload string) (*app.SetupResponse, error) {
	g.started <- struct{}{}
	select {
	case <-g.release:
		return &app.SetupResponse{StatusCode: http.StatusOK, Body: "<cXML/>"}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestExecuteConflictAndCancel(t *testing.T) {
	a := newTestApp(t)
	gate := &gatedSubmitter{started: make(chan struct{}, 1), release: make(chan struct{})}
	a.Executor = punchout.NewExecutor(a.Backend, gate, a.Backend, a.Environments, punchout.Options{})
	router := NewServer(a).Router()

	done := make(chan *httptest.ResponseRecorder)
	go func() {
		done <- do(t, router, "POST", "/api/v1/punchout-tests/execute", map[string]string{"customerId": "CUST001", "environment": "dev"})
	}()
	<-gate.started

	rr := do(t, router, "POST", "/api/v1/punchout-tests/execute", map[string]string{"customerId": "CUST001", "environment": "dev"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, router, "GET", "/api/v1/punchout-tests/last/CUST001", nil)
	assert.Contains(t, rr.Body.String(), `"state":"EXECUTING"`)

	rr = do(t, router, "DELETE", "/api/v1/punchout-tests/executions/CUST001", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	first := <-done
	require.Equal(t, http.StatusOK, first.Code)
	assert.Contains(t, first.Body.String(), `"errorKind":"cancelled"`)

	rr = do(t, router, "DELETE", "/api/v1/punchout-tests/executions/CUST001", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPreview(t *testing.T) {
	router := NewServer(newTestApp(t)).Router()

	rr := do(t, router, "POST", "/api/v1/punchout-tests/preview", map[string]string{"customerId": "CUST001", "environment": "dev"})
	require.Equal(t, http.StatusOK, rr.Code)

	var preview punchout.Preview
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &preview))
	assert.Equal(t, app.SourceEnvironmentDefault, preview.TemplateSource)
	assert.Contains(t, preview.XML, "<Identity>buyer123</Identity>")
	assert.Regexp(t, `^SESSION_DEV_CUST001_\d+$`, preview.SessionKey)
}

func TestReferenceDataAPIs(t *testing.T) {
	router := NewServer(newTestApp(t)).Router()

	rr := do(t, router, "GET", "/api/v1/customers", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var customers []app.CustomerProfile
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &customers))
	assert.Len(t, customers, 3)

	rr = do(t, router, "GET", "/api/v1/environments", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"name":"s4-dev"`)

	rr = do(t, router, "PUT", "/api/v1/environments/qa", map[string]string{"gatewayUrl": "not a url"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, router, "POST", "/api/v1/environments/stage/disable", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"enabled":false`)

	rr = do(t, router, "POST", "/api/v1/punchout-tests/preview", map[string]string{"customerId": "CUST001", "environment": "stage"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, router, "POST", "/api/v1/environments/STAGE/enable", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"enabled":true`)

	rr = do(t, router, "POST", "/api/v1/environments/missing/enable", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, router, "GET", "/api/v1/cxml-templates/environment/dev", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var templates []app.CxmlTemplate
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &templates))
	require.Len(t, templates, 1)
	assert.True(t, templates[0].IsDefault)

	rr = do(t, router, "POST", "/api/v1/cxml-templates", app.CxmlTemplate{
		TemplateName: "Acme DEV", Environment: "dev", CustomerID: "CUST001", Body: "<cXML>{{BUYER_ID}}</cXML>",
	})
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr = do(t, router, "POST", "/api/v1/cxml-templates", app.CxmlTemplate{TemplateName: "empty"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, router, "POST", "/api/v1/punchout-tests/preview", map[string]string{"customerId": "CUST001", "environment": "dev"})
	assert.Contains(t, rr.Body.String(), "buyer123")
	assert.Contains(t, rr.Body.String(), `"templateSource":"customer"`)
}
