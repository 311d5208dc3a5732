package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/punchout/dashboard/internal/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, key := range []string{"PUNCHOUT_GATEWAY_URL", "PUNCHOUT_BACKEND_URL", "DATABASE_DRIVER", "DATABASE_URL", "PUNCHOUT_CUSTOMERS_FILE", "USE_MOCK"} {
		t.Setenv(key, "")
	}
	t.Setenv("PUNCHOUT_CORRELATION_DELAY", "1ms")

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRunCommand_Mock(t *testing.T) {
	out, err := execute(t, "run", "--mock", "--customer", "CUST002", "--env", "stage")
	require.NoError(t, err)

	var result app.TestExecutionResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result.Success)
	assert.Equal(t, "stage", result.Environment)
	assert.Len(t, result.NetworkRequests, 2)
}

func TestPreviewCommand_YAML(t *testing.T) {
	out, err := execute(t, "preview", "--mock", "--customer", "CUST001", "--env", "dev", "-o", "yaml")
	require.NoError(t, err)

	var preview map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &preview))
	assert.Equal(t, "environment-default", preview["templateSource"])
	assert.Contains(t, preview["xml"], "buyer123")
}

func TestCustomersCommand(t *testing.T) {
	out, err := execute(t, "customers", "--mock")
	require.NoError(t, err)

	var customers []app.CustomerProfile
	require.NoError(t, json.Unmarshal([]byte(out), &customers))
	assert.Len(t, customers, 3)
}

func TestCommandErrors(t *testing.T) {
	_, err := execute(t, "run", "--mock", "--customer", "CUST999", "--env", "dev")
	assert.ErrorIs(t, err, app.ErrNotFound)

	_, err = execute(t, "run", "--mock", "--customer", "CUST001")
	assert.Error(t, err)

	_, err = execute(t, "customers", "--mock", "-o", "xml")
	assert.ErrorContains(t, err, "unsupported output format")

	_, err = execute(t, "customers")
	assert.ErrorContains(t, err, "gateway.url is required")
}
