package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/punchout/dashboard/internal/app"
	"github.com/punchout/dashboard/internal/config"
	"github.com/punchout/dashboard/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockConfig(t *testing.T) *config.Config {
	t.Helper()
	disabled := false
	cfg := &config.Config{
		Mock: true,
		Execution: config.ExecutionConfig{
			CorrelationDelay: "1ms",
		},
		Environments: []config.EnvironmentConfig{
			{Name: "prod", Enabled: &disabled},
		},
		Artifacts: config.ArtifactsConfig{Dir: t.TempDir()},
	}
	cfg.ApplyDefaults()
	return cfg
}

func load(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	require.NoError(t, cfg.Validate())
	a, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestNew_MockModeRunsEndToEnd(t *testing.T) {
	a := load(t, mockConfig(t))
	ctx := context.Background()

	customer, err := a.Customers.Get("CUST002")
	require.NoError(t, err)

	result, err := a.Executor.Execute(ctx, customer, "stage")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, app.SourceEnvironmentDefault, result.TemplateSource)
	require.True(t, result.HasCorrelationKey())
	assert.Len(t, result.NetworkRequests, 2)

	stored, err := a.DB.GetTestRun(ctx, result.ID)
	require.NoError(t, err)
	assert.Equal(t, result.SessionKey, stored.SessionKey)

	assert.NotNil(t, a.Worker)
	_, ok := a.DB.(*database.MockDatabase)
	assert.True(t, ok)
}

func TestNew_EnvironmentOverrides(t *testing.T) {
	a := load(t, mockConfig(t))

	customer, _ := a.Customers.Get("CUST001")
	_, err := a.Executor.Execute(context.Background(), customer, "prod")
	assert.Error(t, err)

	templates, err := a.Backend.ListTemplates(context.Background(), "s4-dev")
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.True(t, templates[0].IsDefault)
}

func TestStart_NoWorker(t *testing.T) {
	cfg := mockConfig(t)
	off := false
	cfg.Refresh.Enabled = &off
	a := load(t, cfg)
	assert.Nil(t, a.Worker)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	a.Start(ctx)
}
