package environments

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool { return &b }

func TestManager_Seeded(t *testing.T) {
	m := NewManager("http://gateway:9090")

	envs := m.List()
	require.Len(t, envs, 4)
	assert.Equal(t, "dev", envs[0].Name)
	for _, env := range envs {
		assert.True(t, env.Enabled)
	}

	env, err := m.Get("STAGE")
	require.NoError(t, err)
	assert.Equal(t, "stage", env.Name)

	_, err = m.Get("qa")
	assert.ErrorIs(t, err, ErrEnvironmentNotFound)
}

func TestManager_SetupEndpoint(t *testing.T) {
	m := NewManager("http://gateway:9090/")

	endpoint, err := m.SetupEndpoint("dev")
	require.NoError(t, err)
	assert.Equal(t, "http://gateway:9090/punchout/setup", endpoint)

	endpoint, err = m.SetupEndpoint("unknown")
	require.NoError(t, err)
	assert.Equal(t, "http://gateway:9090/punchout/setup", endpoint)

	_, err = m.Upsert("prod", UpdateEnvironmentRequest{GatewayURL: strPtr("https://prod-gateway.example.com/")})
	require.NoError(t, err)
	endpoint, err = m.SetupEndpoint("Prod")
	require.NoError(t, err)
	assert.Equal(t, "https://prod-gateway.example.com/punchout/setup", endpoint)

	require.NoError(t, m.SetEnabled("stage", false))
	_, err = m.SetupEndpoint("stage")
	assert.ErrorIs(t, err, ErrEnvironmentDisabled)
}

func TestManager_NoGateway(t *testing.T) {
	_, err := NewManager("").SetupEndpoint("dev")
	assert.Error(t, err)
}

func TestManager_Upsert(t *testing.T) {
	m := NewManager("http://gateway")

	env, err := m.Upsert(" QA ", UpdateEnvironmentRequest{Description: strPtr("QA cluster")})
	require.NoError(t, err)
	assert.Equal(t, "qa", env.Name)
	assert.True(t, env.Enabled)
	assert.Len(t, m.List(), 5)

	env, err = m.Upsert("qa", UpdateEnvironmentRequest{Enabled: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, env.Enabled)
	assert.Equal(t, "QA cluster", env.Description)

	_, err = m.Upsert("qa", UpdateEnvironmentRequest{GatewayURL: strPtr("ftp://nope")})
	assert.Error(t, err)
	_, err = m.Upsert("", UpdateEnvironmentRequest{})
	assert.Error(t, err)

	assert.ErrorIs(t, m.SetEnabled("missing", true), ErrEnvironmentNotFound)
}
