package artifacts

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/punchout/dashboard/internal/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *app.TestExecutionResult {
	key := "SESSION_DEV_CUST001_1"
	return &app.TestExecutionResult{
		ID:             uuid.NewString(),
		Success:        true,
		Status:         200,
		CorrelationKey: &key,
		SessionKey:     key,
		CustomerID:     "CUST001",
		Environment:    "dev",
		RequestXML:     "<cXML>request</cXML>",
		ResponseXML:    "<cXML>response</cXML>",
		Timestamp:      time.Now(),
	}
}

func readZip(t *testing.T, path string) map[string]string {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	files := map[string]string{}
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		files[f.Name] = string(data)
	}
	return files
}

func TestBundle(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "bundles"), time.Hour)
	result := sampleResult()

	path, err := m.Bundle(result)
	require.NoError(t, err)

	files := readZip(t, path)
	assert.Len(t, files, 4)
	assert.Equal(t, "<cXML>request</cXML>", files["setup-request.xml"])
	assert.Equal(t, "<cXML>response</cXML>", files["setup-response.xml"])
	assert.Equal(t, "[]", files["network-requests.json"])
	assert.Contains(t, files["result.json"], `"correlationKey": "SESSION_DEV_CUST001_1"`)

	cached, err := m.GetCachedBundle(result.ID)
	require.NoError(t, err)
	assert.Equal(t, path, cached)
}

func TestGetCachedBundle_Expired(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, time.Minute)
	id := uuid.NewString()

	path, err := m.SaveBundle(id, []byte("zip"))
	require.NoError(t, err)
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	cached, err := m.GetCachedBundle(id)
	require.NoError(t, err)
	assert.Empty(t, cached)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestBundlePath_RejectsTraversal(t *testing.T) {
	m := NewManager(t.TempDir(), time.Hour)
	_, err := m.GetCachedBundle("../../etc/passwd")
	assert.Error(t, err)
	_, err = m.SaveBundle("../x", []byte("zip"))
	assert.Error(t, err)
}
