package artifacts

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/punchout/dashboard/internal/app"
)

// Manager builds and caches zip evidence bundles for test runs
type Manager struct {
	cacheDir string
	cacheTTL time.Duration
}

func NewManager(cacheDir string, cacheTTL time.Duration) *Manager {
	return &Manager{
		cacheDir: cacheDir,
		cacheTTL: cacheTTL,
	}
}

func (m *Manager) bundlePath(runID string) (string, error) {
	if err := uuid.Validate(runID); err != nil {
		return "", fmt.Errorf("invalid run id %q: %w", runID, err)
	}
	return filepath.Join(m.cacheDir, runID+".zip"), nil
}

// GetCachedBundle returns the path of a fresh cached bundle, or "" when there is none
func (m *Manager) GetCachedBundle(runID string) (string, error) {
	path, err := m.bundlePath(runID)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil // Not cached
		}
		return "", err
	}

	if time.Since(info.ModTime()) > m.cacheTTL {
		os.Remove(path)
		return "", nil // Expired
	}

	return path, nil
}

// Bundle returns a cached bundle for the run, building it if needed
func (m *Manager) Bundle(result *app.TestExecutionResult) (string, error) {
	path, err := m.GetCachedBundle(result.ID)
	if err != nil || path != "" {
		return path, err
	}

	data, err := BuildBundle(result)
	if err != nil {
		return "", err
	}
	return m.SaveBundle(result.ID, data)
}

func (m *Manager) SaveBundle(runID string, data []byte) (string, error) {
	path, err := m.bundlePath(runID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(m.cacheDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write bundle: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to store bundle: %w", err)
	}
	return path, nil
}

// BuildBundle zips the result, the exchanged cXML documents and the correlated requests
func BuildBundle(result *app.TestExecutionResult) ([]byte, error) {
	summary, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	records := result.NetworkRequests
	if records == nil {
		records = []app.NetworkRequestRecord{}
	}
	requests, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode network requests: %w", err)
	}

	files := []struct {
		name string
		data []byte
	}{
		{"result.json", summary},
		{"setup-request.xml", []byte(result.RequestXML)},
		{"setup-response.xml", []byte(result.ResponseXML)},
		{"network-requests.json", requests},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.name,
			Method:   zip.Deflate,
			Modified: result.Timestamp,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", f.name, err)
		}
		if _, err := w.Write(f.data); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", f.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish bundle: %w", err)
	}
	return buf.Bytes(), nil
}
