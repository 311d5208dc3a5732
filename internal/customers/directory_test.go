package customers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/punchout/dashboard/internal/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemo(t *testing.T) {
	d := Demo()
	require.Len(t, d.List(), 3)
	assert.Equal(t, "CUST001", d.List()[0].ID)

	tc, err := d.Get("CUST002")
	require.NoError(t, err)
	assert.Equal(t, "TechCorp Industries", tc.Name)
	assert.Equal(t, "techcorp.com", tc.Domain)
	assert.Equal(t, "buyer456", tc.BuyerID)

	_, err = d.Get("CUST999")
	assert.ErrorIs(t, err, app.ErrNotFound)
}

func TestNew_Validation(t *testing.T) {
	_, err := New([]app.CustomerProfile{{ID: "A", Name: "A"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "domain, buyerId")

	p := app.CustomerProfile{ID: "A", Name: "A", Domain: "a.com", BuyerID: "b"}
	_, err = New([]app.CustomerProfile{p, p})
	assert.ErrorContains(t, err, "duplicate")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "customers.yaml")
	content := `customers:
  - id: CUST100
    name: Example Buyer
    domain: example.com
    buyerId: buyer100
  - id: CUST101
    name: Second Buyer
    domain: second.example.com
    buyerId: buyer101
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	d, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, d.List(), 2)

	p, err := d.Get("CUST101")
	require.NoError(t, err)
	assert.Equal(t, "second.example.com", p.Domain)

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("customers: []\n"), 0644))
	_, err = LoadFile(empty)
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestList_ReturnsCopy(t *testing.T) {
	d := Demo()
	list := d.List()
	list[0].Name = "changed"
	p, _ := d.Get("CUST001")
	assert.Equal(t, "Acme Corporation", p.Name)
}
