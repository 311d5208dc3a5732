package backend

import (
	"context"
	"testing"
	"time"

	"github.com/punchout/dashboard/internal/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockClient_TemplateLookup(t *testing.T) {
	c := NewMockClient()
	ctx := context.Background()

	_, err := c.DefaultTemplate(ctx, "dev")
	assert.ErrorIs(t, err, app.ErrNotFound)

	saved, err := c.SaveTemplate(ctx, app.CxmlTemplate{TemplateName: "Default DEV", Environment: "dev", Body: "<a/>", IsDefault: true})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)

	_, err = c.SaveTemplate(ctx, app.CxmlTemplate{TemplateName: "Acme DEV", Environment: "dev", CustomerID: "CUST001", Body: "<b/>"})
	require.NoError(t, err)

	def, err := c.DefaultTemplate(ctx, "DEV")
	require.NoError(t, err)
	assert.Equal(t, "<a/>", def.Body)

	tpl, err := c.CustomerTemplate(ctx, "dev", "CUST001")
	require.NoError(t, err)
	assert.Equal(t, "<b/>", tpl.Body)

	list, err := c.ListTemplates(ctx, "dev")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	saved.Body = "<c/>"
	_, err = c.SaveTemplate(ctx, *saved)
	require.NoError(t, err)
	def, _ = c.DefaultTemplate(ctx, "dev")
	assert.Equal(t, "<c/>", def.Body)
}

func TestMockClient_NetworkRequestsOrdered(t *testing.T) {
	c := NewMockClient()
	now := time.Now()
	c.AddNetworkRequest(app.NetworkRequestRecord{ID: "2", SessionKey: "k", Timestamp: app.Timestamp{Time: now.Add(time.Second)}})
	c.AddNetworkRequest(app.NetworkRequestRecord{ID: "1", SessionKey: "k", Timestamp: app.Timestamp{Time: now}})

	records, err := c.NetworkRequests(context.Background(), "k")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "1", records[0].ID)

	empty, err := c.NetworkRequests(context.Background(), "missing")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}
