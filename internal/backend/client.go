package backend

import (
	"context"

	"github.com/punchout/dashboard/internal/app"
)

// Client is the subset of the PunchOut backend API the dashboard uses
type Client interface {
	app.TemplateStore
	app.NetworkRequestSource

	ListTemplates(ctx context.Context, environment string) ([]app.CxmlTemplate, error)
	SaveTemplate(ctx context.Context, tpl app.CxmlTemplate) (*app.CxmlTemplate, error)
}

var (
	_ Client = (*RealClient)(nil)
	_ Client = (*MockClient)(nil)
)
