package punchout

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/punchout/dashboard/internal/app"
)

// Resolver picks the template for a test: customer template first, then the
// environment default, then the built-in request. It never fails.
type Resolver struct {
	store app.TemplateStore
}

func NewResolver(store app.TemplateStore) *Resolver {
	return &Resolver{store: store}
}

func (r *Resolver) Resolve(ctx context.Context, environment, customerID string) (string, app.TemplateSource) {
	if r.store != nil {
		if customerID != "" {
			tpl, err := r.store.CustomerTemplate(ctx, environment, customerID)
			if body, ok := usable(tpl, err, fmt.Sprintf("customer template %s/%s", environment, customerID)); ok {
				return body, app.SourceCustomer
			}
		}

		tpl, err := r.store.DefaultTemplate(ctx, environment)
		if body, ok := usable(tpl, err, fmt.Sprintf("default template %s", environment)); ok {
			return body, app.SourceEnvironmentDefault
		}
	}

	return BuiltinTemplate(environment), app.SourceBuiltin
}

func usable(tpl *app.CxmlTemplate, err error, what string) (string, bool) {
	switch {
	case errors.Is(err, app.ErrNotFound):
		log.Printf("No %s, falling back", what)
		return "", false
	case err != nil:
		log.Printf("Failed to fetch %s: %v", what, err)
		return "", false
	case tpl == nil || strings.TrimSpace(tpl.Body) == "":
		log.Printf("Empty %s, falling back", what)
		return "", false
	}
	return tpl.Body, true
}

const builtinTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<cXML payloadID="{{PAYLOAD_ID}}" timestamp="{{TIMESTAMP}}">
  <Header>
    <From>
      <Credential domain="NetworkID">
        <Identity>{{BUYER_ID}}</Identity>
      </Credential>
    </From>
    <To>
      <Credential domain="NetworkID">
        <Identity>supplier456</Identity>
      </Credential>
    </To>
    <Sender>
      <Credential domain="NetworkID">
        <Identity>{{DOMAIN}}</Identity>
        <SharedSecret>secret123</SharedSecret>
      </Credential>
      <UserAgent>BuyerApp 1.0</UserAgent>
    </Sender>
  </Header>
  <Request>
    <PunchOutSetupRequest operation="create">
      <BuyerCookie>{{SESSION_KEY}}</BuyerCookie>
      <Extrinsic name="User">developer@example.com</Extrinsic>
      <Extrinsic name="Environment">%s</Extrinsic>
      <Extrinsic name="CustomerName">{{CUSTOMER_NAME}}</Extrinsic>
      <BrowserFormPost>
        <URL>https://{{DOMAIN}}/punchout/return</URL>
      </BrowserFormPost>
      <Contact role="buyer">
        <Name xml:lang="en">Developer Test</Name>
        <Email>developer@example.com</Email>
      </Contact>
    </PunchOutSetupRequest>
  </Request>
</cXML>`

// BuiltinTemplate returns the fallback PunchOutSetupRequest for an environment
func BuiltinTemplate(environment string) string {
	var escaped bytes.Buffer
	xml.EscapeText(&escaped, []byte(environment))
	return fmt.Sprintf(builtinTemplate, escaped.String())
}
