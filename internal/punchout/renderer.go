package punchout

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/punchout/dashboard/internal/app"
)

const (
	TokenPayloadID    = "{{PAYLOAD_ID}}"
	TokenTimestamp    = "{{TIMESTAMP}}"
	TokenBuyerID      = "{{BUYER_ID}}"
	TokenDomain       = "{{DOMAIN}}"
	TokenSessionKey   = "{{SESSION_KEY}}"
	TokenCustomerName = "{{CUSTOMER_NAME}}"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// RenderedPayload is a template with every known token substituted
type RenderedPayload struct {
	XML        string `json:"xml" yaml:"xml"`
	SessionKey string `json:"sessionKey" yaml:"sessionKey"`
	PayloadID  string `json:"payloadId" yaml:"payloadId"`
	Timestamp  string `json:"timestamp" yaml:"timestamp"`
}

type Renderer struct {
	now  func() time.Time
	intn func(n int) int
}

func NewRenderer() *Renderer {
	return &Renderer{now: time.Now, intn: rand.IntN}
}

// Render substitutes the placeholders. Unknown tokens are left alone and the
// result is not checked for well-formedness.
func (r *Renderer) Render(template string, customer app.CustomerProfile, environment string) RenderedPayload {
	now := r.now()
	p := RenderedPayload{
		SessionKey: SessionKey(environment, customer.ID, now),
		PayloadID:  strconv.Itoa(r.intn(1000000)),
		Timestamp:  now.UTC().Format(timestampLayout),
	}

	replacer := strings.NewReplacer(
		TokenPayloadID, p.PayloadID,
		TokenTimestamp, p.Timestamp,
		TokenBuyerID, customer.BuyerID,
		TokenDomain, customer.Domain,
		TokenSessionKey, p.SessionKey,
		TokenCustomerName, customer.Name,
	)
	p.XML = replacer.Replace(template)
	return p
}

// SessionKey builds SESSION_<ENV>_<CUSTOMER>_<epoch millis>
func SessionKey(environment, customerID string, at time.Time) string {
	return fmt.Sprintf("SESSION_%s_%s_%d", strings.ToUpper(environment), customerID, at.UnixMilli())
}
