// Package tracking implements the analytics event sinks: GA4 measurement
// protocol, Meta conversions, a custom HTTP endpoint and the local ring buffer.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/AtRiskMedia/siteshell-go/internal/domain/analytics"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/integrations"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/storage"
)

const (
	DefaultGA4URL  = "https://www.google-analytics.com/mp/collect"
	DefaultMetaURL = "https://graph.facebook.com/v18.0"
)

// GA4 forwards events to the Google Analytics 4 measurement protocol, the
// server side counterpart of the page's gtag call.
type GA4 struct {
	endpoint string
	doer     integrations.Doer
}

func NewGA4(baseURL, measurementID, apiSecret string, doer integrations.Doer) *GA4 {
	if baseURL == "" {
		baseURL = DefaultGA4URL
	}
	q := url.Values{"measurement_id": {measurementID}, "api_secret": {apiSecret}}
	return &GA4{endpoint: baseURL + "?" + q.Encode(), doer: doer}
}

func (g *GA4) Name() string { return "ga4" }

func (g *GA4) Send(ctx context.Context, e analytics.Event) error {
	params := make(map[string]any, len(e.Data)+1)
	for k, v := range e.Data {
		params[k] = v
	}
	params["session_id"] = e.SessionID
	body := map[string]any{
		"client_id":        e.SessionID,
		"timestamp_micros": e.Timestamp.UnixMicro(),
		"events":           []map[string]any{{"name": e.Name, "params": params}},
	}
	return integrations.PostJSON(ctx, g.doer, g.endpoint, nil, body)
}

// Meta forwards events to the Meta conversions API, the server side
// counterpart of the page's fbq call.
type Meta struct {
	endpoint string
	doer     integrations.Doer
}

func NewMeta(baseURL, pixelID, accessToken string, doer integrations.Doer) *Meta {
	if baseURL == "" {
		baseURL = DefaultMetaURL
	}
	return &Meta{
		endpoint: fmt.Sprintf("%s/%s/events?access_token=%s", baseURL, url.PathEscape(pixelID), url.QueryEscape(accessToken)),
		doer:     doer,
	}
}

func (m *Meta) Name() string { return "meta" }

func (m *Meta) Send(ctx context.Context, e analytics.Event) error {
	userData := map[string]any{"external_id": e.SessionID}
	if ua, ok := e.Data["userAgent"].(string); ok && ua != "" {
		userData["client_user_agent"] = ua
	}
	body := map[string]any{
		"data": []map[string]any{{
			"event_name":    e.Name,
			"event_time":    e.Timestamp.Unix(),
			"event_id":      e.ID,
			"action_source": "website",
			"user_data":     userData,
			"custom_data":   e.Data,
		}},
	}
	return integrations.PostJSON(ctx, m.doer, m.endpoint, nil, body)
}

// Endpoint posts the raw event to a first party collector.
type Endpoint struct {
	url  string
	doer integrations.Doer
}

func NewEndpoint(url string, doer integrations.Doer) *Endpoint {
	return &Endpoint{url: url, doer: doer}
}

func (p *Endpoint) Name() string { return "endpoint" }

func (p *Endpoint) Send(ctx context.Context, e analytics.Event) error {
	return integrations.PostJSON(ctx, p.doer, p.url, nil, e)
}

// RingBuffer keeps the most recent events under the analytics key of the
// visitor's store.
type RingBuffer struct {
	mu    sync.Mutex
	store storage.Store
	size  int
}

func NewRingBuffer(store storage.Store, size int) *RingBuffer {
	if size <= 0 {
		size = 100
	}
	return &RingBuffer{store: store, size: size}
}

func (r *RingBuffer) Name() string { return "local" }

func (r *RingBuffer) Send(ctx context.Context, e analytics.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var events []analytics.Event
	if err := storage.GetJSON(ctx, r.store, storage.KeyAnalyticsEvents, &events); err != nil && !errors.Is(err, storage.ErrNotFound) {
		// corrupt buffer: start over
		events = nil
	}
	events = append(events, e)
	if len(events) > r.size {
		events = events[len(events)-r.size:]
	}
	return storage.SetJSON(ctx, r.store, storage.KeyAnalyticsEvents, events)
}

// Events returns the buffered events, oldest first.
func (r *RingBuffer) Events(ctx context.Context) ([]analytics.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var events []analytics.Event
	err := storage.GetJSON(ctx, r.store, storage.KeyAnalyticsEvents, &events)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return events, err
}
