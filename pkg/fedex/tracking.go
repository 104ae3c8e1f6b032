package fedex

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	unknownEventType        = "UNKNOWN"
	missingEventDescription = "No description available"

	trackManyConcurrency = 4
)

// TrackingClient fetches scan events for a tracking number.
type TrackingClient struct {
	endpoint string
	auth     *Authenticator
	api      Transport
	locale   string
	now      func() time.Time
	logger   *otelzap.Logger
	tracer   trace.Tracer
}

// TrackShipment returns every scan event of the shipment, newest first.
// All failures are reported as *APIError for the tracking endpoint.
func (c *TrackingClient) TrackShipment(ctx context.Context, trackingNumber string, includeDetailedScans bool, locale string) ([]TrackingEvent, error) {
	if locale == "" {
		locale = c.locale
	}

	ctx, span := c.tracer.Start(ctx, "fedex.tracking.track",
		trace.WithAttributes(attribute.String("fedex.tracking_number", trackingNumber)))
	defer span.End()

	c.logger.Ctx(ctx).Info("Tracking FedEx shipment",
		zap.String("tracking_number", trackingNumber),
		zap.String("locale", locale),
	)

	events, err := c.track(ctx, trackingNumber, includeDetailedScans, locale)
	if err != nil {
		span.RecordError(err)
		c.logger.Ctx(ctx).Error("FedEx tracking error",
			zap.String("tracking_number", trackingNumber),
			zap.Error(err),
		)
		return nil, wrapFailure(EndpointTracking, err)
	}

	span.SetAttributes(attribute.Int("fedex.event_count", len(events)))
	return events, nil
}

func (c *TrackingClient) track(ctx context.Context, trackingNumber string, includeDetailedScans bool, locale string) ([]TrackingEvent, error) {
	token, err := c.auth.GetAccessToken(ctx, ScopeTrack)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"includeDetailedScans": includeDetailedScans,
		"trackingInfo": []any{
			map[string]any{
				"trackingNumberInfo": map[string]any{"trackingNumber": trackingNumber},
			},
		},
	}

	resp, err := c.api.Do(ctx, bearerRequest(c.endpoint, token, locale, payload))
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, newStatusError(EndpointTracking, resp)
	}

	data, err := resp.Object()
	if err != nil {
		return nil, err
	}

	return parseTrackingEvents(data, c.now()), nil
}

// GetLatestEvent returns the most recent scan event, or nil when there is none.
func (c *TrackingClient) GetLatestEvent(ctx context.Context, trackingNumber, locale string) (*TrackingEvent, error) {
	events, err := c.TrackShipment(ctx, trackingNumber, true, locale)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	latest := events[0]
	return &latest, nil
}

// TrackMany tracks several numbers, one request each, with bounded
// concurrency. The first failure cancels the remaining requests.
func (c *TrackingClient) TrackMany(ctx context.Context, trackingNumbers []string, locale string) (map[string][]TrackingEvent, error) {
	results := make(map[string][]TrackingEvent, len(trackingNumbers))
	mu := &sync.Mutex{}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(trackManyConcurrency)

	for _, number := range trackingNumbers {
		g.Go(func() error {
			events, err := c.TrackShipment(ctx, number, true, locale)
			if err != nil {
				return err
			}
			mu.Lock()
			results[number] = events
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// flattenScanEvents collapses completeTrackResults -> trackResults ->
// scanEvents into one list.
func flattenScanEvents(data map[string]any) []map[string]any {
	var events []map[string]any
	complete, _ := dig(data, p("output.completeTrackResults"))
	for _, c := range asSlice(complete) {
		for _, r := range asSlice(asMap(c)["trackResults"]) {
			for _, e := range asSlice(asMap(r)["scanEvents"]) {
				if event := asMap(e); event != nil {
					events = append(events, event)
				}
			}
		}
	}
	return events
}

func parseTrackingEvents(data map[string]any, now time.Time) []TrackingEvent {
	raw := flattenScanEvents(data)
	events := make([]TrackingEvent, 0, len(raw))
	for _, e := range raw {
		events = append(events, trackingEventOf(e, now))
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
	return events
}

func trackingEventOf(event map[string]any, now time.Time) TrackingEvent {
	eventType := stringAt(event, p("eventType"))
	if eventType == "" {
		eventType = unknownEventType
	}
	description := stringAt(event, p("eventDescription"))
	if description == "" {
		description = missingEventDescription
	}
	timestamp, ok := parseTimestamp(event["date"])
	if !ok {
		timestamp = now
	}

	return TrackingEvent{
		Type:        eventType,
		Description: description,
		Timestamp:   timestamp,
		City:        optionalString(event, p("scanLocation.city")),
		Country:     optionalString(event, p("scanLocation.countryName")),
	}
}

func optionalString(v any, at path) *string {
	found, ok := dig(v, at)
	if !ok {
		return nil
	}
	s, ok := asString(found)
	if !ok {
		return nil
	}
	return &s
}
