package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"inkflow/config"
)

// NewGoogleClient builds an authenticated Calendar API client from the
// OAuth client credentials and a previously issued refresh token. The
// token file must exist; there is no interactive consent flow here.
func NewGoogleClient(ctx context.Context, cfg config.Config) (*gcal.Service, error) {
	raw, err := os.ReadFile(cfg.GoogleTokenFile)
	if err != nil {
		return nil, fmt.Errorf("read google token file: %w", err)
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal(raw, tok); err != nil {
		return nil, fmt.Errorf("parse google token file: %w", err)
	}

	oc := &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gcal.CalendarScope},
	}

	svc, err := gcal.NewService(ctx, option.WithHTTPClient(oc.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("init calendar client: %w", err)
	}
	return svc, nil
}

// EventsAPI is the slice of the Calendar API this service consumes.
type EventsAPI interface {
	List(ctx context.Context, timeMin, timeMax time.Time, query string) ([]*gcal.Event, error)
	Insert(ctx context.Context, event *gcal.Event) (*gcal.Event, error)
	Get(ctx context.Context, eventID string) (*gcal.Event, error)
	Delete(ctx context.Context, eventID string) error
}

type googleEvents struct {
	svc        *gcal.Service
	calendarID string
}

// NewGoogleEvents wraps the real Calendar client behind EventsAPI,
// pinned to one calendar.
func NewGoogleEvents(svc *gcal.Service, calendarID string) EventsAPI {
	return &googleEvents{svc: svc, calendarID: calendarID}
}

func (g *googleEvents) List(ctx context.Context, timeMin, timeMax time.Time, query string) ([]*gcal.Event, error) {
	call := g.svc.Events.List(g.calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx)
	if query != "" {
		call = call.Q(query)
	}
	res, err := call.Do()
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

func (g *googleEvents) Insert(ctx context.Context, event *gcal.Event) (*gcal.Event, error) {
	return g.svc.Events.Insert(g.calendarID, event).Context(ctx).Do()
}

func (g *googleEvents) Get(ctx context.Context, eventID string) (*gcal.Event, error) {
	return g.svc.Events.Get(g.calendarID, eventID).Context(ctx).Do()
}

func (g *googleEvents) Delete(ctx context.Context, eventID string) error {
	return g.svc.Events.Delete(g.calendarID, eventID).Context(ctx).Do()
}
