// Package calendar bridges tasks to Google Calendar. The service is treated
// as an unreliable remote collaborator: every call takes a context and the
// caller decides what a failure means for local state.
package calendar

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/Paul-Karonji/taskiq/internal/domain/entities"
	"github.com/Paul-Karonji/taskiq/internal/infrastructure/config"
	"github.com/Paul-Karonji/taskiq/internal/ports"
)

// GoogleAdapter implements ports.CalendarAdapter against the Calendar v3 API.
type GoogleAdapter struct {
	oauth      *oauth2.Config
	calendarID string
}

// NewGoogleAdapter creates a calendar adapter using the application's OAuth client
func NewGoogleAdapter(cfg config.GoogleConfig, oauthConfig *oauth2.Config) *GoogleAdapter {
	return &GoogleAdapter{
		oauth:      oauthConfig,
		calendarID: cfg.CalendarID,
	}
}

// service builds a per-call Calendar service from the account's stored tokens.
// The oauth2 token source refreshes the access token transparently when the
// account carries a refresh token.
func (a *GoogleAdapter) service(ctx context.Context, account *entities.Account) (*gcal.Service, error) {
	token := &oauth2.Token{
		AccessToken:  account.AccessToken,
		RefreshToken: account.RefreshToken,
	}
	if account.TokenExpiry != nil {
		token.Expiry = *account.TokenExpiry
	}

	client := oauth2.NewClient(ctx, a.oauth.TokenSource(ctx, token))

	svc, err := gcal.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return svc, nil
}

// CreateEvent mirrors a task as a calendar event and returns the remote event id.
func (a *GoogleAdapter) CreateEvent(ctx context.Context, account *entities.Account, in ports.CalendarEvent) (string, error) {
	svc, err := a.service(ctx, account)
	if err != nil {
		return "", err
	}

	event := &gcal.Event{
		Summary:     in.Title,
		Description: in.Description,
	}

	tz := in.Timezone
	if tz == "" {
		tz = "UTC"
	}

	if in.StartTime == "" {
		// No time of day: an all-day event on the due date.
		date := in.Date.Format("2006-01-02")
		event.Start = &gcal.EventDateTime{Date: date}
		event.End = &gcal.EventDateTime{Date: date}
	} else {
		start, err := combineDateTime(in.Date, in.StartTime, tz)
		if err != nil {
			return "", err
		}
		duration := time.Duration(in.DurationMin) * time.Minute
		if duration <= 0 {
			duration = 30 * time.Minute
		}
		event.Start = &gcal.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: tz}
		event.End = &gcal.EventDateTime{DateTime: start.Add(duration).Format(time.RFC3339), TimeZone: tz}
	}

	created, err := svc.Events.Insert(a.calendarID, event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("%w: %v", entities.ErrCalendarUnavailable, err)
	}

	return created.Id, nil
}

// DeleteEvent removes the remote event backing a synced task.
func (a *GoogleAdapter) DeleteEvent(ctx context.Context, account *entities.Account, eventID string) error {
	svc, err := a.service(ctx, account)
	if err != nil {
		return err
	}

	if err := svc.Events.Delete(a.calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("%w: %v", entities.ErrCalendarUnavailable, err)
	}

	return nil
}

// combineDateTime resolves a date plus "HH:MM" in the given IANA timezone.
func combineDateTime(date time.Time, hhmm, tz string) (time.Time, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, entities.ErrInvalidTimezone
	}

	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time of day %q", hhmm)
	}

	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}
