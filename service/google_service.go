package service

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/nilotpaul/meetsync/types"
	"github.com/nilotpaul/meetsync/util"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

// googleEndpoint returns the override for a google api client, empty when
// the default Google host should be used.
func googleEndpoint(base, path string) string {
	if len(base) == 0 {
		return ""
	}
	return util.TrimBaseURL(base) + path
}

// GoogleIdentify fetches the user info with the received access token.
func GoogleIdentify(ctx context.Context, call types.ProviderCall, token *oauth2.Token) (*types.AccountInfo, error) {
	srv, err := util.MakeUserinfoService(ctx, call.Client, token.AccessToken, googleEndpoint(call.BaseURL, "/"))
	if err != nil {
		return nil, err
	}

	u, err := srv.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, googleError(err)
	}

	return &types.AccountInfo{
		ID:     u.Id,
		Name:   u.Name,
		Email:  u.Email,
		Active: true,
	}, nil
}

func GoogleRevoke(ctx context.Context, call types.ProviderCall, cred *types.Credential) error {
	if len(call.RevokeURL) == 0 {
		return errors.New("google: no revoke url configured")
	}

	token := cred.RefreshToken
	if len(token) == 0 {
		token = cred.AccessToken
	}

	return callJSON(ctx, call.Client, apiRequest{
		Method: http.MethodPost,
		URL:    call.RevokeURL,
		Form:   url.Values{"token": {token}},
	}, nil)
}

// GoogleCreateEvent puts a follow-up event on the configured calendar with
// the meeting summary as its description.
func GoogleCreateEvent(ctx context.Context, call types.ProviderCall, cred *types.Credential, in types.ActionInput) types.ActionResult {
	srv, err := util.MakeCalendarService(ctx, call.Client, cred.AccessToken, googleEndpoint(call.BaseURL, "/calendar/v3/"))
	if err != nil {
		return types.ActionFailed("google: failed to initialize the calendar service")
	}

	calendarID := in.ConfigString("calendarId")
	if len(calendarID) == 0 {
		calendarID = "primary"
	}

	start, err := eventStart(in)
	if err != nil {
		return types.ActionFailed("google: invalid start: %s", err)
	}
	duration := 30 * time.Minute
	if d, err := time.ParseDuration(in.ConfigString("duration")); err == nil && d > 0 {
		duration = d
	}

	title := meetingTitle(in.Meeting, in.ConfigString("title"))
	if len(in.ConfigString("title")) == 0 {
		title = "Follow-up: " + title
	}

	ev, err := srv.Events.Insert(calendarID, &calendar.Event{
		Summary:     title,
		Description: meetingSummary(in.Meeting),
		Start:       &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: start.Add(duration).Format(time.RFC3339)},
	}).Context(ctx).Do()
	if err != nil {
		return types.ActionResult{Reason: failure("google", googleError(err))}
	}

	return types.ActionResult{Success: true, ExternalID: ev.Id, URL: ev.HtmlLink}
}

// eventStart reads an RFC3339 start from the step config, defaulting to one
// day after the meeting.
func eventStart(in types.ActionInput) (time.Time, error) {
	if s := in.ConfigString("start"); len(s) != 0 {
		return time.Parse(time.RFC3339, s)
	}

	base := time.Now()
	if in.Meeting != nil && !in.Meeting.Timestamp.IsZero() {
		base = in.Meeting.Timestamp
	}
	return base.Add(24 * time.Hour).Truncate(time.Minute), nil
}

// googleError exposes googleapi errors as APIError so failure reasons stay
// uniform across providers.
func googleError(err error) error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return &APIError{Status: gErr.Code, Body: gErr.Message}
	}
	return err
}
