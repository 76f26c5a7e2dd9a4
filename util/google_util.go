package util

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
	oauth2api "google.golang.org/api/oauth2/v2"
)

func googleClientOptions(ctx context.Context, base *http.Client, accToken, endpoint string) []option.ClientOption {
	token := &oauth2.Token{
		AccessToken: accToken,
	}
	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	}
	ts := oauth2.StaticTokenSource(token)
	client := oauth2.NewClient(ctx, ts)

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if len(endpoint) != 0 {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	return opts
}

// MakeCalendarService builds a Calendar client authorized with accToken.
// An empty endpoint keeps Google's default.
func MakeCalendarService(ctx context.Context, base *http.Client, accToken, endpoint string) (*calendar.Service, error) {
	srv, err := calendar.NewService(ctx, googleClientOptions(ctx, base, accToken, endpoint)...)
	if err != nil {
		return nil, err
	}

	return srv, nil
}

func MakeUserinfoService(ctx context.Context, base *http.Client, accToken, endpoint string) (*oauth2api.Service, error) {
	srv, err := oauth2api.NewService(ctx, googleClientOptions(ctx, base, accToken, endpoint)...)
	if err != nil {
		return nil, err
	}

	return srv, nil
}
