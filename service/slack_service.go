package service

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nilotpaul/meetsync/types"
	"golang.org/x/oauth2"
)

type slackResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

type slackAuthTest struct {
	slackResponse
	URL    string `json:"url"`
	Team   string `json:"team"`
	TeamID string `json:"team_id"`
	User   string `json:"user"`
	UserID string `json:"user_id"`
}

// SlackIdentify calls auth.test, which reports ok=false with HTTP 200 for
// revoked or invalid tokens.
func SlackIdentify(ctx context.Context, call types.ProviderCall, token *oauth2.Token) (*types.AccountInfo, error) {
	var res slackAuthTest
	err := callJSON(ctx, call.Client, apiRequest{
		Method: http.MethodPost,
		URL:    call.BaseURL + "/api/auth.test",
		Header: bearer(token.AccessToken),
	}, &res)
	if err != nil {
		return nil, err
	}
	if !res.OK {
		return &types.AccountInfo{Active: false}, fmt.Errorf("slack auth.test: %s", res.Error)
	}

	return &types.AccountInfo{
		ID:     res.TeamID,
		Name:   res.Team,
		Active: true,
		Metadata: map[string]string{
			"team_url": res.URL,
			"user_id":  res.UserID,
		},
	}, nil
}

func SlackRevoke(ctx context.Context, call types.ProviderCall, cred *types.Credential) error {
	var res slackResponse
	if err := callJSON(ctx, call.Client, apiRequest{
		Method: http.MethodPost,
		URL:    call.BaseURL + "/api/auth.revoke",
		Header: bearer(cred.AccessToken),
	}, &res); err != nil {
		return err
	}
	if !res.OK {
		return fmt.Errorf("slack auth.revoke: %s", res.Error)
	}

	return nil
}

type slackPostMessage struct {
	slackResponse
	Channel string `json:"channel"`
	TS      string `json:"ts"`
}

// SlackPostMessage posts the meeting summary to the configured channel.
func SlackPostMessage(ctx context.Context, call types.ProviderCall, cred *types.Credential, in types.ActionInput) types.ActionResult {
	channel := in.ConfigString("channel")
	if len(channel) == 0 {
		return types.ActionFailed("slack step has no channel configured")
	}

	text := "*" + meetingTitle(in.Meeting, in.ConfigString("title")) + "*"
	if summary := meetingSummary(in.Meeting); len(summary) != 0 {
		text += "\n" + summary
	}

	var res slackPostMessage
	err := callJSON(ctx, call.Client, apiRequest{
		Method: http.MethodPost,
		URL:    call.BaseURL + "/api/chat.postMessage",
		Header: bearer(cred.AccessToken),
		Body: map[string]any{
			"channel": channel,
			"text":    text,
			"mrkdwn":  true,
		},
	}, &res)
	if err != nil {
		return types.ActionResult{Reason: failure("slack", err)}
	}
	if !res.OK {
		return types.ActionFailed("slack: %s", res.Error)
	}

	return types.ActionResult{Success: true, ExternalID: res.Channel + ":" + res.TS}
}
