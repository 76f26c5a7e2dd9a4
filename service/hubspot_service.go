package service

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nilotpaul/meetsync/types"
	"golang.org/x/oauth2"
)

type hubspotTokenInfo struct {
	HubID     int64    `json:"hub_id"`
	HubDomain string   `json:"hub_domain"`
	User      string   `json:"user"`
	UserID    int64    `json:"user_id"`
	Scopes    []string `json:"scopes"`
	ExpiresIn int64    `json:"expires_in"`
}

// HubSpotIdentify introspects the access token.
func HubSpotIdentify(ctx context.Context, call types.ProviderCall, token *oauth2.Token) (*types.AccountInfo, error) {
	var info hubspotTokenInfo
	if err := callJSON(ctx, call.Client, apiRequest{
		URL: call.BaseURL + "/oauth/v1/access-tokens/" + url.PathEscape(token.AccessToken),
	}, &info); err != nil {
		return nil, err
	}

	return &types.AccountInfo{
		ID:     strconv.FormatInt(info.HubID, 10),
		Name:   info.HubDomain,
		Email:  info.User,
		Active: info.ExpiresIn > 0,
		Metadata: map[string]string{
			"scopes": strings.Join(info.Scopes, " "),
		},
	}, nil
}

func HubSpotRevoke(ctx context.Context, call types.ProviderCall, cred *types.Credential) error {
	if len(cred.RefreshToken) == 0 {
		return nil
	}

	return callJSON(ctx, call.Client, apiRequest{
		Method: http.MethodDelete,
		URL:    call.BaseURL + "/oauth/v1/refresh-tokens/" + url.PathEscape(cred.RefreshToken),
	}, nil)
}

type hubspotObject struct {
	ID string `json:"id"`
}

// HubSpotCreateNote creates a CRM note holding the meeting summary.
func HubSpotCreateNote(ctx context.Context, call types.ProviderCall, cred *types.Credential, in types.ActionInput) types.ActionResult {
	ts := time.Now()
	if in.Meeting != nil && !in.Meeting.Timestamp.IsZero() {
		ts = in.Meeting.Timestamp
	}

	body := "<h3>" + meetingTitle(in.Meeting, in.ConfigString("title")) + "</h3>" +
		strings.ReplaceAll(meetingSummary(in.Meeting), "\n", "<br>")

	var obj hubspotObject
	err := callJSON(ctx, call.Client, apiRequest{
		Method: http.MethodPost,
		URL:    call.BaseURL + "/crm/v3/objects/notes",
		Header: bearer(cred.AccessToken),
		Body: map[string]any{
			"properties": map[string]any{
				"hs_timestamp": ts.UTC().Format(time.RFC3339),
				"hs_note_body": body,
			},
		},
	}, &obj)
	if err != nil {
		return types.ActionResult{Reason: failure("hubspot", err)}
	}

	return types.ActionResult{Success: true, ExternalID: obj.ID}
}
