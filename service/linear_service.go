package service

import (
	"context"
	"net/http"

	"github.com/nilotpaul/meetsync/types"
	"golang.org/x/oauth2"
)

const linearViewerQuery = `query { viewer { id name email } organization { id name urlKey } }`

const linearIssueCreate = `mutation IssueCreate($input: IssueCreateInput!) {
  issueCreate(input: $input) { success issue { id identifier url } }
}`

type linearViewer struct {
	Viewer struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"viewer"`
	Organization struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		URLKey string `json:"urlKey"`
	} `json:"organization"`
}

func LinearIdentify(ctx context.Context, call types.ProviderCall, token *oauth2.Token) (*types.AccountInfo, error) {
	v, err := callGraphQL[linearViewer](ctx, call.Client, call.BaseURL+"/graphql", bearer(token.AccessToken), linearViewerQuery, nil)
	if err != nil {
		return nil, err
	}

	return &types.AccountInfo{
		ID:     v.Organization.ID,
		Name:   v.Organization.Name,
		Email:  v.Viewer.Email,
		Active: true,
		Metadata: map[string]string{
			"viewer_id": v.Viewer.ID,
			"url_key":   v.Organization.URLKey,
		},
	}, nil
}

func LinearRevoke(ctx context.Context, call types.ProviderCall, cred *types.Credential) error {
	return callJSON(ctx, call.Client, apiRequest{
		Method: http.MethodPost,
		URL:    call.BaseURL + "/oauth/revoke",
		Header: bearer(cred.AccessToken),
	}, nil)
}

type linearIssueResult struct {
	IssueCreate struct {
		Success bool `json:"success"`
		Issue   struct {
			ID         string `json:"id"`
			Identifier string `json:"identifier"`
			URL        string `json:"url"`
		} `json:"issue"`
	} `json:"issueCreate"`
}

// LinearCreateIssue files one issue in the configured team.
func LinearCreateIssue(ctx context.Context, call types.ProviderCall, cred *types.Credential, in types.ActionInput) types.ActionResult {
	teamID := in.ConfigString("teamId")
	if len(teamID) == 0 {
		return types.ActionFailed("linear step has no teamId configured")
	}

	input := map[string]any{
		"teamId":      teamID,
		"title":       meetingTitle(in.Meeting, in.ConfigString("title")),
		"description": meetingSummary(in.Meeting),
	}
	if project := in.ConfigString("projectId"); len(project) != 0 {
		input["projectId"] = project
	}

	res, err := callGraphQL[linearIssueResult](ctx, call.Client, call.BaseURL+"/graphql", bearer(cred.AccessToken), linearIssueCreate, map[string]any{"input": input})
	if err != nil {
		return types.ActionResult{Reason: failure("linear", err)}
	}
	if !res.IssueCreate.Success {
		return types.ActionFailed("linear: issue was not created")
	}

	return types.ActionResult{
		Success:    true,
		ExternalID: res.IssueCreate.Issue.Identifier,
		URL:        res.IssueCreate.Issue.URL,
	}
}
