package service

import (
	"context"
	"encoding/json"

	"github.com/nilotpaul/meetsync/types"
	"golang.org/x/oauth2"
)

const mondayAPIVersion = "2024-01"

const mondayMeQuery = `query { me { id name email account { id name slug } } }`

const mondayCreateItem = `mutation ($boardId: ID!, $itemName: String!, $columnValues: JSON) {
  create_item(board_id: $boardId, item_name: $itemName, column_values: $columnValues) { id }
}`

// Monday takes the token without a Bearer prefix.
func mondayHeader(token string) map[string]string {
	return map[string]string{
		"Authorization": token,
		"API-Version":   mondayAPIVersion,
	}
}

type mondayMe struct {
	Me struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Account struct {
			ID   string `json:"id"`
			Name string `json:"name"`
			Slug string `json:"slug"`
		} `json:"account"`
	} `json:"me"`
}

func MondayIdentify(ctx context.Context, call types.ProviderCall, token *oauth2.Token) (*types.AccountInfo, error) {
	me, err := callGraphQL[mondayMe](ctx, call.Client, call.BaseURL+"/v2", mondayHeader(token.AccessToken), mondayMeQuery, nil)
	if err != nil {
		return nil, err
	}

	return &types.AccountInfo{
		ID:     me.Me.Account.ID,
		Name:   me.Me.Account.Name,
		Email:  me.Me.Email,
		Active: true,
		Metadata: map[string]string{
			"user_id": me.Me.ID,
			"slug":    me.Me.Account.Slug,
		},
	}, nil
}

type mondayItem struct {
	CreateItem struct {
		ID string `json:"id"`
	} `json:"create_item"`
}

// MondayCreateItem adds an item to the configured board. An optional
// notesColumn receives the meeting summary as a long-text value.
func MondayCreateItem(ctx context.Context, call types.ProviderCall, cred *types.Credential, in types.ActionInput) types.ActionResult {
	boardID := in.ConfigString("boardId")
	if len(boardID) == 0 {
		return types.ActionFailed("monday step has no boardId configured")
	}

	vars := map[string]any{
		"boardId":  boardID,
		"itemName": meetingTitle(in.Meeting, in.ConfigString("title")),
	}
	if col := in.ConfigString("notesColumn"); len(col) != 0 {
		cv, err := json.Marshal(map[string]any{col: map[string]string{"text": meetingSummary(in.Meeting)}})
		if err != nil {
			return types.ActionFailed("monday: %s", err)
		}
		vars["columnValues"] = string(cv)
	}

	res, err := callGraphQL[mondayItem](ctx, call.Client, call.BaseURL+"/v2", mondayHeader(cred.AccessToken), mondayCreateItem, vars)
	if err != nil {
		return types.ActionResult{Reason: failure("monday", err)}
	}

	return types.ActionResult{Success: true, ExternalID: res.CreateItem.ID}
}
