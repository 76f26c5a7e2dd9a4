package service

import (
	"context"
	"net/http"

	"github.com/nilotpaul/meetsync/types"
	"golang.org/x/oauth2"
)

type attioSelf struct {
	Active        bool   `json:"active"`
	WorkspaceID   string `json:"workspace_id"`
	WorkspaceName string `json:"workspace_name"`
	WorkspaceSlug string `json:"workspace_slug"`
	Scope         string `json:"scope"`
}

// AttioIdentify uses the token self-introspection endpoint, which reports
// revoked tokens as active=false.
func AttioIdentify(ctx context.Context, call types.ProviderCall, token *oauth2.Token) (*types.AccountInfo, error) {
	var self attioSelf
	if err := callJSON(ctx, call.Client, apiRequest{
		URL:    call.BaseURL + "/v2/self",
		Header: bearer(token.AccessToken),
	}, &self); err != nil {
		return nil, err
	}

	return &types.AccountInfo{
		ID:     self.WorkspaceID,
		Name:   self.WorkspaceName,
		Active: self.Active,
		Metadata: map[string]string{
			"workspace_slug": self.WorkspaceSlug,
			"scope":          self.Scope,
		},
	}, nil
}

type attioNote struct {
	Data struct {
		ID struct {
			NoteID string `json:"note_id"`
		} `json:"id"`
	} `json:"data"`
}

// AttioCreateNote attaches a plaintext note to the configured record.
func AttioCreateNote(ctx context.Context, call types.ProviderCall, cred *types.Credential, in types.ActionInput) types.ActionResult {
	object := in.ConfigString("parentObject")
	record := in.ConfigString("parentRecordId")
	if len(object) == 0 || len(record) == 0 {
		return types.ActionFailed("attio step needs parentObject and parentRecordId")
	}

	var note attioNote
	err := callJSON(ctx, call.Client, apiRequest{
		Method: http.MethodPost,
		URL:    call.BaseURL + "/v2/notes",
		Header: bearer(cred.AccessToken),
		Body: map[string]any{
			"data": map[string]any{
				"parent_object":    object,
				"parent_record_id": record,
				"title":            meetingTitle(in.Meeting, in.ConfigString("title")),
				"format":           "plaintext",
				"content":          meetingSummary(in.Meeting),
			},
		},
	}, &note)
	if err != nil {
		return types.ActionResult{Reason: failure("attio", err)}
	}

	return types.ActionResult{Success: true, ExternalID: note.Data.ID.NoteID}
}
