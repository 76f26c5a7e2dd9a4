package service

import (
	"context"
	"net/http"

	"github.com/nilotpaul/meetsync/types"
	"golang.org/x/oauth2"
)

const (
	notionVersion = "2022-06-28"
	// Notion rejects rich text longer than this.
	notionTextLimit = 2000
)

func notionHeader(token string) map[string]string {
	h := bearer(token)
	h["Notion-Version"] = notionVersion
	return h
}

type notionUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Bot  struct {
		WorkspaceName string `json:"workspace_name"`
		Owner         struct {
			Type string `json:"type"`
		} `json:"owner"`
	} `json:"bot"`
}

// NotionIdentify reads the workspace fields the token response already
// carries and only calls users/me when they are absent.
func NotionIdentify(ctx context.Context, call types.ProviderCall, token *oauth2.Token) (*types.AccountInfo, error) {
	if id, ok := token.Extra("workspace_id").(string); ok && len(id) != 0 {
		name, _ := token.Extra("workspace_name").(string)
		botID, _ := token.Extra("bot_id").(string)
		return &types.AccountInfo{
			ID:       id,
			Name:     name,
			Active:   true,
			Metadata: map[string]string{"bot_id": botID},
		}, nil
	}

	var me notionUser
	if err := callJSON(ctx, call.Client, apiRequest{
		URL:    call.BaseURL + "/v1/users/me",
		Header: notionHeader(token.AccessToken),
	}, &me); err != nil {
		return nil, err
	}

	return &types.AccountInfo{
		ID:     me.ID,
		Name:   me.Bot.WorkspaceName,
		Active: true,
	}, nil
}

func notionText(s string) []map[string]any {
	parts := chunk(s, notionTextLimit)
	rt := make([]map[string]any, 0, len(parts))
	for _, p := range parts {
		rt = append(rt, map[string]any{"type": "text", "text": map[string]any{"content": p}})
	}
	return rt
}

func notionBlocks(m *types.MeetingArtifact) []map[string]any {
	var blocks []map[string]any
	if m == nil {
		return blocks
	}

	if len(m.Notes) != 0 {
		blocks = append(blocks, map[string]any{
			"object":    "block",
			"type":      "paragraph",
			"paragraph": map[string]any{"rich_text": notionText(m.Notes)},
		})
	}

	items := actionItems(m)
	if len(items) != 0 {
		blocks = append(blocks, map[string]any{
			"object":    "block",
			"type":      "heading_2",
			"heading_2": map[string]any{"rich_text": notionText("Action items")},
		})
		for _, it := range items {
			blocks = append(blocks, map[string]any{
				"object": "block",
				"type":   "to_do",
				"to_do": map[string]any{
					"rich_text": notionText(actionItemLine(it)),
					"checked":   it.Completed,
				},
			})
		}
	}

	return blocks
}

type notionPage struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// NotionCreatePage creates a page under a parent page or inside a database.
func NotionCreatePage(ctx context.Context, call types.ProviderCall, cred *types.Credential, in types.ActionInput) types.ActionResult {
	title := notionText(meetingTitle(in.Meeting, in.ConfigString("title")))

	var parent, properties map[string]any
	switch {
	case len(in.ConfigString("databaseId")) != 0:
		prop := in.ConfigString("titleProperty")
		if len(prop) == 0 {
			prop = "Name"
		}
		parent = map[string]any{"database_id": in.ConfigString("databaseId")}
		properties = map[string]any{prop: map[string]any{"title": title}}
	case len(in.ConfigString("parentPageId")) != 0:
		parent = map[string]any{"page_id": in.ConfigString("parentPageId")}
		properties = map[string]any{"title": map[string]any{"title": title}}
	default:
		return types.ActionFailed("notion step needs a databaseId or parentPageId")
	}

	var page notionPage
	err := callJSON(ctx, call.Client, apiRequest{
		Method: http.MethodPost,
		URL:    call.BaseURL + "/v1/pages",
		Header: notionHeader(cred.AccessToken),
		Body: map[string]any{
			"parent":     parent,
			"properties": properties,
			"children":   notionBlocks(in.Meeting),
		},
	}, &page)
	if err != nil {
		return types.ActionResult{Reason: failure("notion", err)}
	}

	return types.ActionResult{Success: true, ExternalID: page.ID, URL: page.URL}
}
