package service

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/nilotpaul/meetsync/types"
	"github.com/nilotpaul/meetsync/util"
	"golang.org/x/oauth2"
)

const salesforceAPIVersion = "v59.0"

// MetaInstanceURL is the credential metadata key holding the org's API host.
const MetaInstanceURL = "instance_url"

type salesforceUserinfo struct {
	UserID         string `json:"user_id"`
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Active         *bool  `json:"active"`
}

func SalesforceIdentify(ctx context.Context, call types.ProviderCall, token *oauth2.Token) (*types.AccountInfo, error) {
	var info salesforceUserinfo
	if err := callJSON(ctx, call.Client, apiRequest{
		URL:    call.BaseURL + "/services/oauth2/userinfo",
		Header: bearer(token.AccessToken),
	}, &info); err != nil {
		return nil, err
	}

	meta := map[string]string{"user_id": info.UserID}
	if instance, ok := token.Extra("instance_url").(string); ok && len(instance) != 0 {
		meta[MetaInstanceURL] = instance
	}

	return &types.AccountInfo{
		ID:       info.OrganizationID,
		Name:     info.Name,
		Email:    info.Email,
		Active:   info.Active == nil || *info.Active,
		Metadata: meta,
	}, nil
}

func SalesforceRevoke(ctx context.Context, call types.ProviderCall, cred *types.Credential) error {
	token := cred.RefreshToken
	if len(token) == 0 {
		token = cred.AccessToken
	}

	return callJSON(ctx, call.Client, apiRequest{
		Method: http.MethodPost,
		URL:    call.BaseURL + "/services/oauth2/revoke",
		Form:   url.Values{"token": {token}},
	}, nil)
}

type salesforceCreated struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
}

// SalesforceCreateTask creates a Task on the org the credential belongs to.
func SalesforceCreateTask(ctx context.Context, call types.ProviderCall, cred *types.Credential, in types.ActionInput) types.ActionResult {
	instance := util.TrimBaseURL(cred.Metadata[MetaInstanceURL])
	if len(instance) == 0 {
		return types.ActionFailed("salesforce credential has no instance url, reconnect the integration")
	}

	due := time.Now().AddDate(0, 0, 7)
	task := map[string]any{
		"Subject":      meetingTitle(in.Meeting, in.ConfigString("title")),
		"Description":  meetingSummary(in.Meeting),
		"Status":       "Not Started",
		"ActivityDate": due.Format("2006-01-02"),
	}
	if who := in.ConfigString("whoId"); len(who) != 0 {
		task["WhoId"] = who
	}
	if what := in.ConfigString("whatId"); len(what) != 0 {
		task["WhatId"] = what
	}

	var created salesforceCreated
	err := callJSON(ctx, call.Client, apiRequest{
		Method: http.MethodPost,
		URL:    instance + "/services/data/" + salesforceAPIVersion + "/sobjects/Task",
		Header: bearer(cred.AccessToken),
		Body:   task,
	}, &created)
	if err != nil {
		return types.ActionResult{Reason: failure("salesforce", err)}
	}
	if !created.Success {
		return types.ActionFailed("salesforce: task was not created")
	}

	return types.ActionResult{
		Success:    true,
		ExternalID: created.ID,
		URL:        instance + "/" + created.ID,
	}
}
