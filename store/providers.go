package store

import (
	"github.com/nilotpaul/meetsync/service"
	"github.com/nilotpaul/meetsync/setting"
	"github.com/nilotpaul/meetsync/types"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ProviderSpecs is the configuration table of every supported provider.
func ProviderSpecs() map[string]types.ProviderSpec {
	return map[string]types.ProviderSpec{
		setting.SlackProvider: {
			Name:           setting.SlackProvider,
			AuthURL:        "https://slack.com/oauth/v2/authorize",
			TokenURL:       "https://slack.com/api/oauth.v2.access",
			AuthStyle:      oauth2.AuthStyleInParams,
			Scopes:         []string{"chat:write", "channels:read", "groups:read"},
			ScopeDelimiter: ",",
			APIBaseURL:     "https://slack.com",
			Identify:       service.SlackIdentify,
			Revoke:         service.SlackRevoke,
			Action:         service.SlackPostMessage,
		},
		setting.NotionProvider: {
			Name:             setting.NotionProvider,
			AuthURL:          "https://api.notion.com/v1/oauth/authorize",
			TokenURL:         "https://api.notion.com/v1/oauth/token",
			AuthStyle:        oauth2.AuthStyleInHeader,
			AuthParams:       map[string]string{"owner": "user"},
			RequireFlowMatch: true,
			APIBaseURL:       "https://api.notion.com",
			Identify:         service.NotionIdentify,
			Action:           service.NotionCreatePage,
		},
		setting.HubSpotProvider: {
			Name:             setting.HubSpotProvider,
			AuthURL:          "https://app.hubspot.com/oauth/authorize",
			TokenURL:         "https://api.hubapi.com/oauth/v1/token",
			AuthStyle:        oauth2.AuthStyleInParams,
			Scopes:           []string{"oauth", "crm.objects.contacts.read", "crm.objects.contacts.write"},
			ScopeDelimiter:   " ",
			DefaultTTL:       setting.DefaultTokenTTL,
			RequireFlowMatch: true,
			APIBaseURL:       "https://api.hubapi.com",
			Identify:         service.HubSpotIdentify,
			Revoke:           service.HubSpotRevoke,
			Action:           service.HubSpotCreateNote,
		},
		setting.LinearProvider: {
			Name:           setting.LinearProvider,
			AuthURL:        "https://linear.app/oauth/authorize",
			TokenURL:       "https://api.linear.app/oauth/token",
			AuthStyle:      oauth2.AuthStyleInParams,
			Scopes:         []string{"read", "write", "issues:create"},
			ScopeDelimiter: ",",
			AuthParams:     map[string]string{"prompt": "consent"},
			DefaultTTL:     setting.DefaultTokenTTL,
			APIBaseURL:     "https://api.linear.app",
			Identify:       service.LinearIdentify,
			Revoke:         service.LinearRevoke,
			Action:         service.LinearCreateIssue,
		},
		setting.MondayProvider: {
			Name:           setting.MondayProvider,
			AuthURL:        "https://auth.monday.com/oauth2/authorize",
			TokenURL:       "https://auth.monday.com/oauth2/token",
			AuthStyle:      oauth2.AuthStyleInParams,
			Scopes:         []string{"me:read", "boards:read", "boards:write"},
			ScopeDelimiter: " ",
			APIBaseURL:     "https://api.monday.com",
			Identify:       service.MondayIdentify,
			Action:         service.MondayCreateItem,
		},
		setting.SalesforceProvider: {
			Name:           setting.SalesforceProvider,
			AuthURL:        "https://login.salesforce.com/services/oauth2/authorize",
			TokenURL:       "https://login.salesforce.com/services/oauth2/token",
			AuthStyle:      oauth2.AuthStyleInParams,
			Scopes:         []string{"api", "refresh_token"},
			ScopeDelimiter: " ",
			DefaultTTL:     setting.DefaultTokenTTL,
			APIBaseURL:     "https://login.salesforce.com",
			Identify:       service.SalesforceIdentify,
			Revoke:         service.SalesforceRevoke,
			Action:         service.SalesforceCreateTask,
		},
		setting.AttioProvider: {
			Name:       setting.AttioProvider,
			AuthURL:    "https://app.attio.com/authorize",
			TokenURL:   "https://app.attio.com/oauth/token",
			AuthStyle:  oauth2.AuthStyleInParams,
			APIBaseURL: "https://api.attio.com",
			Identify:   service.AttioIdentify,
			Action:     service.AttioCreateNote,
		},
		setting.GoogleProvider: {
			Name:      setting.GoogleProvider,
			AuthURL:   google.Endpoint.AuthURL,
			TokenURL:  google.Endpoint.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
			Scopes: []string{
				"openid",
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/calendar.events",
			},
			ScopeDelimiter: " ",
			AuthParams: map[string]string{
				"access_type": "offline",
				"prompt":      "consent",
			},
			DefaultTTL:           setting.DefaultTokenTTL,
			IdentityFromProvider: true,
			RevokeURL:            "https://oauth2.googleapis.com/revoke",
			Identify:             service.GoogleIdentify,
			Revoke:               service.GoogleRevoke,
			Action:               service.GoogleCreateEvent,
		},
	}
}
