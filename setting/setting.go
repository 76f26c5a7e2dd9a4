package setting

import (
	"time"
)

type Provider = string

// supported providers
const (
	SlackProvider      Provider = "slack"
	NotionProvider     Provider = "notion"
	HubSpotProvider    Provider = "hubspot"
	LinearProvider     Provider = "linear"
	MondayProvider     Provider = "monday"
	SalesforceProvider Provider = "salesforce"
	AttioProvider      Provider = "attio"
	GoogleProvider     Provider = "google"
)

var Providers = []Provider{
	SlackProvider,
	NotionProvider,
	HubSpotProvider,
	LinearProvider,
	MondayProvider,
	SalesforceProvider,
	AttioProvider,
	GoogleProvider,
}

const (
	APIPrefix string = "/api/v1"

	// IdentityLocalKey is where the identity middleware stores the caller.
	IdentityLocalKey string = "identity"
	// FlowCookieSuffix is appended to the provider name for the flow cookie.
	FlowCookieSuffix string = "_oauth_flow"
)

const (
	StateMaxAge     = 15 * time.Minute
	StateNonceBytes = 16

	// Used when a provider omits expires_in.
	DefaultTokenTTL = 3600 * time.Second

	// Tokens expiring within this window are refreshed before use.
	RefreshThreshold = 5 * time.Minute

	ProviderRequestTimeout = 15 * time.Second
	StepTimeout            = 30 * time.Second

	TranscriptPollInterval    = 5 * time.Second
	TranscriptPollMaxAttempts = 60
)

// Redirect error codes put in the integrations landing URL.
const (
	ErrCodeOAuth           = "oauth_error"
	ErrCodeInvalidState    = "invalid_state"
	ErrCodeNoIdentity      = "no_identity"
	ErrCodeMissingCode     = "missing_code"
	ErrCodeTokenExchange   = "token_exchange_failed"
	ErrCodeServer          = "server_error"
	ErrCodeConfiguration   = "configuration_error"
	ErrCodeUnknownProvider = "unknown_provider"
)

func IsSupportedProvider(name string) bool {
	for _, p := range Providers {
		if p == name {
			return true
		}
	}
	return false
}
