package types

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// ProviderCall carries what a provider API call needs besides the token.
type ProviderCall struct {
	Client    *http.Client
	BaseURL   string
	RevokeURL string
}

// AccountInfo is the account/workspace metadata captured during enrichment
// and verification.
type AccountInfo struct {
	ID       string            `json:"id,omitempty"`
	Name     string            `json:"name,omitempty"`
	Email    string            `json:"email,omitempty"`
	Active   bool              `json:"active"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type IdentifyFunc func(ctx context.Context, call ProviderCall, token *oauth2.Token) (*AccountInfo, error)

type RevokeFunc func(ctx context.Context, call ProviderCall, cred *Credential) error

type ActionFunc func(ctx context.Context, call ProviderCall, cred *Credential, in ActionInput) ActionResult

// ProviderSpec is the per-provider configuration record the generic OAuth
// engine is parameterized with.
type ProviderSpec struct {
	Name      string
	AuthURL   string
	TokenURL  string
	AuthStyle oauth2.AuthStyle

	Scopes []string
	// ScopeDelimiter joins Scopes into the single scope parameter.
	ScopeDelimiter string
	// AuthParams are added to the authorization URL as is.
	AuthParams map[string]string

	// DefaultTTL applies when the token response has no expires_in.
	DefaultTTL  time.Duration
	StateMaxAge time.Duration
	// RequireFlowMatch rejects callbacks that have no stored flow state.
	RequireFlowMatch bool
	// IdentityFromProvider lets the enriched account email stand in for a
	// missing subject.
	IdentityFromProvider bool

	APIBaseURL string
	// RevokeURL is set for providers whose revocation endpoint is not on
	// APIBaseURL.
	RevokeURL string
	Identify  IdentifyFunc
	Revoke     RevokeFunc
	Action     ActionFunc
}

type OAuthClientConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

func (c OAuthClientConfig) Complete() bool {
	return len(c.ClientID) != 0 && len(c.ClientSecret) != 0 && len(c.RedirectURI) != 0
}

type OAuthProvider interface {
	Name() string
	Spec() ProviderSpec
	Configured() bool
	GetAuthURL(state string) (string, error)
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	RefreshToken(ctx context.Context, cred *Credential) (*oauth2.Token, error)
	Identify(ctx context.Context, token *oauth2.Token) (*AccountInfo, error)
	Revoke(ctx context.Context, cred *Credential) error
	Perform(ctx context.Context, cred *Credential, in ActionInput) ActionResult
}

type ProviderRegistry interface {
	Register(p OAuthProvider)
	GetProvider(providerName string) (OAuthProvider, error)
}
