package store

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/nilotpaul/meetsync/metrics"
	"github.com/nilotpaul/meetsync/setting"
	"github.com/nilotpaul/meetsync/types"
	"github.com/nilotpaul/meetsync/util"
	"golang.org/x/oauth2"
)

// Provider is the generic OAuth engine for one provider. Everything that
// differs between providers lives in its ProviderSpec.
type Provider struct {
	spec       types.ProviderSpec
	client     types.OAuthClientConfig
	config     *oauth2.Config
	httpClient *http.Client
}

func NewProvider(spec types.ProviderSpec, client types.OAuthClientConfig, httpClient *http.Client) *Provider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: setting.ProviderRequestTimeout}
	}
	if spec.StateMaxAge <= 0 {
		spec.StateMaxAge = setting.StateMaxAge
	}

	// Scopes stay out of the oauth2 config, the scope parameter is built
	// with the provider's own delimiter in GetAuthURL.
	config := &oauth2.Config{
		ClientID:     client.ClientID,
		ClientSecret: client.ClientSecret,
		RedirectURL:  client.RedirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:   spec.AuthURL,
			TokenURL:  spec.TokenURL,
			AuthStyle: spec.AuthStyle,
		},
	}

	return &Provider{
		spec:       spec,
		client:     client,
		config:     config,
		httpClient: httpClient,
	}
}

func (p *Provider) Name() string {
	return p.spec.Name
}

func (p *Provider) Spec() types.ProviderSpec {
	return p.spec
}

func (p *Provider) Configured() bool {
	return p.client.Complete()
}

func (p *Provider) RedirectURI() string {
	return p.client.RedirectURI
}

func (p *Provider) call() types.ProviderCall {
	return types.ProviderCall{
		Client:    p.httpClient,
		BaseURL:   p.spec.APIBaseURL,
		RevokeURL: p.spec.RevokeURL,
	}
}

func (p *Provider) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

// GetAuthURL returns the URL of the provider's consent page.
func (p *Provider) GetAuthURL(state string) (string, error) {
	if !p.Configured() {
		return "", fmt.Errorf("%s: %w", p.spec.Name, util.ErrMissingCredentials)
	}

	opts := make([]oauth2.AuthCodeOption, 0, len(p.spec.AuthParams)+1)
	if len(p.spec.Scopes) != 0 {
		opts = append(opts, oauth2.SetAuthURLParam("scope", util.JoinScopes(p.spec.Scopes, p.spec.ScopeDelimiter)))
	}
	for k, v := range p.spec.AuthParams {
		opts = append(opts, oauth2.SetAuthURLParam(k, v))
	}

	return p.config.AuthCodeURL(state, opts...), nil
}

// Exchange trades the authorization code for tokens. The redirect_uri sent is
// the configured string, unchanged from the one used in GetAuthURL.
func (p *Provider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if !p.Configured() {
		return nil, fmt.Errorf("%s: %w", p.spec.Name, util.ErrMissingCredentials)
	}
	defer metrics.ObserveCall(p.spec.Name, "exchange", time.Now())

	token, err := p.config.Exchange(p.oauthContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", util.ErrTokenExchange, err)
	}
	if len(token.AccessToken) == 0 {
		return nil, fmt.Errorf("%w: empty access token", util.ErrTokenExchange)
	}

	return token, nil
}

// RefreshToken runs the refresh_token grant. The returned token keeps the old
// refresh token when the provider does not rotate it.
func (p *Provider) RefreshToken(ctx context.Context, cred *types.Credential) (*oauth2.Token, error) {
	if len(cred.RefreshToken) == 0 {
		return nil, util.ErrNoRefreshToken
	}
	if !p.Configured() {
		return nil, fmt.Errorf("%s: %w", p.spec.Name, util.ErrMissingCredentials)
	}
	defer metrics.ObserveCall(p.spec.Name, "refresh", time.Now())

	// An empty access token forces the token source to refresh.
	tokenSrc := p.config.TokenSource(p.oauthContext(ctx), &oauth2.Token{
		RefreshToken: cred.RefreshToken,
	})
	newToken, err := tokenSrc.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", util.ErrRefreshFailed, err)
	}

	return newToken, nil
}

func (p *Provider) Identify(ctx context.Context, token *oauth2.Token) (*types.AccountInfo, error) {
	if p.spec.Identify == nil {
		return nil, fmt.Errorf("%s has no identity endpoint", p.spec.Name)
	}
	defer metrics.ObserveCall(p.spec.Name, "identify", time.Now())

	return p.spec.Identify(ctx, p.call(), token)
}

// Revoke is a no-op for providers without a revocation endpoint.
func (p *Provider) Revoke(ctx context.Context, cred *types.Credential) error {
	if p.spec.Revoke == nil {
		return nil
	}
	defer metrics.ObserveCall(p.spec.Name, "revoke", time.Now())

	return p.spec.Revoke(ctx, p.call(), cred)
}

func (p *Provider) Perform(ctx context.Context, cred *types.Credential, in types.ActionInput) types.ActionResult {
	if p.spec.Action == nil {
		return types.ActionFailed("%s has no action", p.spec.Name)
	}
	defer metrics.ObserveCall(p.spec.Name, "action", time.Now())

	return p.spec.Action(ctx, p.call(), cred, in)
}
