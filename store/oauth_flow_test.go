package store

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/nilotpaul/meetsync/setting"
	"github.com/nilotpaul/meetsync/types"
	"github.com/nilotpaul/meetsync/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const testStateSecret = "test-state-secret"

var okTokenBody = map[string]any{
	"access_token": "tok1",
	"token_type":   "bearer",
	"expires_in":   3600,
	"scope":        "chat:write,channels:read",
}

func newTestController(creds types.CredentialStore, providers ...types.OAuthProvider) *FlowController {
	return NewFlowController(FlowControllerConfig{
		Registry:        testRegistry(providers...),
		Credentials:     creds,
		Codec:           util.NewStateCodec(testStateSecret, 0),
		IntegrationsURL: "https://app.example.com/integrations",
	})
}

func stateFromURL(t *testing.T, authURL string) string {
	u, err := url.Parse(authURL)
	require.NoError(t, err)
	state := u.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func redirectQuery(t *testing.T, res types.RedirectResult) url.Values {
	u, err := url.Parse(res.URL)
	require.NoError(t, err)
	return u.Query()
}

func TestFlowController_Authorize(t *testing.T) {
	ts := newTokenServer(t, http.StatusOK, okTokenBody)
	fc := newTestController(NewMemoryCredentialStore(), testProvider(testSpec("slack", ts.URL)))

	res, err := fc.Authorize(context.Background(), "slack", "alice@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, res.FlowID)

	u, err := url.Parse(res.URL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "https://app.example.com/api/v1/slack/callback", q.Get("redirect_uri"))
	assert.NotEmpty(t, q.Get("state"))
	assert.Equal(t, 1, fc.flows.Len())
	assert.Equal(t, setting.StateMaxAge, res.MaxAge)

	// A provider with a shorter state window carries it to the flow cookie.
	short := testSpec("linear", ts.URL)
	short.StateMaxAge = 2 * time.Minute
	fc = newTestController(NewMemoryCredentialStore(), testProvider(short))
	res, err = fc.Authorize(context.Background(), "linear", "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, res.MaxAge)
	flow, err := fc.flows.Take(res.FlowID)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(2*time.Minute), flow.ExpiresAt, 5*time.Second)

	// No identity.
	_, err = fc.Authorize(context.Background(), "slack", "  ")
	assert.ErrorIs(t, err, util.ErrMissingIdentity)

	// Unknown provider.
	_, err = fc.Authorize(context.Background(), "dropbox", "alice@example.com")
	assert.ErrorIs(t, err, util.ErrProviderNotFound)

	// Provider without client credentials.
	unconfigured := NewProvider(testSpec("notion", ts.URL), types.OAuthClientConfig{}, nil)
	fc = newTestController(NewMemoryCredentialStore(), unconfigured)
	_, err = fc.Authorize(context.Background(), "notion", "alice@example.com")
	assert.ErrorIs(t, err, util.ErrMissingCredentials)
}

func TestFlowController_HandleCallback_Success(t *testing.T) {
	ts := newTokenServer(t, http.StatusOK, okTokenBody)
	creds := NewMemoryCredentialStore()
	fc := newTestController(creds, testProvider(testSpec("slack", ts.URL)))
	ctx := context.Background()

	auth, err := fc.Authorize(ctx, "slack", "alice@example.com")
	require.NoError(t, err)

	res := fc.HandleCallback(ctx, "slack", types.CallbackQuery{
		Code:   "abc",
		State:  stateFromURL(t, auth.URL),
		FlowID: auth.FlowID,
	})
	assert.True(t, res.Success)
	assert.Equal(t, "alice@example.com", res.UserID)
	q := redirectQuery(t, res)
	assert.Equal(t, "true", q.Get("success"))
	assert.Equal(t, "slack", q.Get("provider"))
	assert.Empty(t, q.Get("error"))

	cred, err := creds.Get(ctx, "alice@example.com", "slack")
	require.NoError(t, err)
	assert.Equal(t, "tok1", cred.AccessToken)
	assert.True(t, cred.Connected)
	assert.Equal(t, "T123", cred.ProviderAccountID)
	assert.Equal(t, "Acme", cred.ProviderAccountName)
	assert.Equal(t, []string{"chat:write", "channels:read"}, cred.Scopes)
	require.NotNil(t, cred.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *cred.ExpiresAt, 5*time.Second)

	// The flow record is one-shot.
	assert.Equal(t, 0, fc.flows.Len())
}

func TestFlowController_HandleCallback_ProviderError(t *testing.T) {
	ts := newTokenServer(t, http.StatusOK, okTokenBody)
	creds := NewMemoryCredentialStore()
	fc := newTestController(creds, testProvider(testSpec("slack", ts.URL)))
	ctx := context.Background()

	auth, err := fc.Authorize(ctx, "slack", "alice@example.com")
	require.NoError(t, err)

	res := fc.HandleCallback(ctx, "slack", types.CallbackQuery{
		Code:   "abc",
		State:  stateFromURL(t, auth.URL),
		Error:  "access_denied",
		FlowID: auth.FlowID,
	})
	assert.False(t, res.Success)
	assert.Equal(t, setting.ErrCodeOAuth, redirectQuery(t, res).Get("error"))
	assert.Equal(t, 0, ts.calls())

	_, err = creds.Get(ctx, "alice@example.com", "slack")
	assert.ErrorIs(t, err, util.ErrCredentialNotFound)
}

func TestFlowController_HandleCallback_StateMismatch(t *testing.T) {
	ts := newTokenServer(t, http.StatusOK, okTokenBody)
	fc := newTestController(NewMemoryCredentialStore(), testProvider(testSpec("slack", ts.URL)))
	ctx := context.Background()

	first, err := fc.Authorize(ctx, "slack", "alice@example.com")
	require.NoError(t, err)
	second, err := fc.Authorize(ctx, "slack", "mallory@example.com")
	require.NoError(t, err)

	// A valid state that is not the one stored for this flow.
	res := fc.HandleCallback(ctx, "slack", types.CallbackQuery{
		Code:   "abc",
		State:  stateFromURL(t, second.URL),
		FlowID: first.FlowID,
	})
	assert.Equal(t, setting.ErrCodeInvalidState, res.Code)
	assert.Equal(t, 0, ts.calls())
}

func TestFlowController_HandleCallback_InvalidState(t *testing.T) {
	ts := newTokenServer(t, http.StatusOK, okTokenBody)
	fc := newTestController(NewMemoryCredentialStore(), testProvider(testSpec("slack", ts.URL)))
	ctx := context.Background()

	expired, err := util.NewStateCodec(testStateSecret, 0).
		WithClock(func() time.Time { return time.Now().Add(-time.Hour) }).
		Encode("alice@example.com", nil)
	require.NoError(t, err)

	forged, err := util.NewStateCodec("another-secret", 0).Encode("alice@example.com", nil)
	require.NoError(t, err)

	for name, state := range map[string]string{
		"expired":   expired,
		"forged":    forged,
		"malformed": "not-a-state",
		"empty":     "",
	} {
		res := fc.HandleCallback(ctx, "slack", types.CallbackQuery{Code: "abc", State: state})
		assert.Equal(t, setting.ErrCodeInvalidState, res.Code, name)
	}
	assert.Equal(t, 0, ts.calls())
}

func TestFlowController_HandleCallback_StateForAnotherProvider(t *testing.T) {
	ts := newTokenServer(t, http.StatusOK, okTokenBody)
	fc := newTestController(
		NewMemoryCredentialStore(),
		testProvider(testSpec("slack", ts.URL)),
		testProvider(testSpec("linear", ts.URL)),
	)
	ctx := context.Background()

	auth, err := fc.Authorize(ctx, "linear", "alice@example.com")
	require.NoError(t, err)

	res := fc.HandleCallback(ctx, "slack", types.CallbackQuery{Code: "abc", State: stateFromURL(t, auth.URL)})
	assert.Equal(t, setting.ErrCodeInvalidState, res.Code)
	assert.Equal(t, 0, ts.calls())
}

func TestFlowController_HandleCallback_RequireFlowMatch(t *testing.T) {
	ts := newTokenServer(t, http.StatusOK, okTokenBody)
	spec := testSpec("notion", ts.URL)
	spec.RequireFlowMatch = true
	fc := newTestController(NewMemoryCredentialStore(), testProvider(spec))
	ctx := context.Background()

	auth, err := fc.Authorize(ctx, "notion", "alice@example.com")
	require.NoError(t, err)

	// Valid state but the flow cookie is gone.
	res := fc.HandleCallback(ctx, "notion", types.CallbackQuery{Code: "abc", State: stateFromURL(t, auth.URL)})
	assert.Equal(t, setting.ErrCodeInvalidState, res.Code)
	assert.Equal(t, 0, ts.calls())
}

func TestFlowController_HandleCallback_ExpiredFlow(t *testing.T) {
	ts := newTokenServer(t, http.StatusOK, okTokenBody)
	fc := newTestController(NewMemoryCredentialStore(), testProvider(testSpec("slack", ts.URL)))
	ctx := context.Background()

	auth, err := fc.Authorize(ctx, "slack", "alice@example.com")
	require.NoError(t, err)

	fc.flows.now = func() time.Time { return time.Now().Add(time.Hour) }
	res := fc.HandleCallback(ctx, "slack", types.CallbackQuery{
		Code:   "abc",
		State:  stateFromURL(t, auth.URL),
		FlowID: auth.FlowID,
	})
	assert.Equal(t, setting.ErrCodeInvalidState, res.Code)
}

func TestFlowController_HandleCallback_MissingCode(t *testing.T) {
	ts := newTokenServer(t, http.StatusOK, okTokenBody)
	fc := newTestController(NewMemoryCredentialStore(), testProvider(testSpec("slack", ts.URL)))
	ctx := context.Background()

	auth, err := fc.Authorize(ctx, "slack", "alice@example.com")
	require.NoError(t, err)

	res := fc.HandleCallback(ctx, "slack", types.CallbackQuery{State: stateFromURL(t, auth.URL), FlowID: auth.FlowID})
	assert.Equal(t, setting.ErrCodeMissingCode, res.Code)
	assert.Equal(t, 0, ts.calls())
}

func TestFlowController_HandleCallback_NoIdentity(t *testing.T) {
	ts := newTokenServer(t, http.StatusOK, okTokenBody)
	fc := newTestController(NewMemoryCredentialStore(), testProvider(testSpec("slack", ts.URL)))

	state, err := fc.codec.Encode("", nil)
	require.NoError(t, err)

	res := fc.HandleCallback(context.Background(), "slack", types.CallbackQuery{Code: "abc", State: state})
	assert.Equal(t, setting.ErrCodeNoIdentity, res.Code)
	assert.Equal(t, 0, ts.calls())
}

func TestFlowController_HandleCallback_IdentityFromProvider(t *testing.T) {
	ts := newTokenServer(t, http.StatusOK, okTokenBody)
	spec := testSpec("google", ts.URL)
	spec.IdentityFromProvider = true
	spec.Identify = func(context.Context, types.ProviderCall, *oauth2.Token) (*types.AccountInfo, error) {
		return &types.AccountInfo{ID: "g-1", Email: "bob@example.com", Active: true}, nil
	}
	creds := NewMemoryCredentialStore()
	fc := newTestController(creds, testProvider(spec))

	state, err := fc.codec.Encode("", nil)
	require.NoError(t, err)

	res := fc.HandleCallback(context.Background(), "google", types.CallbackQuery{Code: "abc", State: state})
	require.True(t, res.Success)
	assert.Equal(t, "bob@example.com", res.UserID)

	cred, err := creds.Get(context.Background(), "bob@example.com", "google")
	require.NoError(t, err)
	assert.Equal(t, "tok1", cred.AccessToken)
}

func TestFlowController_HandleCallback_TokenExchangeFailed(t *testing.T) {
	ts := newTokenServer(t, http.StatusBadRequest, map[string]any{
		"error":             "invalid_grant",
		"error_description": "code already used",
	})
	creds := NewMemoryCredentialStore()
	fc := newTestController(creds, testProvider(testSpec("slack", ts.URL)))
	ctx := context.Background()

	auth, err := fc.Authorize(ctx, "slack", "alice@example.com")
	require.NoError(t, err)

	res := fc.HandleCallback(ctx, "slack", types.CallbackQuery{
		Code:   "abc",
		State:  stateFromURL(t, auth.URL),
		FlowID: auth.FlowID,
	})
	q := redirectQuery(t, res)
	assert.Equal(t, setting.ErrCodeTokenExchange, q.Get("error"))
	// The provider's error body never reaches the redirect.
	assert.NotContains(t, res.URL, "already")
	assert.Equal(t, 1, ts.calls())

	_, err = creds.Get(ctx, "alice@example.com", "slack")
	assert.ErrorIs(t, err, util.ErrCredentialNotFound)
}

// cancelAwareStore fails writes made with a done context.
type cancelAwareStore struct {
	*MemoryCredentialStore
}

func (s cancelAwareStore) Upsert(ctx context.Context, userID, provider string, patch types.CredentialPatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.MemoryCredentialStore.Upsert(ctx, userID, provider, patch)
}

func TestFlowController_HandleCallback_EnrichmentFailsAndRequestCancelled(t *testing.T) {
	ts := newTokenServer(t, http.StatusOK, okTokenBody)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	spec := testSpec("slack", ts.URL)
	spec.Identify = func(context.Context, types.ProviderCall, *oauth2.Token) (*types.AccountInfo, error) {
		// The client goes away right after the exchange.
		cancel()
		return nil, errors.New("workspace lookup failed")
	}
	creds := cancelAwareStore{NewMemoryCredentialStore()}
	fc := newTestController(creds, testProvider(spec))

	auth, err := fc.Authorize(ctx, "slack", "alice@example.com")
	require.NoError(t, err)

	res := fc.HandleCallback(ctx, "slack", types.CallbackQuery{
		Code:   "abc",
		State:  stateFromURL(t, auth.URL),
		FlowID: auth.FlowID,
	})
	require.True(t, res.Success)

	cred, err := creds.Get(context.Background(), "alice@example.com", "slack")
	require.NoError(t, err)
	assert.Equal(t, "tok1", cred.AccessToken)
	assert.Equal(t, unknownAccountID, cred.ProviderAccountID)
	assert.Equal(t, unknownAccountName, cred.ProviderAccountName)
}

func TestFlowController_HandleCallback_UnknownAndUnconfigured(t *testing.T) {
	ts := newTokenServer(t, http.StatusOK, okTokenBody)
	unconfigured := NewProvider(testSpec("monday", ts.URL), types.OAuthClientConfig{}, nil)
	fc := newTestController(NewMemoryCredentialStore(), unconfigured)

	res := fc.HandleCallback(context.Background(), "dropbox", types.CallbackQuery{Code: "abc", State: "x"})
	assert.Equal(t, setting.ErrCodeUnknownProvider, res.Code)

	res = fc.HandleCallback(context.Background(), "monday", types.CallbackQuery{Code: "abc", State: "x"})
	assert.Equal(t, setting.ErrCodeConfiguration, res.Code)
	assert.Equal(t, 0, ts.calls())
}

func TestFlowController_HandleCallback_DefaultTTL(t *testing.T) {
	ts := newTokenServer(t, http.StatusOK, map[string]any{
		"access_token":  "tok1",
		"refresh_token": "r1",
		"instance_url":  "https://acme.my.salesforce.com",
	})
	creds := NewMemoryCredentialStore()
	fc := newTestController(creds, testProvider(testSpec("salesforce", ts.URL)))
	ctx := context.Background()

	auth, err := fc.Authorize(ctx, "salesforce", "alice@example.com")
	require.NoError(t, err)

	res := fc.HandleCallback(ctx, "salesforce", types.CallbackQuery{
		Code:   "abc",
		State:  stateFromURL(t, auth.URL),
		FlowID: auth.FlowID,
	})
	require.True(t, res.Success)

	cred, err := creds.Get(ctx, "alice@example.com", "salesforce")
	require.NoError(t, err)
	assert.Equal(t, "r1", cred.RefreshToken)
	require.NotNil(t, cred.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(setting.DefaultTokenTTL), *cred.ExpiresAt, 5*time.Second)
	assert.Equal(t, "https://acme.my.salesforce.com", cred.Metadata["instance_url"])
	// No scope in the response, the requested ones are kept.
	assert.Equal(t, []string{"chat:write", "channels:read"}, cred.Scopes)
}
