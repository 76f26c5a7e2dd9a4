package store

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nilotpaul/meetsync/metrics"
	"github.com/nilotpaul/meetsync/service"
	"github.com/nilotpaul/meetsync/setting"
	"github.com/nilotpaul/meetsync/types"
	"github.com/nilotpaul/meetsync/util"
	"golang.org/x/oauth2"
)

// Flow phases, logged as the callback advances.
const (
	phaseInit      = "INIT"
	phaseReceived  = "CALLBACK_RECEIVED"
	phaseExchanged = "TOKEN_EXCHANGED"
	phaseEnriched  = "ENRICHED"
	phaseStored    = "STORED"
	phaseDone      = "DONE"
	phaseError     = "ERROR"
)

// Placeholders stored when the post-exchange account lookup fails.
const (
	unknownAccountID   = "unknown"
	unknownAccountName = "Unknown workspace"
)

// FlowController runs the authorization-code flow for every registered
// provider.
type FlowController struct {
	registry        *ProviderRegistry
	creds           types.CredentialStore
	flows           *FlowStore
	codec           *util.StateCodec
	integrationsURL string
	now             func() time.Time
	logger          *slog.Logger
}

type FlowControllerConfig struct {
	Registry        *ProviderRegistry
	Credentials     types.CredentialStore
	Flows           *FlowStore
	Codec           *util.StateCodec
	IntegrationsURL string
	Logger          *slog.Logger
}

func NewFlowController(cfg FlowControllerConfig) *FlowController {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Flows == nil {
		cfg.Flows = NewFlowStore(cfg.Logger)
	}
	if len(cfg.IntegrationsURL) == 0 {
		cfg.IntegrationsURL = "/integrations"
	}

	return &FlowController{
		registry:        cfg.Registry,
		creds:           cfg.Credentials,
		flows:           cfg.Flows,
		codec:           cfg.Codec,
		integrationsURL: cfg.IntegrationsURL,
		now:             time.Now,
		logger:          cfg.Logger,
	}
}

// Authorize starts a flow for identity and returns the consent URL along with
// the id of the stored flow record.
func (f *FlowController) Authorize(ctx context.Context, providerName, identity string) (*types.AuthorizeResult, error) {
	identity = strings.TrimSpace(identity)
	if len(identity) == 0 {
		return nil, util.ErrMissingIdentity
	}

	p, err := f.registry.GetProvider(providerName)
	if err != nil {
		return nil, err
	}
	if !p.Configured() {
		return nil, util.ErrMissingCredentials
	}

	state, err := f.codec.Encode(identity, map[string]string{"provider": providerName})
	if err != nil {
		return nil, err
	}

	url, err := p.GetAuthURL(state)
	if err != nil {
		return nil, err
	}

	maxAge := p.Spec().StateMaxAge
	if maxAge <= 0 {
		maxAge = f.codec.MaxAge()
	}
	flowID := uuid.NewString()
	f.flows.Save(types.FlowState{
		ID:        flowID,
		Provider:  providerName,
		State:     state,
		SubjectID: identity,
		ExpiresAt: f.now().Add(maxAge),
	})

	f.logger.InfoContext(ctx, "oauth flow started",
		"provider", providerName,
		"phase", phaseInit,
		"flow_id", flowID,
	)

	return &types.AuthorizeResult{URL: url, FlowID: flowID, MaxAge: maxAge}, nil
}

// HandleCallback finishes a flow. It never returns an error: every outcome is
// a redirect to the integrations page carrying either success or a code.
func (f *FlowController) HandleCallback(ctx context.Context, providerName string, q types.CallbackQuery) types.RedirectResult {
	log := f.logger.With("provider", providerName)
	log.DebugContext(ctx, "oauth callback", "phase", phaseReceived)

	// The flow record is one-shot, it is consumed whatever the outcome.
	var flow *types.FlowState
	var flowErr error
	if len(q.FlowID) != 0 {
		flow, flowErr = f.flows.Take(q.FlowID)
		if flow != nil && flow.Provider != providerName {
			flow, flowErr = nil, util.ErrStateMismatch
		}
	}

	if len(q.Error) != 0 {
		log.WarnContext(ctx, "provider returned an error",
			"phase", phaseError,
			"error", q.Error,
			"error_description", q.ErrorDescription,
		)
		return f.fail(providerName, setting.ErrCodeOAuth, q.Error)
	}

	p, err := f.registry.GetProvider(providerName)
	if err != nil {
		return f.failErr(ctx, log, providerName, err)
	}
	if !p.Configured() {
		return f.failErr(ctx, log, providerName, util.ErrMissingCredentials)
	}
	spec := p.Spec()

	st, err := f.checkState(spec, q.State, flow, flowErr)
	if err != nil {
		return f.failErr(ctx, log, providerName, err)
	}

	identity := st.SubjectID
	if len(identity) == 0 && flow != nil {
		identity = flow.SubjectID
	}
	if len(identity) == 0 && !spec.IdentityFromProvider {
		return f.failErr(ctx, log, providerName, util.ErrMissingIdentity)
	}

	if len(q.Code) == 0 {
		return f.failErr(ctx, log, providerName, util.ErrMissingCode)
	}

	token, err := p.Exchange(ctx, q.Code)
	if err != nil {
		return f.failErr(ctx, log, providerName, err)
	}
	log.DebugContext(ctx, "token exchanged", "phase", phaseExchanged)

	account, err := p.Identify(ctx, token)
	if err != nil {
		log.WarnContext(ctx, "account lookup failed, storing placeholders", "error", err)
		account = &types.AccountInfo{ID: unknownAccountID, Name: unknownAccountName}
	} else {
		log.DebugContext(ctx, "account enriched", "phase", phaseEnriched, "account_id", account.ID)
	}

	if len(identity) == 0 {
		identity = account.Email
	}
	if len(identity) == 0 {
		return f.failErr(ctx, log, providerName, util.ErrMissingIdentity)
	}

	patch := f.credentialPatch(p, token, account)

	// The exchange already consumed the code, the write has to outlive the
	// request.
	if err := f.creds.Upsert(context.WithoutCancel(ctx), identity, providerName, patch); err != nil {
		return f.failErr(ctx, log, providerName, err)
	}
	log.InfoContext(ctx, "integration connected",
		"phase", phaseStored,
		"user_id", identity,
		"account_id", account.ID,
	)

	metrics.OAuthCallbacks.WithLabelValues(providerName, "success").Inc()
	log.DebugContext(ctx, "oauth flow finished", "phase", phaseDone)

	return types.RedirectResult{
		URL: util.IntegrationsRedirect(f.integrationsURL, map[string]string{
			"success":  "true",
			"provider": providerName,
		}),
		Success:  true,
		Provider: providerName,
		UserID:   identity,
	}
}

// checkState decodes the state and compares it with the stored flow record.
func (f *FlowController) checkState(spec types.ProviderSpec, state string, flow *types.FlowState, flowErr error) (*types.StateToken, error) {
	if flowErr != nil && !errors.Is(flowErr, util.ErrFlowNotFound) {
		return nil, flowErr
	}
	if flow == nil && spec.RequireFlowMatch {
		return nil, util.ErrFlowNotFound
	}

	st, err := f.codec.DecodeWithMaxAge(state, spec.StateMaxAge)
	if err != nil {
		return nil, err
	}

	if flow != nil && flow.State != state {
		return nil, util.ErrStateMismatch
	}
	if bound, ok := st.Extra["provider"]; ok && bound != spec.Name {
		return nil, util.ErrStateMismatch
	}

	return st, nil
}

func (f *FlowController) credentialPatch(p types.OAuthProvider, token *oauth2.Token, account *types.AccountInfo) types.CredentialPatch {
	spec := p.Spec()
	now := f.now()

	patch := types.CredentialPatch{
		AccessToken:         util.Ptr(token.AccessToken),
		TokenType:           util.Ptr(token.Type()),
		Scopes:              grantedScopes(token, spec),
		ProviderAccountID:   util.Ptr(account.ID),
		ProviderAccountName: util.Ptr(account.Name),
		Metadata:            make(map[string]string, len(account.Metadata)+1),
		Connected:           util.Ptr(true),
		ConnectedAt:         &now,
	}
	if len(token.RefreshToken) != 0 {
		patch.RefreshToken = util.Ptr(token.RefreshToken)
	}
	if exp := expiresAt(p, token, now); exp != nil {
		patch.ExpiresAt = exp
	}
	for k, v := range account.Metadata {
		patch.Metadata[k] = v
	}
	// Salesforce puts the org's API host on the token response.
	if instance, ok := token.Extra(service.MetaInstanceURL).(string); ok && len(instance) != 0 {
		patch.Metadata[service.MetaInstanceURL] = instance
	}

	return patch
}

// expiresAt falls back to the provider's default TTL when the response had no
// expires_in. Nil means the token does not expire.
func expiresAt(p types.OAuthProvider, token *oauth2.Token, now time.Time) *time.Time {
	if !token.Expiry.IsZero() {
		t := token.Expiry
		return &t
	}
	if ttl := p.Spec().DefaultTTL; ttl > 0 {
		t := now.Add(ttl)
		return &t
	}
	return nil
}

// grantedScopes reads the scope echoed by the token response, falling back to
// the requested scopes.
func grantedScopes(token *oauth2.Token, spec types.ProviderSpec) []string {
	raw, _ := token.Extra("scope").(string)
	if len(raw) == 0 {
		return append([]string{}, spec.Scopes...)
	}

	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' '
	})
}

func (f *FlowController) failErr(ctx context.Context, log *slog.Logger, providerName string, err error) types.RedirectResult {
	code := util.RedirectCode(err)
	log.ErrorContext(ctx, "oauth callback failed",
		"phase", phaseError,
		"code", code,
		"error", err,
	)

	return f.fail(providerName, code, "")
}

func (f *FlowController) fail(providerName, code, message string) types.RedirectResult {
	label := providerName
	if _, err := f.registry.GetProvider(providerName); err != nil {
		label = "unknown"
	}
	metrics.OAuthCallbacks.WithLabelValues(label, code).Inc()

	return types.RedirectResult{
		URL: util.IntegrationsRedirect(f.integrationsURL, map[string]string{
			"error":    code,
			"provider": providerName,
			"message":  message,
		}),
		Code:     code,
		Provider: providerName,
	}
}
