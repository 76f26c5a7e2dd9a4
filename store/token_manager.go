package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nilotpaul/meetsync/metrics"
	"github.com/nilotpaul/meetsync/setting"
	"github.com/nilotpaul/meetsync/types"
	"github.com/nilotpaul/meetsync/util"
	"golang.org/x/sync/singleflight"
)

// Reasons reported by Verify.
const (
	ReasonNotConnected     = "not_connected"
	ReasonExpiredNoRefresh = "expired_no_refresh"
	ReasonExpired          = "expired"
	ReasonUnknownProvider  = "unknown_provider"
	ReasonRejected         = "provider_rejected"
	ReasonInactive         = "inactive"
)

// TokenManager verifies stored credentials and keeps them fresh.
type TokenManager struct {
	registry  *ProviderRegistry
	creds     types.CredentialStore
	threshold time.Duration
	now       func() time.Time
	logger    *slog.Logger
	// refreshes collapses concurrent refreshes of one credential. Providers
	// that rotate refresh tokens reject the second use.
	refreshes singleflight.Group
}

func NewTokenManager(registry *ProviderRegistry, creds types.CredentialStore, logger *slog.Logger) *TokenManager {
	if logger == nil {
		logger = slog.Default()
	}

	return &TokenManager{
		registry:  registry,
		creds:     creds,
		threshold: setting.RefreshThreshold,
		now:       time.Now,
		logger:    logger,
	}
}

// Verify makes one authenticated read against the provider with the stored
// access token. It never fails, problems are reported through the result.
func (m *TokenManager) Verify(ctx context.Context, cred *types.Credential) types.VerifyResult {
	if cred == nil || !cred.Connected || len(cred.AccessToken) == 0 {
		return types.VerifyResult{Reason: ReasonNotConnected}
	}
	if cred.IsExpired(m.now()) {
		if len(cred.RefreshToken) == 0 {
			return types.VerifyResult{Reason: ReasonExpiredNoRefresh}
		}
		return types.VerifyResult{Reason: ReasonExpired}
	}

	p, err := m.registry.GetProvider(cred.Provider)
	if err != nil {
		return types.VerifyResult{Reason: ReasonUnknownProvider}
	}

	account, err := p.Identify(ctx, cred.Token())
	if err != nil {
		m.logger.InfoContext(ctx, "token rejected by provider",
			"provider", cred.Provider,
			"user_id", cred.UserID,
			"error", err,
		)
		return types.VerifyResult{Reason: ReasonRejected}
	}
	if !account.Active {
		return types.VerifyResult{Reason: ReasonInactive, Account: account}
	}

	return types.VerifyResult{Valid: true, Account: account}
}

// VerifyAccessToken checks a raw access token that is not in the store.
func (m *TokenManager) VerifyAccessToken(ctx context.Context, providerName, accessToken string) types.VerifyResult {
	return m.Verify(ctx, &types.Credential{
		Provider:    providerName,
		AccessToken: accessToken,
		Connected:   true,
	})
}

// Refresh runs the refresh grant and stores the new access token. The stored
// refresh token only changes when the provider rotated it. On failure the
// stored credential is left untouched.
func (m *TokenManager) Refresh(ctx context.Context, cred *types.Credential) (*types.Credential, error) {
	if len(cred.RefreshToken) == 0 {
		return nil, fmt.Errorf("%w: %w", util.ErrRefreshFailed, util.ErrNoRefreshToken)
	}

	p, err := m.registry.GetProvider(cred.Provider)
	if err != nil {
		return nil, err
	}

	token, err := p.RefreshToken(ctx, cred)
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues(cred.Provider, "error").Inc()
		m.logger.WarnContext(ctx, "token refresh failed",
			"provider", cred.Provider,
			"user_id", cred.UserID,
			"error", err,
		)
		if !errors.Is(err, util.ErrRefreshFailed) {
			err = fmt.Errorf("%w: %w", util.ErrRefreshFailed, err)
		}
		return nil, err
	}

	// A disconnect that lands while the grant is in flight wins.
	patch := types.CredentialPatch{
		AccessToken:     util.Ptr(token.AccessToken),
		TokenType:       util.Ptr(token.Type()),
		ExpiresAt:       expiresAt(p, token, m.now()),
		OnlyIfConnected: true,
	}
	if len(token.RefreshToken) != 0 && token.RefreshToken != cred.RefreshToken {
		patch.RefreshToken = util.Ptr(token.RefreshToken)
	}

	if err := m.creds.Upsert(ctx, cred.UserID, cred.Provider, patch); err != nil {
		return nil, err
	}
	metrics.TokenRefreshes.WithLabelValues(cred.Provider, "success").Inc()

	updated := cred.Clone()
	patch.Apply(updated)

	return updated, nil
}

// EnsureUsable returns the user's credential for provider, refreshing it
// first when it is about to expire.
func (m *TokenManager) EnsureUsable(ctx context.Context, userID, providerName string) (*types.Credential, error) {
	cred, err := m.creds.Get(ctx, userID, providerName)
	if err != nil {
		if errors.Is(err, util.ErrCredentialNotFound) {
			return nil, util.ErrNotConnected
		}
		return nil, err
	}
	if !cred.Connected || len(cred.AccessToken) == 0 {
		return nil, util.ErrNotConnected
	}

	now := m.now()
	if !cred.NeedsRefresh(now, m.threshold) {
		return cred, nil
	}
	if len(cred.RefreshToken) == 0 {
		if cred.IsExpired(now) {
			return nil, fmt.Errorf("%w: %w", util.ErrRefreshFailed, util.ErrNoRefreshToken)
		}
		return cred, nil
	}

	v, err, _ := m.refreshes.Do(credentialKey(userID, providerName), func() (any, error) {
		// another caller may have finished a refresh since the read above
		latest, err := m.creds.Get(ctx, userID, providerName)
		if err != nil {
			if errors.Is(err, util.ErrCredentialNotFound) {
				return nil, util.ErrNotConnected
			}
			return nil, err
		}
		if !latest.Connected || len(latest.AccessToken) == 0 {
			return nil, util.ErrNotConnected
		}
		if !latest.NeedsRefresh(m.now(), m.threshold) {
			return latest, nil
		}

		return m.Refresh(ctx, latest)
	})
	if err != nil {
		return nil, err
	}

	return v.(*types.Credential).Clone(), nil
}
