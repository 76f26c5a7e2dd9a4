package types

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

// Credential is the stored token pair plus metadata for one user and provider.
type Credential struct {
	UserID              string            `json:"user_id"`
	Provider            string            `json:"provider"`
	AccessToken         string            `json:"-"`
	RefreshToken        string            `json:"-"`
	TokenType           string            `json:"token_type,omitempty"`
	ExpiresAt           *time.Time        `json:"expires_at,omitempty"`
	Scopes              []string          `json:"scopes,omitempty"`
	ProviderAccountID   string            `json:"provider_account_id,omitempty"`
	ProviderAccountName string            `json:"provider_account_name,omitempty"`
	Metadata            map[string]string `json:"metadata,omitempty"`
	Connected           bool              `json:"connected"`
	ConnectedAt         *time.Time        `json:"connected_at,omitempty"`
	DisconnectedAt      *time.Time        `json:"disconnected_at,omitempty"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// IsExpired reports whether the access token is past its expiry. A credential
// without an expiry never expires.
func (c *Credential) IsExpired(now time.Time) bool {
	if c.ExpiresAt == nil || c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(*c.ExpiresAt)
}

// NeedsRefresh is IsExpired with a lead time.
func (c *Credential) NeedsRefresh(now time.Time, threshold time.Duration) bool {
	return c.IsExpired(now.Add(threshold))
}

func (c *Credential) Token() *oauth2.Token {
	t := &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
	}
	if c.ExpiresAt != nil {
		t.Expiry = *c.ExpiresAt
	}
	return t
}

func (c *Credential) Clone() *Credential {
	if c == nil {
		return nil
	}
	cp := *c
	if c.ExpiresAt != nil {
		t := *c.ExpiresAt
		cp.ExpiresAt = &t
	}
	if c.ConnectedAt != nil {
		t := *c.ConnectedAt
		cp.ConnectedAt = &t
	}
	if c.DisconnectedAt != nil {
		t := *c.DisconnectedAt
		cp.DisconnectedAt = &t
	}
	if c.Scopes != nil {
		cp.Scopes = append([]string(nil), c.Scopes...)
	}
	if c.Metadata != nil {
		cp.Metadata = make(map[string]string, len(c.Metadata))
		for k, v := range c.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}

// CredentialPatch is a partial update. Nil fields are left untouched by
// Upsert; Metadata keys are merged into the stored map.
type CredentialPatch struct {
	AccessToken         *string
	RefreshToken        *string
	TokenType           *string
	ExpiresAt           *time.Time
	Scopes              []string
	ProviderAccountID   *string
	ProviderAccountName *string
	Metadata            map[string]string
	Connected           *bool
	ConnectedAt         *time.Time
	// OnlyIfConnected makes Upsert fail with ErrNotConnected instead of
	// writing when the stored credential is missing or disconnected.
	OnlyIfConnected bool
}

// Apply merges the patch into c.
func (p CredentialPatch) Apply(c *Credential) {
	if p.AccessToken != nil {
		c.AccessToken = *p.AccessToken
	}
	if p.RefreshToken != nil {
		c.RefreshToken = *p.RefreshToken
	}
	if p.TokenType != nil {
		c.TokenType = *p.TokenType
	}
	if p.ExpiresAt != nil {
		t := *p.ExpiresAt
		c.ExpiresAt = &t
	}
	if p.Scopes != nil {
		c.Scopes = append([]string(nil), p.Scopes...)
	}
	if p.ProviderAccountID != nil {
		c.ProviderAccountID = *p.ProviderAccountID
	}
	if p.ProviderAccountName != nil {
		c.ProviderAccountName = *p.ProviderAccountName
	}
	if len(p.Metadata) > 0 {
		if c.Metadata == nil {
			c.Metadata = make(map[string]string, len(p.Metadata))
		}
		for k, v := range p.Metadata {
			c.Metadata[k] = v
		}
	}
	if p.Connected != nil {
		c.Connected = *p.Connected
		if *p.Connected {
			c.DisconnectedAt = nil
		}
	}
	if p.ConnectedAt != nil {
		t := *p.ConnectedAt
		c.ConnectedAt = &t
	}
}

type CredentialStore interface {
	Get(ctx context.Context, userID, provider string) (*Credential, error)
	List(ctx context.Context, userID string) ([]*Credential, error)
	Upsert(ctx context.Context, userID, provider string, patch CredentialPatch) error
	Clear(ctx context.Context, userID, provider string) error
}

// CredentialStatus is the secret-free view returned to the dashboard.
type CredentialStatus struct {
	Provider    string     `json:"provider"`
	Connected   bool       `json:"connected"`
	AccountID   string     `json:"account_id,omitempty"`
	AccountName string     `json:"account_name,omitempty"`
	Scopes      []string   `json:"scopes,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ConnectedAt *time.Time `json:"connected_at,omitempty"`
}
