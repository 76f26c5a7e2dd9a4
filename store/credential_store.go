package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nilotpaul/meetsync/service"
	"github.com/nilotpaul/meetsync/types"
	"github.com/nilotpaul/meetsync/util"
)

var errConnectedWithoutToken = errors.New("a connected credential needs an access token")

// checkCredential enforces that a connected credential always has an access
// token after the patch is applied.
func checkCredential(c *types.Credential) error {
	if c.Connected && len(c.AccessToken) == 0 {
		return errConnectedWithoutToken
	}
	return nil
}

// MemoryCredentialStore keeps credentials in process. Used in tests and when
// no database is configured.
type MemoryCredentialStore struct {
	creds map[string]*types.Credential
	mu    sync.RWMutex
	now   func() time.Time
}

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{
		creds: make(map[string]*types.Credential),
		now:   time.Now,
	}
}

func credentialKey(userID, provider string) string {
	return userID + "\x00" + provider
}

func (s *MemoryCredentialStore) Get(_ context.Context, userID, provider string) (*types.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.creds[credentialKey(userID, provider)]
	if !ok {
		return nil, util.ErrCredentialNotFound
	}

	return c.Clone(), nil
}

func (s *MemoryCredentialStore) List(_ context.Context, userID string) ([]*types.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var list []*types.Credential
	for _, c := range s.creds {
		if c.UserID == userID {
			list = append(list, c.Clone())
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Provider < list[j].Provider
	})

	return list, nil
}

func (s *MemoryCredentialStore) Upsert(_ context.Context, userID, provider string, patch types.CredentialPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := credentialKey(userID, provider)
	next := &types.Credential{UserID: userID, Provider: provider}
	existing, ok := s.creds[key]
	if patch.OnlyIfConnected && (!ok || !existing.Connected) {
		return util.ErrNotConnected
	}
	if ok {
		next = existing.Clone()
	}
	patch.Apply(next)
	next.UpdatedAt = s.now()

	if err := checkCredential(next); err != nil {
		return fmt.Errorf("%s/%s: %w", userID, provider, err)
	}
	s.creds[key] = next

	return nil
}

// Clear disconnects the credential and wipes its tokens. Account metadata is
// kept so a reconnect shows the same workspace.
func (s *MemoryCredentialStore) Clear(_ context.Context, userID, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.creds[credentialKey(userID, provider)]
	if !ok {
		return util.ErrCredentialNotFound
	}

	now := s.now()
	c.AccessToken = ""
	c.RefreshToken = ""
	c.ExpiresAt = nil
	c.Connected = false
	c.DisconnectedAt = &now
	c.UpdatedAt = now

	return nil
}

// PGCredentialStore persists credentials in Postgres. The connected/token
// invariant is also a CHECK constraint on the table.
type PGCredentialStore struct {
	db *sql.DB
}

func NewPGCredentialStore(db *sql.DB) *PGCredentialStore {
	return &PGCredentialStore{db: db}
}

func (s *PGCredentialStore) Get(ctx context.Context, userID, provider string) (*types.Credential, error) {
	return service.GetCredential(ctx, s.db, userID, provider)
}

func (s *PGCredentialStore) List(ctx context.Context, userID string) ([]*types.Credential, error) {
	return service.ListCredentials(ctx, s.db, userID)
}

func (s *PGCredentialStore) Upsert(ctx context.Context, userID, provider string, patch types.CredentialPatch) error {
	if patch.Connected != nil && *patch.Connected && (patch.AccessToken == nil || len(*patch.AccessToken) == 0) {
		return fmt.Errorf("%s/%s: %w", userID, provider, errConnectedWithoutToken)
	}
	if patch.OnlyIfConnected {
		return service.UpdateConnectedTokens(ctx, s.db, userID, provider, patch)
	}

	return service.UpsertCredential(ctx, s.db, userID, provider, patch)
}

func (s *PGCredentialStore) Clear(ctx context.Context, userID, provider string) error {
	return service.ClearCredential(ctx, s.db, userID, provider)
}

// CredentialStatuses is the secret-free listing of every registered provider
// for a user. Providers without a stored credential show as disconnected.
func CredentialStatuses(ctx context.Context, creds types.CredentialStore, r *ProviderRegistry, userID string) ([]types.CredentialStatus, error) {
	stored, err := creds.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	byProvider := make(map[string]*types.Credential, len(stored))
	for _, c := range stored {
		byProvider[c.Provider] = c
	}

	names := r.Names()
	statuses := make([]types.CredentialStatus, 0, len(names))
	for _, name := range names {
		st := types.CredentialStatus{Provider: name}
		if c, ok := byProvider[name]; ok {
			st.Connected = c.Connected
			st.AccountID = c.ProviderAccountID
			st.AccountName = c.ProviderAccountName
			st.Scopes = c.Scopes
			st.ExpiresAt = c.ExpiresAt
			st.ConnectedAt = c.ConnectedAt
		}
		statuses = append(statuses, st)
	}

	return statuses, nil
}
