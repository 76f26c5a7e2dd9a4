package store

import (
	"context"
	"testing"
	"time"

	"github.com/nilotpaul/meetsync/types"
	"github.com/nilotpaul/meetsync/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connectPatch(token string) types.CredentialPatch {
	expiresAt := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	connectedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	return types.CredentialPatch{
		AccessToken:         util.Ptr(token),
		RefreshToken:        util.Ptr("r1"),
		TokenType:           util.Ptr("Bearer"),
		ExpiresAt:           &expiresAt,
		Scopes:              []string{"chat:write"},
		ProviderAccountID:   util.Ptr("T123"),
		ProviderAccountName: util.Ptr("Acme"),
		Metadata:            map[string]string{"team": "acme"},
		Connected:           util.Ptr(true),
		ConnectedAt:         &connectedAt,
	}
}

func TestMemoryCredentialStore_UpsertIsIdempotent(t *testing.T) {
	s := NewMemoryCredentialStore()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "alice@example.com", "slack", connectPatch("tok1")))
	first, err := s.Get(ctx, "alice@example.com", "slack")
	require.NoError(t, err)

	require.NoError(t, s.Upsert(ctx, "alice@example.com", "slack", connectPatch("tok1")))
	second, err := s.Get(ctx, "alice@example.com", "slack")
	require.NoError(t, err)

	first.UpdatedAt, second.UpdatedAt = time.Time{}, time.Time{}
	assert.Equal(t, first, second)
}

func TestMemoryCredentialStore_UpsertMerges(t *testing.T) {
	s := NewMemoryCredentialStore()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "alice@example.com", "slack", connectPatch("tok1")))
	require.NoError(t, s.Upsert(ctx, "alice@example.com", "slack", types.CredentialPatch{
		AccessToken: util.Ptr("tok2"),
		Metadata:    map[string]string{"bot_id": "B1"},
	}))

	c, err := s.Get(ctx, "alice@example.com", "slack")
	require.NoError(t, err)
	assert.Equal(t, "tok2", c.AccessToken)
	assert.Equal(t, "r1", c.RefreshToken)
	assert.Equal(t, "T123", c.ProviderAccountID)
	assert.Equal(t, map[string]string{"team": "acme", "bot_id": "B1"}, c.Metadata)
	assert.True(t, c.Connected)
}

func TestMemoryCredentialStore_ConnectedNeedsToken(t *testing.T) {
	s := NewMemoryCredentialStore()
	ctx := context.Background()

	err := s.Upsert(ctx, "alice@example.com", "slack", types.CredentialPatch{Connected: util.Ptr(true)})
	assert.Error(t, err)

	_, err = s.Get(ctx, "alice@example.com", "slack")
	assert.ErrorIs(t, err, util.ErrCredentialNotFound)
}

func TestMemoryCredentialStore_Clear(t *testing.T) {
	s := NewMemoryCredentialStore()
	ctx := context.Background()

	assert.ErrorIs(t, s.Clear(ctx, "alice@example.com", "slack"), util.ErrCredentialNotFound)

	require.NoError(t, s.Upsert(ctx, "alice@example.com", "slack", connectPatch("tok1")))
	require.NoError(t, s.Clear(ctx, "alice@example.com", "slack"))

	c, err := s.Get(ctx, "alice@example.com", "slack")
	require.NoError(t, err)
	assert.False(t, c.Connected)
	assert.Empty(t, c.AccessToken)
	assert.Empty(t, c.RefreshToken)
	assert.NotNil(t, c.DisconnectedAt)
	assert.Equal(t, "Acme", c.ProviderAccountName)

	// Reconnecting clears the disconnect time.
	require.NoError(t, s.Upsert(ctx, "alice@example.com", "slack", connectPatch("tok2")))
	c, err = s.Get(ctx, "alice@example.com", "slack")
	require.NoError(t, err)
	assert.True(t, c.Connected)
	assert.Nil(t, c.DisconnectedAt)
}

func TestMemoryCredentialStore_GetReturnsCopy(t *testing.T) {
	s := NewMemoryCredentialStore()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "alice@example.com", "slack", connectPatch("tok1")))
	c, err := s.Get(ctx, "alice@example.com", "slack")
	require.NoError(t, err)
	c.AccessToken = "changed"
	c.Metadata["team"] = "changed"

	c, err = s.Get(ctx, "alice@example.com", "slack")
	require.NoError(t, err)
	assert.Equal(t, "tok1", c.AccessToken)
	assert.Equal(t, "acme", c.Metadata["team"])
}

func TestCredentialStatuses(t *testing.T) {
	s := NewMemoryCredentialStore()
	ctx := context.Background()
	r := testRegistry(
		testProvider(testSpec("slack", "")),
		testProvider(testSpec("notion", "")),
	)

	require.NoError(t, s.Upsert(ctx, "alice@example.com", "slack", connectPatch("tok1")))
	require.NoError(t, s.Upsert(ctx, "bob@example.com", "notion", connectPatch("tok1")))

	statuses, err := CredentialStatuses(ctx, s, r, "alice@example.com")
	require.NoError(t, err)
	require.Len(t, statuses, 2)

	assert.Equal(t, "notion", statuses[0].Provider)
	assert.False(t, statuses[0].Connected)
	assert.Equal(t, "slack", statuses[1].Provider)
	assert.True(t, statuses[1].Connected)
	assert.Equal(t, "Acme", statuses[1].AccountName)
}

func TestMemoryAutomationStore(t *testing.T) {
	s := NewMemoryAutomationStore()
	ctx := context.Background()

	a := &types.Automation{UserID: "alice@example.com", Name: "Post to Slack", Enabled: true}
	require.NoError(t, s.Create(ctx, a))
	assert.Len(t, a.ID, 26)
	assert.False(t, a.CreatedAt.IsZero())
	assert.NotNil(t, a.Tags)

	require.NoError(t, s.Create(ctx, &types.Automation{UserID: "bob@example.com", Name: "Other"}))

	list, err := s.List(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)
}

func TestMemoryCredentialStore_OnlyIfConnected(t *testing.T) {
	s := NewMemoryCredentialStore()
	ctx := context.Background()
	patch := types.CredentialPatch{AccessToken: util.Ptr("tok2"), OnlyIfConnected: true}

	err := s.Upsert(ctx, "alice@example.com", "slack", patch)
	assert.ErrorIs(t, err, util.ErrNotConnected)
	_, err = s.Get(ctx, "alice@example.com", "slack")
	assert.ErrorIs(t, err, util.ErrCredentialNotFound)

	require.NoError(t, s.Upsert(ctx, "alice@example.com", "slack", connectPatch("tok1")))
	require.NoError(t, s.Upsert(ctx, "alice@example.com", "slack", patch))
	c, err := s.Get(ctx, "alice@example.com", "slack")
	require.NoError(t, err)
	assert.Equal(t, "tok2", c.AccessToken)

	require.NoError(t, s.Clear(ctx, "alice@example.com", "slack"))
	err = s.Upsert(ctx, "alice@example.com", "slack", patch)
	assert.ErrorIs(t, err, util.ErrNotConnected)
	c, err = s.Get(ctx, "alice@example.com", "slack")
	require.NoError(t, err)
	assert.Empty(t, c.AccessToken)
	assert.False(t, c.Connected)
}

func TestMemoryAutomationStore_Isolation(t *testing.T) {
	s := NewMemoryAutomationStore()
	ctx := context.Background()

	a := &types.Automation{
		UserID:  "alice@example.com",
		Name:    "Post to Slack",
		Enabled: true,
		Tags:    []string{"sales"},
		Steps: []types.AutomationStep{
			{Type: "slack", Config: map[string]any{
				"channel": "C1",
				"mention": map[string]any{"user": "U1"},
			}},
		},
	}
	require.NoError(t, s.Create(ctx, a))

	// Caller edits after Create.
	a.Tags[0] = "support"
	a.Steps[0].Config["channel"] = "C2"
	a.Steps[0].Config["mention"].(map[string]any)["user"] = "U2"

	list, err := s.List(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"sales"}, list[0].Tags)
	assert.Equal(t, "C1", list[0].Steps[0].Config["channel"])
	assert.Equal(t, "U1", list[0].Steps[0].Config["mention"].(map[string]any)["user"])

	// Caller edits a listed copy.
	list[0].Tags = append(list[0].Tags[:0], "other")
	list[0].Steps[0].Config["channel"] = "C3"
	list[0].Steps = append(list[0].Steps, types.AutomationStep{Type: "notion"})

	list, err = s.List(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"sales"}, list[0].Tags)
	assert.Equal(t, "C1", list[0].Steps[0].Config["channel"])
	assert.Len(t, list[0].Steps, 1)
}
