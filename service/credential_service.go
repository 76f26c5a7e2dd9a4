package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/nilotpaul/meetsync/types"
	"github.com/nilotpaul/meetsync/util"
)

const credentialColumns = `
	user_id, provider, access_token, refresh_token, token_type, expires_at,
	scopes, provider_account_id, provider_account_name, metadata,
	connected, connected_at, disconnected_at, updated_at
`

func scanCredential(row interface{ Scan(...any) error }) (*types.Credential, error) {
	var (
		c              types.Credential
		expiresAt      sql.NullTime
		connectedAt    sql.NullTime
		disconnectedAt sql.NullTime
		metadata       []byte
	)
	err := row.Scan(
		&c.UserID, &c.Provider, &c.AccessToken, &c.RefreshToken, &c.TokenType, &expiresAt,
		pq.Array(&c.Scopes), &c.ProviderAccountID, &c.ProviderAccountName, &metadata,
		&c.Connected, &connectedAt, &disconnectedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if expiresAt.Valid {
		c.ExpiresAt = &expiresAt.Time
	}
	if connectedAt.Valid {
		c.ConnectedAt = &connectedAt.Time
	}
	if disconnectedAt.Valid {
		c.DisconnectedAt = &disconnectedAt.Time
	}
	if len(metadata) != 0 {
		if err := json.Unmarshal(metadata, &c.Metadata); err != nil {
			return nil, err
		}
	}

	return &c, nil
}

// GetCredential gets the user's credential for one provider.
func GetCredential(ctx context.Context, db *sql.DB, userID, provider string) (*types.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM integration_credentials WHERE user_id = $1 AND provider = $2`

	c, err := scanCredential(db.QueryRowContext(ctx, query, userID, provider))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, util.ErrCredentialNotFound
	}
	if err != nil {
		return nil, err
	}

	return c, nil
}

// ListCredentials gets every provider credential of a user.
func ListCredentials(ctx context.Context, db *sql.DB, userID string) ([]*types.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM integration_credentials WHERE user_id = $1 ORDER BY provider`

	rows, err := db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creds []*types.Credential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		creds = append(creds, c)
	}

	return creds, rows.Err()
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullBool(b *bool) any {
	if b == nil {
		return nil
	}
	return *b
}

// UpsertCredential merges the patch into the row. NULL parameters keep the
// stored value, metadata keys are merged with jsonb concatenation.
func UpsertCredential(ctx context.Context, db *sql.DB, userID, provider string, patch types.CredentialPatch) error {
	const query = `
		INSERT INTO integration_credentials AS c (
			user_id, provider, access_token, refresh_token, token_type, expires_at,
			scopes, provider_account_id, provider_account_name, metadata,
			connected, connected_at, updated_at
		)
		VALUES (
			$1, $2, COALESCE($3, ''), COALESCE($4, ''), COALESCE($5, ''), $6,
			COALESCE($7::text[], '{}'), COALESCE($8, ''), COALESCE($9, ''), COALESCE($10::jsonb, '{}'::jsonb),
			COALESCE($11, FALSE), $12, $13
		)
		ON CONFLICT (user_id, provider) DO UPDATE SET
			access_token          = COALESCE($3, c.access_token),
			refresh_token         = COALESCE($4, c.refresh_token),
			token_type            = COALESCE($5, c.token_type),
			expires_at            = COALESCE($6, c.expires_at),
			scopes                = COALESCE($7::text[], c.scopes),
			provider_account_id   = COALESCE($8, c.provider_account_id),
			provider_account_name = COALESCE($9, c.provider_account_name),
			metadata              = c.metadata || COALESCE($10::jsonb, '{}'::jsonb),
			connected             = COALESCE($11, c.connected),
			connected_at          = COALESCE($12, c.connected_at),
			disconnected_at       = CASE WHEN $11 IS TRUE THEN NULL ELSE c.disconnected_at END,
			updated_at            = $13
	`

	var scopes any
	if patch.Scopes != nil {
		scopes = pq.Array(patch.Scopes)
	}
	var metadata any
	if len(patch.Metadata) != 0 {
		b, err := json.Marshal(patch.Metadata)
		if err != nil {
			return err
		}
		metadata = string(b)
	}

	_, err := db.ExecContext(
		ctx,
		query,
		userID,
		provider,
		nullString(patch.AccessToken),
		nullString(patch.RefreshToken),
		nullString(patch.TokenType),
		nullTime(patch.ExpiresAt),
		scopes,
		nullString(patch.ProviderAccountID),
		nullString(patch.ProviderAccountName),
		metadata,
		nullBool(patch.Connected),
		nullTime(patch.ConnectedAt),
		time.Now(),
	)

	return err
}

// UpdateConnectedTokens writes the token fields of patch only while the row
// is still connected. A disconnected or missing row yields ErrNotConnected.
func UpdateConnectedTokens(ctx context.Context, db *sql.DB, userID, provider string, patch types.CredentialPatch) error {
	const query = `
		UPDATE integration_credentials
		SET
			access_token = COALESCE($3, access_token),
			refresh_token = COALESCE($4, refresh_token),
			token_type = COALESCE($5, token_type),
			expires_at = COALESCE($6, expires_at),
			updated_at = $7
		WHERE
			user_id = $1 AND provider = $2 AND connected
	`
	res, err := db.ExecContext(
		ctx,
		query,
		userID,
		provider,
		nullString(patch.AccessToken),
		nullString(patch.RefreshToken),
		nullString(patch.TokenType),
		nullTime(patch.ExpiresAt),
		time.Now(),
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return util.ErrNotConnected
	}

	return nil
}

// ClearCredential disconnects the row and wipes its secrets.
func ClearCredential(ctx context.Context, db *sql.DB, userID, provider string) error {
	const query = `
		UPDATE integration_credentials
		SET
			access_token = '',
			refresh_token = '',
			expires_at = NULL,
			connected = FALSE,
			disconnected_at = $3,
			updated_at = $3
		WHERE
			user_id = $1 AND provider = $2
	`
	res, err := db.ExecContext(ctx, query, userID, provider, time.Now())
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return util.ErrCredentialNotFound
	}

	return nil
}
