package util

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/nilotpaul/meetsync/setting"
	"github.com/nilotpaul/meetsync/types"
)

type stateClaims struct {
	Nonce    string            `json:"nonce"`
	Subject  string            `json:"sub"`
	IssuedAt int64             `json:"iat"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// Age is checked by StateCodec against its own clock instead.
func (stateClaims) Valid() error { return nil }

// StateCodec encodes the oauth `state` parameter as an HS256 JWT carrying a
// random nonce, the subject and the issue time.
type StateCodec struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

func NewStateCodec(secret string, maxAge time.Duration) *StateCodec {
	if maxAge <= 0 {
		maxAge = setting.StateMaxAge
	}
	return &StateCodec{
		secret: []byte(secret),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// WithClock returns a copy of the codec reading time from now.
func (s *StateCodec) WithClock(now func() time.Time) *StateCodec {
	cp := *s
	cp.now = now
	return &cp
}

func (s *StateCodec) MaxAge() time.Duration {
	return s.maxAge
}

func (s *StateCodec) Encode(subjectID string, extra map[string]string) (string, error) {
	nonce, err := GenerateNonce(setting.StateNonceBytes)
	if err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, stateClaims{
		Nonce:    nonce,
		Subject:  subjectID,
		IssuedAt: s.now().Unix(),
		Extra:    extra,
	})

	ts, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}

	return ts, nil
}

// Decode verifies the token with the codec's default max age.
func (s *StateCodec) Decode(tokenStr string) (*types.StateToken, error) {
	return s.DecodeWithMaxAge(tokenStr, s.maxAge)
}

func (s *StateCodec) DecodeWithMaxAge(tokenStr string, maxAge time.Duration) (*types.StateToken, error) {
	if len(tokenStr) == 0 {
		return nil, ErrMalformedToken
	}
	if maxAge <= 0 {
		maxAge = s.maxAge
	}

	var claims stateClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("invalid signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, errors.Join(ErrMalformedToken, err)
	}
	if !token.Valid || len(claims.Nonce) == 0 || claims.IssuedAt == 0 {
		return nil, ErrMalformedToken
	}

	issuedAt := time.Unix(claims.IssuedAt, 0)
	if s.now().Sub(issuedAt) > maxAge {
		return nil, ErrExpiredToken
	}

	return &types.StateToken{
		Nonce:     claims.Nonce,
		SubjectID: claims.Subject,
		IssuedAt:  issuedAt,
		Extra:     claims.Extra,
	}, nil
}
