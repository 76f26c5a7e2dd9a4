package util

import (
	"errors"
	"net/http"

	"github.com/nilotpaul/meetsync/setting"
)

var (
	ErrMalformedToken     = errors.New("malformed state token")
	ErrExpiredToken       = errors.New("expired state token")
	ErrStateMismatch      = errors.New("state does not match the stored flow state")
	ErrMissingIdentity    = errors.New("no caller identity")
	ErrMissingCode        = errors.New("no authorization code in callback")
	ErrMissingCredentials = errors.New("oauth client credentials are not configured")
	ErrTokenExchange      = errors.New("token exchange failed")
	ErrRefreshFailed      = errors.New("token refresh failed")
	ErrNoRefreshToken     = errors.New("no refresh token available")
	ErrCredentialNotFound = errors.New("credential not found")
	ErrProviderNotFound   = errors.New("provider not found")
	ErrFlowNotFound       = errors.New("flow state not found")
	ErrNotConnected       = errors.New("integration is not connected")
	ErrTimedOut           = errors.New("polling timed out")
)

type AppError struct {
	Status int
	Code   string
	Msg    string
	Err    []any
}

func NewAppError(status int, errMsg string, err ...any) *AppError {
	return &AppError{
		Status: status,
		Msg:    errMsg,
		Err:    err,
	}
}

func (e *AppError) Error() string {
	return e.Msg
}

func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// RedirectCode maps a flow error onto the coarse code put in the
// integrations redirect. Anything unknown is a server_error.
func RedirectCode(err error) string {
	switch {
	case errors.Is(err, ErrMalformedToken),
		errors.Is(err, ErrExpiredToken),
		errors.Is(err, ErrStateMismatch),
		errors.Is(err, ErrFlowNotFound):
		return setting.ErrCodeInvalidState
	case errors.Is(err, ErrMissingIdentity):
		return setting.ErrCodeNoIdentity
	case errors.Is(err, ErrMissingCode):
		return setting.ErrCodeMissingCode
	case errors.Is(err, ErrTokenExchange):
		return setting.ErrCodeTokenExchange
	case errors.Is(err, ErrMissingCredentials):
		return setting.ErrCodeConfiguration
	case errors.Is(err, ErrProviderNotFound):
		return setting.ErrCodeUnknownProvider
	default:
		return setting.ErrCodeServer
	}
}

// HTTPStatus maps the non-redirect endpoints' errors onto a status code.
func HTTPStatus(err error) int {
	var appErr *AppError
	switch {
	case errors.As(err, &appErr):
		return appErr.Status
	case errors.Is(err, ErrMissingIdentity):
		return http.StatusUnauthorized
	case errors.Is(err, ErrMissingCode):
		return http.StatusBadRequest
	case errors.Is(err, ErrCredentialNotFound), errors.Is(err, ErrProviderNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNotConnected), errors.Is(err, ErrNoRefreshToken):
		return http.StatusConflict
	case errors.Is(err, ErrMissingCredentials):
		return http.StatusInternalServerError
	case errors.Is(err, ErrTimedOut):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrTokenExchange), errors.Is(err, ErrRefreshFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
