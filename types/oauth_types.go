package types

import "time"

type StateToken struct {
	Nonce     string            `json:"nonce"`
	SubjectID string            `json:"sub"`
	IssuedAt  time.Time         `json:"iat"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// FlowState is the server-side half of an in-flight authorization, keyed by
// the id carried in the flow cookie.
type FlowState struct {
	ID        string
	Provider  string
	State     string
	SubjectID string
	ExpiresAt time.Time
}

type AuthorizeResult struct {
	URL    string `json:"url"`
	FlowID string `json:"-"`
	// MaxAge is how long the flow record is kept.
	MaxAge time.Duration `json:"-"`
}

type CallbackQuery struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
	// FlowID comes from the flow cookie, empty when the cookie is absent.
	FlowID string
}

type RedirectResult struct {
	URL      string
	Success  bool
	Code     string
	Provider string
	UserID   string
}

type VerifyResult struct {
	Valid   bool         `json:"valid"`
	Reason  string       `json:"reason,omitempty"`
	Account *AccountInfo `json:"account,omitempty"`
}

type VerifyTokenHRBody struct {
	AccessToken string `json:"accessToken" validate:"required"`
}
