package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/nilotpaul/meetsync/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestGoogleIdentify(t *testing.T) {
	api := newStubAPI(t)
	api.handle("/oauth2/v2/userinfo", http.StatusOK, map[string]any{
		"id":    "g1",
		"name":  "Alice",
		"email": "alice@example.com",
	})

	info, err := GoogleIdentify(context.Background(), api.call(), &oauth2.Token{AccessToken: "tok1"})
	require.NoError(t, err)
	assert.Equal(t, "g1", info.ID)
	assert.Equal(t, "alice@example.com", info.Email)
	assert.True(t, info.Active)
	assert.Equal(t, "Bearer tok1", api.last().Header.Get("Authorization"))

	api.handle("/oauth2/v2/userinfo", http.StatusUnauthorized, map[string]any{
		"error": map[string]any{"code": 401, "message": "Invalid Credentials"},
	})
	_, err = GoogleIdentify(context.Background(), api.call(), &oauth2.Token{AccessToken: "tok1"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestGoogleCreateEvent(t *testing.T) {
	api := newStubAPI(t)
	api.handle("/calendar/v3/calendars/primary/events", http.StatusOK, map[string]any{
		"id":       "ev1",
		"htmlLink": "https://calendar.google.com/event?eid=ev1",
	})

	res := GoogleCreateEvent(context.Background(), api.call(), testCredential(), testInput(nil))
	require.True(t, res.Success, res.Reason)
	assert.Equal(t, "ev1", res.ExternalID)
	assert.Equal(t, "https://calendar.google.com/event?eid=ev1", res.URL)

	req := api.last()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "Bearer tok1", req.Header.Get("Authorization"))
	assert.Equal(t, "Follow-up: Weekly sync", req.Body["summary"])
	// A day after the meeting, thirty minutes long.
	assert.Equal(t, "2024-05-02T10:00:00Z", req.Body["start"].(map[string]any)["dateTime"])
	assert.Equal(t, "2024-05-02T10:30:00Z", req.Body["end"].(map[string]any)["dateTime"])
}

func TestGoogleCreateEvent_Failures(t *testing.T) {
	api := newStubAPI(t)
	api.handle("/calendar/v3/calendars/team/events", http.StatusForbidden, map[string]any{
		"error": map[string]any{"code": 403, "message": "Insufficient Permission"},
	})

	res := GoogleCreateEvent(context.Background(), api.call(), testCredential(), testInput(map[string]any{"calendarId": "team"}))
	assert.False(t, res.Success)
	assert.Equal(t, "google responded with 403", res.Reason)

	res = GoogleCreateEvent(context.Background(), api.call(), testCredential(), testInput(map[string]any{"start": "tomorrow"}))
	assert.False(t, res.Success)
	assert.Contains(t, res.Reason, "invalid start")
}

func TestGoogleRevoke(t *testing.T) {
	var forms []url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		forms = append(forms, r.PostForm)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	call := types.ProviderCall{Client: srv.Client(), RevokeURL: srv.URL + "/revoke"}
	require.NoError(t, GoogleRevoke(context.Background(), call, testCredential()))
	require.Len(t, forms, 1)
	assert.Equal(t, "r1", forms[0].Get("token"))

	// Falls back to the access token.
	cred := testCredential()
	cred.RefreshToken = ""
	require.NoError(t, GoogleRevoke(context.Background(), call, cred))
	require.Len(t, forms, 2)
	assert.Equal(t, "tok1", forms[1].Get("token"))

	// Without a revoke endpoint nothing is sent.
	call.RevokeURL = ""
	assert.Error(t, GoogleRevoke(context.Background(), call, testCredential()))
	assert.Len(t, forms, 2)
}
