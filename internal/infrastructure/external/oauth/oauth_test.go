package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"golang.org/x/oauth2"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/meeting-scheduler/internal/infrastructure/cache"
)

func TestStateIsSingleUse(t *testing.T) {
	sm := NewStateManager(cache.NewMemoryStore())

	state, err := sm.GenerateState("user-1")
	require.NoError(t, err)

	userID, ok := sm.ConsumeState(state)
	require.True(t, ok)
	assert.Equal(t, "user-1", userID)

	_, ok = sm.ConsumeState(state)
	assert.False(t, ok)

	_, ok = sm.ConsumeState("forged")
	assert.False(t, ok)
}

func TestAuthURLRequestsOfflineMailboxScopes(t *testing.T) {
	p := NewGoogleProvider("client", "secret", "http://localhost:8080/v1/mailbox/google/callback")
	u, err := url.Parse(p.GetAuthURL("abc"))
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "abc", q.Get("state"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Contains(t, q.Get("scope"), "gmail.send")
	assert.Contains(t, q.Get("scope"), "calendar.events")
}

func tokenServer(t *testing.T, refreshToken string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		resp := map[string]interface{}{"access_token": "at", "token_type": "Bearer", "expires_in": 3600}
		if refreshToken != "" {
			resp["refresh_token"] = refreshToken
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExchangeCodeRequiresRefreshToken(t *testing.T) {
	p := NewGoogleProvider("client", "secret", "http://localhost/cb")

	p.config.Endpoint = oauth2.Endpoint{TokenURL: tokenServer(t, "rt-1").URL, AuthStyle: oauth2.AuthStyleInParams}
	token, err := p.ExchangeCode(context.Background(), "code")
	require.NoError(t, err)
	assert.Equal(t, "rt-1", token.RefreshToken)

	refreshed, err := p.RefreshToken(context.Background(), "rt-1")
	require.NoError(t, err)
	assert.Equal(t, "at", refreshed.AccessToken)

	p.config.Endpoint = oauth2.Endpoint{TokenURL: tokenServer(t, "").URL, AuthStyle: oauth2.AuthStyleInParams}
	_, err = p.ExchangeCode(context.Background(), "code")
	assert.ErrorIs(t, err, ErrNoRefreshToken)
}
