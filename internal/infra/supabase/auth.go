package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"community-hub/internal/backend"
)

// ErrNoSession is returned by RefreshSession when nobody is signed in.
var ErrNoSession = errors.New("not authenticated: no session")

// Auth manages the password-based session used to authorize REST calls.
type Auth struct {
	client *Client

	mu      sync.RWMutex
	session *backend.Session
}

var _ backend.Auth = (*Auth)(nil)

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	User         struct {
		ID string `json:"id"`
	} `json:"user"`
}

// SignInWithPassword starts a session for email and password.
func (a *Auth) SignInWithPassword(ctx context.Context, email, password string) (*backend.Session, error) {
	return a.token(ctx, "password", map[string]string{
		"email":    email,
		"password": password,
	})
}

// RefreshSession exchanges the current refresh token for a new session.
func (a *Auth) RefreshSession(ctx context.Context) (*backend.Session, error) {
	current := a.Session()
	if current == nil || current.RefreshToken == "" {
		return nil, ErrNoSession
	}
	return a.token(ctx, "refresh_token", map[string]string{
		"refresh_token": current.RefreshToken,
	})
}

// Session returns the current session, or nil.
func (a *Auth) Session() *backend.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session
}

// SignOut forgets the local session.
func (a *Auth) SignOut() {
	a.mu.Lock()
	a.session = nil
	a.mu.Unlock()
}

func (a *Auth) token(ctx context.Context, grant string, payload map[string]string) (*backend.Session, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := a.client.newRequest(ctx, http.MethodPost, "/auth/v1/token?grant_type="+grant, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	// Token requests are authorized by the anon key only.
	req.Header.Set("Authorization", "Bearer "+a.client.cfg.AnonKey)

	res, err := a.client.do(req)
	if err != nil {
		return nil, err
	}
	if err := res.Err(); err != nil {
		return nil, err
	}

	var tr tokenResponse
	if err := json.Unmarshal(res.Data, &tr); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, errors.New("invalid token response: missing access token")
	}

	session := &backend.Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		UserID:       tr.User.ID,
		ExpiresAt:    expiresAt(tr.AccessToken, tr.ExpiresAt),
	}

	a.mu.Lock()
	a.session = session
	a.mu.Unlock()
	return session, nil
}

// expiresAt reads the exp claim of the access token. The platform has
// already verified the token, so it is parsed without a key. fallback (unix
// seconds from the token response) is used when the claim is missing.
func expiresAt(accessToken string, fallback int64) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	if fallback > 0 {
		return time.Unix(fallback, 0)
	}
	return time.Time{}
}
