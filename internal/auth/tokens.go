package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/golang/glog"
	pkgerrors "github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

const defaultRefreshSkew = 30 * time.Second

var ErrNotAuthenticated = errors.New("not logged in")

type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	IsStaff  bool   `json:"is_staff"`
}

// StaticToken hands out a fixed access token.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", ErrNotAuthenticated
	}
	return string(t), nil
}

// Refresher exchanges a refresh token for a new access token.
type Refresher interface {
	RefreshAccessToken(ctx context.Context, refreshToken string) (string, error)
}

// TokenSource holds the tokens of a logged-in user and refreshes the access
// token shortly before it expires. Concurrent refreshes are coalesced.
type TokenSource struct {
	refresher Refresher
	skew      time.Duration
	now       func() time.Time

	mu     sync.RWMutex
	tokens Tokens

	group singleflight.Group
}

func NewTokenSource(refresher Refresher, tokens Tokens) *TokenSource {
	return &TokenSource{
		refresher: refresher,
		skew:      defaultRefreshSkew,
		now:       time.Now,
		tokens:    tokens,
	}
}

func (s *TokenSource) Set(tokens Tokens) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = tokens
}

// Clear drops both tokens, logging the user out locally.
func (s *TokenSource) Clear() {
	s.Set(Tokens{})
}

func (s *TokenSource) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.Access != "" || s.tokens.Refresh != ""
}

func (s *TokenSource) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	tokens := s.tokens
	s.mu.RUnlock()

	if tokens.Access == "" && tokens.Refresh == "" {
		return "", ErrNotAuthenticated
	}
	if tokens.Access != "" && !s.expiresSoon(tokens.Access) {
		return tokens.Access, nil
	}
	if tokens.Refresh == "" || s.refresher == nil {
		if tokens.Access == "" {
			return "", ErrNotAuthenticated
		}
		return tokens.Access, nil
	}

	access, err, _ := s.group.Do(tokens.Refresh, func() (any, error) {
		access, err := s.refresher.RefreshAccessToken(ctx, tokens.Refresh)
		if err != nil {
			return "", err
		}

		s.mu.Lock()
		if s.tokens.Refresh == tokens.Refresh {
			s.tokens.Access = access
		}
		s.mu.Unlock()
		return access, nil
	})
	if err != nil {
		glog.Warningf("refreshing access token failed, logging out: %v", err)
		s.mu.Lock()
		if s.tokens.Refresh == tokens.Refresh {
			s.tokens = Tokens{}
		}
		s.mu.Unlock()
		return "", pkgerrors.Wrap(err, "refresh access token")
	}
	return access.(string), nil
}

func (s *TokenSource) expiresSoon(token string) bool {
	expiresAt, ok := ExpiresAt(token)
	if !ok {
		return false
	}
	return !s.now().Add(s.skew).Before(expiresAt)
}

// ExpiresAt reads the exp claim without verifying the signature. The server
// remains the authority on validity.
func ExpiresAt(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
