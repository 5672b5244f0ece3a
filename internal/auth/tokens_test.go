package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRefresher struct {
	access string
	err    error
	calls  int
	got    string
}

func (f *fakeRefresher) RefreshAccessToken(_ context.Context, refreshToken string) (string, error) {
	f.calls++
	f.got = refreshToken
	return f.access, f.err
}

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestStaticToken(t *testing.T) {
	token, err := StaticToken("abc").Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	_, err = StaticToken("").Token(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestTokenSourceWithoutTokens(t *testing.T) {
	source := NewTokenSource(&fakeRefresher{}, Tokens{})
	assert.False(t, source.Authenticated())

	_, err := source.Token(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestTokenSourceReturnsFreshAccessToken(t *testing.T) {
	refresher := &fakeRefresher{}
	access := signedToken(t, time.Now().Add(time.Hour))
	source := NewTokenSource(refresher, Tokens{Access: access, Refresh: "refresh"})

	token, err := source.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, access, token)
	assert.Equal(t, 0, refresher.calls)
}

func TestTokenSourceRefreshesExpiringToken(t *testing.T) {
	fresh := signedToken(t, time.Now().Add(time.Hour))
	refresher := &fakeRefresher{access: fresh}
	source := NewTokenSource(refresher, Tokens{
		Access:  signedToken(t, time.Now().Add(10*time.Second)),
		Refresh: "refresh-1",
	})

	token, err := source.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fresh, token)
	assert.Equal(t, "refresh-1", refresher.got)

	token, err = source.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fresh, token)
	assert.Equal(t, 1, refresher.calls)
}

func TestTokenSourceRefreshesWhenOnlyRefreshTokenKnown(t *testing.T) {
	refresher := &fakeRefresher{access: "new-access"}
	source := NewTokenSource(refresher, Tokens{Refresh: "refresh-1"})

	token, err := source.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new-access", token)
}

func TestTokenSourceLogsOutWhenRefreshFails(t *testing.T) {
	refresher := &fakeRefresher{err: errors.New("token is invalid or expired")}
	source := NewTokenSource(refresher, Tokens{
		Access:  signedToken(t, time.Now().Add(-time.Minute)),
		Refresh: "refresh-1",
	})

	_, err := source.Token(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refresh access token")
	assert.False(t, source.Authenticated())

	_, err = source.Token(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestTokenSourceKeepsOpaqueAccessToken(t *testing.T) {
	refresher := &fakeRefresher{}
	source := NewTokenSource(refresher, Tokens{Access: "not-a-jwt", Refresh: "refresh"})

	token, err := source.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "not-a-jwt", token)
	assert.Equal(t, 0, refresher.calls)
}

func TestExpiresAt(t *testing.T) {
	want := time.Now().Add(time.Hour).Truncate(time.Second)
	got, ok := ExpiresAt(signedToken(t, want))
	require.True(t, ok)
	assert.True(t, want.Equal(got))

	_, ok = ExpiresAt("garbage")
	assert.False(t, ok)
}
