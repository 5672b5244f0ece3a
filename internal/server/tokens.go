package server

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	pkgerrors "github.com/pkg/errors"

	"elearning-quiz/internal/auth"
	"elearning-quiz/internal/store"
)

const (
	tokenIssuer       = "elearning-quiz"
	tokenTypeAccess   = "access"
	tokenTypeRefresh  = "refresh"
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

var errWrongTokenType = errors.New("wrong token type")

type tokenClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and checks HS256 access and refresh tokens.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTTL
	}
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

func (i *TokenIssuer) Issue(user store.User) (auth.Tokens, error) {
	access, err := i.sign(user.ID, tokenTypeAccess, i.accessTTL)
	if err != nil {
		return auth.Tokens{}, err
	}
	refresh, err := i.sign(user.ID, tokenTypeRefresh, i.refreshTTL)
	if err != nil {
		return auth.Tokens{}, err
	}
	return auth.Tokens{Access: access, Refresh: refresh}, nil
}

// Refresh returns a new access token for a valid refresh token.
func (i *TokenIssuer) Refresh(refreshToken string) (string, error) {
	userID, err := i.parse(refreshToken, tokenTypeRefresh)
	if err != nil {
		return "", err
	}
	return i.sign(userID, tokenTypeAccess, i.accessTTL)
}

// ParseAccess validates an access token and returns its user id.
func (i *TokenIssuer) ParseAccess(accessToken string) (int64, error) {
	return i.parse(accessToken, tokenTypeAccess)
}

func (i *TokenIssuer) sign(userID int64, tokenType string, ttl time.Duration) (string, error) {
	now := i.now()
	claims := tokenClaims{
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", pkgerrors.Wrap(err, "sign token")
	}
	return signed, nil
}

func (i *TokenIssuer) parse(tokenString, wantType string) (int64, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(
		tokenString,
		&claims,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return i.secret, nil
		},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return 0, err
	}
	if claims.Type != wantType {
		return 0, errWrongTokenType
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, pkgerrors.Wrap(err, "token subject")
	}
	return userID, nil
}
