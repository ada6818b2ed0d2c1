package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrTokenExpired indicates a well-formed token whose expiry has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed indicates a token that failed parsing or signature
	// verification, or that carries unusable claims.
	ErrTokenMalformed = errors.New("token malformed")
)

// Claims is the verified content of an access or refresh token.
type Claims struct {
	UserID    string
	ExpiresAt time.Time
}

// TokenIssuer signs and verifies the two token families. Access tokens are
// short-lived and authorize individual requests; refresh tokens are long-lived
// and only ever exchanged for a new pair. The two families use independent
// secrets, so neither can stand in for the other.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration

	now func() time.Time
}

// NewTokenIssuer constructs an issuer from the provided signing material.
func NewTokenIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	if accessSecret == "" || refreshSecret == "" {
		panic("auth: token secrets must not be empty")
	}
	return &TokenIssuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// IssueAccess signs a short-lived access token for the user.
func (i *TokenIssuer) IssueAccess(userID string) (string, time.Time, error) {
	return i.sign(userID, i.accessSecret, i.accessTTL)
}

// IssueRefresh signs a long-lived refresh token for the user.
func (i *TokenIssuer) IssueRefresh(userID string) (string, time.Time, error) {
	return i.sign(userID, i.refreshSecret, i.refreshTTL)
}

// VerifyAccess validates an access token and returns its claims.
func (i *TokenIssuer) VerifyAccess(token string) (Claims, error) {
	return i.verify(token, i.accessSecret)
}

// VerifyRefresh validates a refresh token and returns its claims.
func (i *TokenIssuer) VerifyRefresh(token string) (Claims, error) {
	return i.verify(token, i.refreshSecret)
}

func (i *TokenIssuer) sign(userID string, secret []byte, ttl time.Duration) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, errors.New("user id must be provided")
	}

	now := i.now().UTC()
	exp := now.Add(ttl)

	// The jti claim makes every issued token unique even when two are signed
	// for the same user within the same second. Rotation relies on the new
	// refresh token differing from the one it replaces.
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": exp.Unix(),
		"iat": now.Unix(),
		"jti": uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return signed, exp, nil
}

func (i *TokenIssuer) verify(token string, secret []byte) (Claims, error) {
	parsed, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenMalformed
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrTokenMalformed
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return Claims{}, ErrTokenMalformed
	}

	expiry, err := claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return Claims{}, ErrTokenMalformed
	}

	return Claims{UserID: subject, ExpiresAt: expiry.Time.UTC()}, nil
}
