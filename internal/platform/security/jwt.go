package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired = errors.New("token_expired")
	ErrTokenInvalid = errors.New("token_invalid")
)

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// JWTManager mints and verifies stateless access/refresh tokens. The two
// token classes are signed with different secrets so a leaked access
// secret cannot be used to forge refresh tokens.
type JWTManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewJWTManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTManager {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &JWTManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (j *JWTManager) IssueAccess(accountID string, role string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(j.accessTTL)
	claims := jwt.MapClaims{
		"sub":  accountID,
		"role": role,
		"iat":  now.Unix(),
		"exp":  exp.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err := t.SignedString(j.accessSecret)
	return token, exp, err
}

func (j *JWTManager) IssueRefresh(accountID string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(j.refreshTTL)
	claims := jwt.MapClaims{
		"sub": accountID,
		"iat": now.Unix(),
		"exp": exp.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err := t.SignedString(j.refreshSecret)
	return token, exp, err
}

func (j *JWTManager) IssuePair(accountID string, role string) (TokenPair, time.Time, error) {
	access, exp, err := j.IssueAccess(accountID, role)
	if err != nil {
		return TokenPair{}, time.Time{}, err
	}
	refresh, _, err := j.IssueRefresh(accountID)
	if err != nil {
		return TokenPair{}, time.Time{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, exp, nil
}

// ParseAccess verifies signature and expiry against the access secret and
// returns the embedded account id and role. Expiry is reported as
// ErrTokenExpired, every other failure as ErrTokenInvalid, so callers can
// tell a stale token from a tampered one.
func (j *JWTManager) ParseAccess(token string) (string, string, error) {
	claims, err := j.parse(token, j.accessSecret)
	if err != nil {
		return "", "", err
	}
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if sub == "" {
		return "", "", ErrTokenInvalid
	}
	return sub, role, nil
}

// ParseRefresh verifies a refresh token and returns the account id.
func (j *JWTManager) ParseRefresh(token string) (string, error) {
	claims, err := j.parse(token, j.refreshSecret)
	if err != nil {
		return "", err
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", ErrTokenInvalid
	}
	return sub, nil
}

func (j *JWTManager) parse(token string, secret []byte) (jwt.MapClaims, error) {
	tok, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
