package shell

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/editorialdesk/console/internal/config"
	"github.com/editorialdesk/console/session"
)

// SessionCookieName carries the signed console session token.
const SessionCookieName = "console_session"

// TokenMinter signs and verifies the console session cookie. The cookie only
// proves the OTP step completed on this console instance; the actual backend
// credential lives in the gateway's cookie jar.
type TokenMinter struct {
	secret  []byte
	maxAge  time.Duration
	nowTime func() time.Time
}

// MinterOption configures a TokenMinter.
type MinterOption func(*TokenMinter)

// WithNowTime overrides the clock, for tests.
func WithNowTime(now func() time.Time) MinterOption {
	return func(m *TokenMinter) {
		m.nowTime = now
	}
}

func NewTokenMinter(cfg config.SessionConfig, options ...MinterOption) *TokenMinter {
	m := &TokenMinter{
		secret:  cfg.GetSessionSecret(),
		maxAge:  cfg.GetMaxSessionAge(),
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Mint issues a token for the authenticated identity.
func (m *TokenMinter) Mint(st session.State, langCode string) (string, error) {
	now := m.nowTime()
	claims := jwt.MapClaims{
		"sub":      st.UserID,
		"username": st.Username,
		"lang":     langCode,
		"jti":      uuid.NewString(),
		"iat":      now.Unix(),
		"exp":      now.Add(m.maxAge).Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", errors.Wrap(err, "[TokenMinter.Mint] sign token")
	}
	return signed, nil
}

// Verify parses and validates a token, returning its claims.
func (m *TokenMinter) Verify(raw string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(m.nowTime))
	if err != nil {
		return nil, errors.Wrap(err, "[TokenMinter.Verify] parse token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("[TokenMinter.Verify] invalid token claims")
	}
	return claims, nil
}
