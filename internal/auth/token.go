package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/Bando358/neonmeter/internal/config"
	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/fx"
)

var Module = fx.Module("auth",
	fx.Provide(NewTokenManager),
)

var ErrMissingSecret = errors.New("auth jwt secret is required")

type claims struct {
	Role      string `json:"role"`
	CompanyID string `json:"company_id,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies the bearer tokens used by the dashboard
// and company users. Session management itself lives outside this service.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(cfg config.Config) (*TokenManager, error) {
	secret := strings.TrimSpace(cfg.AuthJWTSecret)
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &TokenManager{secret: []byte(secret), ttl: 24 * time.Hour}, nil
}

func (m *TokenManager) Issue(actor Actor) (string, error) {
	now := time.Now().UTC()
	c := claims{
		Role: string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	if actor.CompanyID != 0 {
		c.CompanyID = actor.CompanyID.String()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
}

func (m *TokenManager) Verify(token string) (Actor, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnauthorized
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Actor{}, ErrUnauthorized
	}

	actor := Actor{Subject: c.Subject, Role: Role(c.Role)}
	switch actor.Role {
	case RoleAdmin:
	case RoleCompanyAdmin:
		if c.CompanyID == "" {
			return Actor{}, ErrUnauthorized
		}
		id, err := snowflake.ParseString(c.CompanyID)
		if err != nil {
			return Actor{}, ErrUnauthorized
		}
		actor.CompanyID = id
	default:
		return Actor{}, ErrUnauthorized
	}
	return actor, nil
}
