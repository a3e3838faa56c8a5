package auth

import (
	"strings"
	"testing"

	"github.com/Bando358/neonmeter/internal/config"
	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) *TokenManager {
	t.Helper()
	m, err := NewTokenManager(config.Config{AuthJWTSecret: "test-jwt-secret"})
	require.NoError(t, err)
	return m
}

func TestNewTokenManagerRequiresSecret(t *testing.T) {
	_, err := NewTokenManager(config.Config{})
	assert.ErrorIs(t, err, ErrMissingSecret)

	_, err = NewTokenManager(config.Config{AuthJWTSecret: "   "})
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestIssueVerifyAdminRoundTrip(t *testing.T) {
	m := newManager(t)

	token, err := m.Issue(Actor{Subject: "ops@neonmeter.test", Role: RoleAdmin})
	require.NoError(t, err)

	actor, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@neonmeter.test", actor.Subject)
	assert.Equal(t, RoleAdmin, actor.Role)
	assert.Equal(t, snowflake.ID(0), actor.CompanyID)
}

func TestIssueVerifyCompanyAdminRoundTrip(t *testing.T) {
	m := newManager(t)
	node, err := snowflake.NewNode(9)
	require.NoError(t, err)
	companyID := node.Generate()

	token, err := m.Issue(Actor{Subject: "billing@acme.test", Role: RoleCompanyAdmin, CompanyID: companyID})
	require.NoError(t, err)

	actor, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, RoleCompanyAdmin, actor.Role)
	assert.Equal(t, companyID, actor.CompanyID)
}

func TestVerifyRejectsCompanyAdminWithoutCompany(t *testing.T) {
	m := newManager(t)

	token, err := m.Issue(Actor{Subject: "billing@acme.test", Role: RoleCompanyAdmin})
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestVerifyRejectsUnknownRole(t *testing.T) {
	m := newManager(t)

	token, err := m.Issue(Actor{Subject: "x", Role: Role("SUPERUSER")})
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	m := newManager(t)

	token, err := m.Issue(Actor{Subject: "ops", Role: RoleAdmin})
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))
	_, err = m.Verify(tampered)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = m.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	m := newManager(t)
	other, err := NewTokenManager(config.Config{AuthJWTSecret: "another-secret"})
	require.NoError(t, err)

	token, err := other.Issue(Actor{Subject: "ops", Role: RoleAdmin})
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestVerifyRejectsUnsignedToken(t *testing.T) {
	m := newManager(t)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub":  "ops",
		"role": string(RoleAdmin),
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestCanAccessCompany(t *testing.T) {
	node, err := snowflake.NewNode(9)
	require.NoError(t, err)
	mine := node.Generate()
	other := node.Generate()

	admin := Actor{Role: RoleAdmin}
	assert.True(t, admin.CanAccessCompany(mine))
	assert.True(t, admin.CanAccessCompany(other))

	owner := Actor{Role: RoleCompanyAdmin, CompanyID: mine}
	assert.True(t, owner.CanAccessCompany(mine))
	assert.False(t, owner.CanAccessCompany(other))
}
