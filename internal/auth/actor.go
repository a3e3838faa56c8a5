// Package auth carries the caller identity used for ownership checks.
package auth

import (
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Role string

const (
	// RoleAdmin is the platform operator; sees every company.
	RoleAdmin Role = "ADMIN"
	// RoleCompanyAdmin is scoped to one company's invoices and payments.
	RoleCompanyAdmin Role = "COMPANY_ADMIN"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// Actor is the authenticated caller.
type Actor struct {
	Subject   string
	Role      Role
	CompanyID snowflake.ID // zero for platform admins
}

// CanAccessCompany reports whether the actor may act on the given company's
// resources.
func (a Actor) CanAccessCompany(companyID snowflake.ID) bool {
	if a.Role == RoleAdmin {
		return true
	}
	return a.Role == RoleCompanyAdmin && a.CompanyID == companyID
}
