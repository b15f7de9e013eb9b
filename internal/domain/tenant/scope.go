package tenant

import (
	"fmt"

	"github.com/paylane/payroll-engine-go/internal/domain/employee"
	"github.com/paylane/payroll-engine-go/internal/domain/payroll"
)

// Scope carries the caller's company and rejects any entity owned by a
// different company. It is a pure precondition check: no caching, no side
// effects beyond the returned error.
type Scope struct {
	CompanyID string
}

func NewScope(companyID string) Scope {
	return Scope{CompanyID: companyID}
}

// CrossTenantError - an entity owned by another company leaked into the
// operation.
type CrossTenantError struct {
	Resource       string
	ResourceID     string
	OwnerCompanyID string
	ScopeCompanyID string
}

func (e *CrossTenantError) Error() string {
	return fmt.Sprintf("cross-tenant violation: %s %s belongs to company %s, not %s",
		e.Resource, e.ResourceID, e.OwnerCompanyID, e.ScopeCompanyID)
}

func (s Scope) check(resource, resourceID, ownerCompanyID string) error {
	if ownerCompanyID != s.CompanyID {
		return &CrossTenantError{
			Resource:       resource,
			ResourceID:     resourceID,
			OwnerCompanyID: ownerCompanyID,
			ScopeCompanyID: s.CompanyID,
		}
	}
	return nil
}

func (s Scope) CheckEmployee(e employee.Employee) error {
	return s.check("Employee", e.ID, e.CompanyID)
}

func (s Scope) CheckPayroll(p payroll.Payroll) error {
	return s.check("Payroll", p.ID, p.CompanyID)
}

func (s Scope) CheckItem(it payroll.PayrollItem) error {
	return s.check("PayrollItem", it.ID, it.CompanyID)
}
