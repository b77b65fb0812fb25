package auth

import (
	"github.com/wordaddict/finance-sub001/internal"
	coreuser "github.com/wordaddict/finance-sub001/internal/core/user"
)

type Capability string

const (
	CapSubmitExpenses  Capability = "submit_expenses"
	CapViewAllExpenses Capability = "view_all_expenses"
	CapApproveExpenses Capability = "approve_expenses"
	CapMarkPaid        Capability = "mark_paid"
	CapManageExpenses  Capability = "manage_expenses"
	CapExportExpenses  Capability = "export_expenses"
	CapAddPastorRemark Capability = "add_pastor_remark"
	CapReviewReports   Capability = "review_reports"
	CapManageUsers     Capability = "manage_users"
	CapManageWishlist  Capability = "manage_wishlist"
)

var capabilityRoles = map[Capability][]coreuser.Role{
	CapSubmitExpenses:  {coreuser.RoleAdmin, coreuser.RoleCampusPastor, coreuser.RoleLeader},
	CapViewAllExpenses: {coreuser.RoleAdmin, coreuser.RoleCampusPastor},
	CapApproveExpenses: {coreuser.RoleAdmin},
	CapMarkPaid:        {coreuser.RoleAdmin},
	CapManageExpenses:  {coreuser.RoleAdmin},
	CapExportExpenses:  {coreuser.RoleAdmin},
	CapAddPastorRemark: {coreuser.RoleAdmin, coreuser.RoleCampusPastor},
	CapReviewReports:   {coreuser.RoleAdmin},
	CapManageUsers:     {coreuser.RoleAdmin},
	CapManageWishlist:  {coreuser.RoleAdmin},
}

// Can reports whether an ACTIVE principal's role holds the capability.
func Can(p *coreuser.Principal, capability Capability) bool {
	if !p.IsActive() {
		return false
	}
	for _, role := range capabilityRoles[capability] {
		if p.Role == role {
			return true
		}
	}
	return false
}

// Authorize is the single capability gate used by handlers and services.
func Authorize(p *coreuser.Principal, capability Capability) error {
	if p == nil {
		return internal.ErrUnauthenticated
	}
	if !Can(p, capability) {
		return internal.ErrForbidden
	}
	return nil
}

// Capabilities lists what the principal may do, for the /api/me payload.
func Capabilities(p *coreuser.Principal) []Capability {
	out := make([]Capability, 0, len(capabilityRoles))
	for _, c := range orderedCapabilities {
		if Can(p, c) {
			out = append(out, c)
		}
	}
	return out
}

var orderedCapabilities = []Capability{
	CapSubmitExpenses,
	CapViewAllExpenses,
	CapApproveExpenses,
	CapMarkPaid,
	CapManageExpenses,
	CapExportExpenses,
	CapAddPastorRemark,
	CapReviewReports,
	CapManageUsers,
	CapManageWishlist,
}
