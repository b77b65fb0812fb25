package auth_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/wordaddict/finance-sub001/internal"
	"github.com/wordaddict/finance-sub001/internal/auth"
	coreuser "github.com/wordaddict/finance-sub001/internal/core/user"
)

var _ = Describe("Authorize", func() {
	principal := func(role coreuser.Role, status coreuser.Status) *coreuser.Principal {
		return &coreuser.Principal{UserID: "u", Role: role, Status: status}
	}

	DescribeTable("capability table",
		func(role coreuser.Role, capability auth.Capability, allowed bool) {
			err := auth.Authorize(principal(role, coreuser.StatusActive), capability)
			if allowed {
				Expect(err).ToNot(HaveOccurred())
			} else {
				Expect(err).To(MatchError(internal.ErrForbidden))
			}
		},
		Entry("leader submits", coreuser.RoleLeader, auth.CapSubmitExpenses, true),
		Entry("leader cannot view all", coreuser.RoleLeader, auth.CapViewAllExpenses, false),
		Entry("pastor views all", coreuser.RoleCampusPastor, auth.CapViewAllExpenses, true),
		Entry("pastor adds remarks", coreuser.RoleCampusPastor, auth.CapAddPastorRemark, true),
		Entry("pastor cannot approve", coreuser.RoleCampusPastor, auth.CapApproveExpenses, false),
		Entry("pastor cannot mark paid", coreuser.RoleCampusPastor, auth.CapMarkPaid, false),
		Entry("admin approves", coreuser.RoleAdmin, auth.CapApproveExpenses, true),
		Entry("admin exports", coreuser.RoleAdmin, auth.CapExportExpenses, true),
		Entry("admin manages wishlist", coreuser.RoleAdmin, auth.CapManageWishlist, true),
		Entry("leader cannot review reports", coreuser.RoleLeader, auth.CapReviewReports, false),
	)

	It("grants nothing to inactive principals", func() {
		Expect(auth.Authorize(principal(coreuser.RoleAdmin, coreuser.StatusSuspended), auth.CapSubmitExpenses)).
			To(MatchError(internal.ErrForbidden))
		Expect(auth.Capabilities(principal(coreuser.RoleAdmin, coreuser.StatusPendingApproval))).To(BeEmpty())
	})

	It("requires a principal", func() {
		Expect(auth.Authorize(nil, auth.CapSubmitExpenses)).To(MatchError(internal.ErrUnauthenticated))
	})
})
