// Package testsupport holds fixtures shared by package tests.
package testsupport

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	categoryDatamodel "github.com/wordaddict/finance-sub001/internal/core/datamodel/category"
	expenseDatamodel "github.com/wordaddict/finance-sub001/internal/core/datamodel/expense"
	reportDatamodel "github.com/wordaddict/finance-sub001/internal/core/datamodel/report"
	userDatamodel "github.com/wordaddict/finance-sub001/internal/core/datamodel/user"
	wishlistDatamodel "github.com/wordaddict/finance-sub001/internal/core/datamodel/wishlist"
	coreuser "github.com/wordaddict/finance-sub001/internal/core/user"
)

// NewSQLiteDB opens a private shared-cache in-memory database with every table migrated.
func NewSQLiteDB() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=off", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&userDatamodel.User{},
		&userDatamodel.Session{},
		&userDatamodel.VerificationToken{},
		&expenseDatamodel.ExpenseRequest{},
		&expenseDatamodel.ExpenseItem{},
		&expenseDatamodel.ExpenseItemApproval{},
		&expenseDatamodel.Approval{},
		&expenseDatamodel.StatusEvent{},
		&expenseDatamodel.ExpenseNote{},
		&expenseDatamodel.Attachment{},
		&expenseDatamodel.PastorRemark{},
		&categoryDatamodel.ExpenseCategory{},
		&reportDatamodel.ExpenseReport{},
		&reportDatamodel.ReportApproval{},
		&reportDatamodel.ReportNote{},
		&reportDatamodel.ReportAttachment{},
		&reportDatamodel.ApprovedReportItem{},
		&wishlistDatamodel.WishlistItem{},
		&wishlistDatamodel.WishlistConfirmation{},
		&wishlistDatamodel.WishlistContribution{},
		&wishlistDatamodel.WishlistAccessCode{},
	)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// CreateUser inserts an ACTIVE user row with the given role.
func CreateUser(db *gorm.DB, email, role string) (*userDatamodel.User, error) {
	now := time.Now()
	u := &userDatamodel.User{
		ID:              uuid.NewString(),
		Email:           email,
		Name:            email,
		Role:            role,
		Status:          "ACTIVE",
		EmailVerifiedAt: &now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := db.Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// Principal builds the request principal for a stored user.
func Principal(u *userDatamodel.User) *coreuser.Principal {
	return &coreuser.Principal{
		UserID:          u.ID,
		Email:           u.Email,
		Name:            u.Name,
		Role:            coreuser.Role(u.Role),
		Status:          coreuser.Status(u.Status),
		EmailVerifiedAt: u.EmailVerifiedAt,
	}
}
