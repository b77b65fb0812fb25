package cmd

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	categoryDatamodel "github.com/wordaddict/finance-sub001/internal/core/datamodel/category"
	userdm "github.com/wordaddict/finance-sub001/internal/core/datamodel/user"
	wishlistDatamodel "github.com/wordaddict/finance-sub001/internal/core/datamodel/wishlist"
	coreuser "github.com/wordaddict/finance-sub001/internal/core/user"
)

var (
	clearData    bool
	seedPassword string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with one account per role, expense categories and a few wishlist items for development.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger := setupLogger(cfg)

		db, err := initDB(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to init db: %w", err)
		}
		defer db.Close()
		gdb, err := initGorm(db)
		if err != nil {
			return fmt.Errorf("failed to init gorm: %w", err)
		}

		return gdb.Transaction(func(tx *gorm.DB) error {
			if clearData {
				for _, table := range []string{"wishlist_contributions", "wishlist_confirmations", "wishlist_items"} {
					if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
						return fmt.Errorf("failed to clear %s: %w", table, err)
					}
				}
				logger.Info("cleared wishlist data")
			}

			hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), cfg.Security.BCryptCost)
			if err != nil {
				return err
			}

			accounts := []struct {
				Email string
				Name  string
				Role  coreuser.Role
			}{
				{"admin@church.local", "Finance Admin", coreuser.RoleAdmin},
				{"pastor@church.local", "Campus Pastor", coreuser.RoleCampusPastor},
				{"leader@church.local", "Ministry Leader", coreuser.RoleLeader},
			}
			for _, a := range accounts {
				if err := seedUser(tx, a.Email, a.Name, a.Role, string(hash)); err != nil {
					return err
				}
				logger.Info("seeded user", "email", a.Email, "role", a.Role)
			}

			for _, name := range []string{"Food", "Supplies", "Travel", "Facilities", "Outreach"} {
				var count int64
				if err := tx.Model(&categoryDatamodel.ExpenseCategory{}).Where("LOWER(name) = LOWER(?)", name).Count(&count).Error; err != nil {
					return err
				}
				if count > 0 {
					continue
				}
				now := time.Now()
				if err := tx.Create(&categoryDatamodel.ExpenseCategory{
					ID: uuid.NewString(), Name: name, IsActive: true, CreatedAt: now, UpdatedAt: now,
				}).Error; err != nil {
					return fmt.Errorf("failed to insert expense category %s: %w", name, err)
				}
				logger.Info("seeded expense category", "name", name)
			}

			items := []struct {
				Name          string
				PriceCents    int64
				Quantity      int64
				Priority      int
				Contributions bool
			}{
				{"Folding chairs", 4500, 40, 1, false},
				{"Sound board", 250000, 1, 2, true},
				{"Children's ministry craft kits", 1500, 25, 3, false},
			}
			for _, it := range items {
				var count int64
				if err := tx.Model(&wishlistDatamodel.WishlistItem{}).Where("name = ?", it.Name).Count(&count).Error; err != nil {
					return err
				}
				if count > 0 {
					continue
				}
				now := time.Now()
				if err := tx.Create(&wishlistDatamodel.WishlistItem{
					ID:                 uuid.NewString(),
					Name:               it.Name,
					PriceCents:         it.PriceCents,
					QuantityNeeded:     it.Quantity,
					Priority:           it.Priority,
					IsActive:           true,
					AllowContributions: it.Contributions,
					CreatedAt:          now,
					UpdatedAt:          now,
				}).Error; err != nil {
					return fmt.Errorf("failed to insert wishlist item %s: %w", it.Name, err)
				}
				logger.Info("seeded wishlist item", "name", it.Name)
			}
			return nil
		})
	},
}

// seedUser creates an ACTIVE verified account, leaving an existing one untouched.
func seedUser(tx *gorm.DB, email, name string, role coreuser.Role, hash string) error {
	var count int64
	if err := tx.Model(&userdm.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	now := time.Now()
	u := &userdm.User{
		ID:              uuid.NewString(),
		Email:           email,
		Name:            name,
		PasswordHash:    &hash,
		Role:            string(role),
		Status:          string(coreuser.StatusActive),
		EmailVerifiedAt: &now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := tx.Create(u).Error; err != nil {
		return fmt.Errorf("failed to insert user %s: %w", email, err)
	}
	return nil
}

func init() {
	seedCmd.Flags().BoolVar(&clearData, "clear", false, "Clear existing wishlist data before seeding")
	seedCmd.Flags().StringVar(&seedPassword, "password", "change-me-please", "Password given to every seeded account")
}
