package category

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wordaddict/finance-sub001/internal"
	"github.com/wordaddict/finance-sub001/internal/auth"
	categoryDatamodel "github.com/wordaddict/finance-sub001/internal/core/datamodel/category"
	coreuser "github.com/wordaddict/finance-sub001/internal/core/user"
)

var (
	ErrNotFound = errors.New("category not found")

	ErrCategoryNotFound = internal.NewNotFoundError("category not found", internal.ErrCodeCategoryNotFound)
	ErrCategoryExists   = internal.NewConflictError("category already exists", internal.ErrCodeCategoryExists)
)

type RepositoryAPI interface {
	ListActive(ctx context.Context) ([]categoryDatamodel.ExpenseCategory, error)
	GetByName(ctx context.Context, name string) (*categoryDatamodel.ExpenseCategory, error)
	Create(ctx context.Context, category *categoryDatamodel.ExpenseCategory) error
	SetActive(ctx context.Context, id string, active bool, at time.Time) (bool, error)
}

type ServiceAPI interface {
	List(ctx context.Context) ([]CategoryResponse, error)
	Create(ctx context.Context, p *coreuser.Principal, dto CreateCategoryDTO) (*Category, error)
	Deactivate(ctx context.Context, p *coreuser.Principal, id string) error
}

// Service keeps the catalog of expense item categories.
type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) List(ctx context.Context) ([]CategoryResponse, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to get categories from repository", "error", err)
		return nil, internal.NewInternalError("failed to list categories", err)
	}

	responses := make([]CategoryResponse, 0, len(rows))
	for i := range rows {
		responses = append(responses, FromDataModel(&rows[i]).ToResponse())
	}
	return responses, nil
}

func (s *Service) Create(ctx context.Context, p *coreuser.Principal, dto CreateCategoryDTO) (*Category, error) {
	if err := auth.Authorize(p, auth.CapManageExpenses); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(dto.Name)

	existing, err := s.repo.GetByName(ctx, name)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, internal.NewInternalError("failed to look up category", err)
	}
	if existing != nil {
		if existing.IsActive {
			return nil, ErrCategoryExists
		}
		if _, err := s.repo.SetActive(ctx, existing.ID, true, s.now()); err != nil {
			return nil, internal.NewInternalError("failed to reactivate category", err)
		}
		existing.IsActive = true
		s.logger.InfoContext(ctx, "category reactivated", "category_id", existing.ID, "actor_id", p.UserID)
		return FromDataModel(existing), nil
	}

	now := s.now()
	row := &categoryDatamodel.ExpenseCategory{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(dto.Description),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, internal.NewInternalError("failed to create category", err)
	}
	s.logger.InfoContext(ctx, "category created", "category_id", row.ID, "name", name, "actor_id", p.UserID)
	return FromDataModel(row), nil
}

func (s *Service) Deactivate(ctx context.Context, p *coreuser.Principal, id string) error {
	if err := auth.Authorize(p, auth.CapManageExpenses); err != nil {
		return err
	}
	if _, err := uuid.Parse(id); err != nil {
		return ErrCategoryNotFound
	}
	ok, err := s.repo.SetActive(ctx, id, false, s.now())
	if err != nil {
		return internal.NewInternalError("failed to deactivate category", err)
	}
	if !ok {
		return ErrCategoryNotFound
	}
	s.logger.InfoContext(ctx, "category deactivated", "category_id", id, "actor_id", p.UserID)
	return nil
}

// IsValidCategory accepts any name while the catalog is empty, and otherwise
// only the names of active categories.
func (s *Service) IsValidCategory(ctx context.Context, name string) (bool, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return false, err
	}
	if len(rows) == 0 {
		return true, nil
	}
	for _, row := range rows {
		if strings.EqualFold(row.Name, name) {
			return true, nil
		}
	}
	return false, nil
}
