package wishlist

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wordaddict/finance-sub001/internal"
	wishlistDatamodel "github.com/wordaddict/finance-sub001/internal/core/datamodel/wishlist"
	"github.com/wordaddict/finance-sub001/internal/core/events"
)

var (
	ErrNotFound = errors.New("wishlist item not found")

	ErrItemNotFound          = internal.NewNotFoundError("wishlist item not found", internal.ErrCodeWishlistItemNotFound)
	ErrItemInactive          = internal.NewNotFoundError("wishlist item is no longer available", internal.ErrCodeWishlistItemInactive)
	ErrContributionsDisabled = internal.NewValidationError("this item does not accept contributions", internal.ErrCodeContributionsDisabled)
	ErrQuantityExceeded      = internal.NewValidationError("quantity exceeds what is still needed", internal.ErrCodeQuantityExceeded)
	ErrLegacyEndpoint        = internal.NewGoneError("this endpoint has been retired")
)

type Repository interface {
	WithinTx(ctx context.Context, fn func(repo Repository) error) error

	List(ctx context.Context, includeInactive bool) ([]wishlistDatamodel.WishlistItem, error)
	// Totals sums both pledge ledgers for the given items, keyed by item id.
	Totals(ctx context.Context, itemIDs []string) (map[string]Totals, error)
	FindByID(ctx context.Context, id string) (*wishlistDatamodel.WishlistItem, error)
	// LockByID loads the item and holds it against concurrent pledges until the transaction ends.
	LockByID(ctx context.Context, id string) (*wishlistDatamodel.WishlistItem, error)
	CreateItem(ctx context.Context, item *wishlistDatamodel.WishlistItem) error
	UpdateItem(ctx context.Context, id string, fields map[string]interface{}) error

	AddConfirmation(ctx context.Context, c *wishlistDatamodel.WishlistConfirmation) error
	AddContribution(ctx context.Context, c *wishlistDatamodel.WishlistContribution) error
	ListContributions(ctx context.Context, itemID string) ([]wishlistDatamodel.WishlistContribution, error)
}

type ServiceAPI interface {
	ListPublic(ctx context.Context) ([]*Item, error)
	GetPublic(ctx context.Context, id string) (*Item, error)
	Confirm(ctx context.Context, itemID string, dto ConfirmDTO) (*Pledge, error)
	Contribute(ctx context.Context, itemID string, dto ContributeDTO) (*Pledge, error)

	ListAll(ctx context.Context) ([]*Item, error)
	CreateItem(ctx context.Context, dto CreateItemDTO) (*Item, error)
	UpdateItem(ctx context.Context, id string, dto UpdateItemDTO) (*Item, error)
	Deactivate(ctx context.Context, id string) (*Item, error)
	ListContributions(ctx context.Context, id string) ([]Contribution, error)
}

type Service struct {
	repo      Repository
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo Repository, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) ListPublic(ctx context.Context) ([]*Item, error) {
	return s.list(ctx, false)
}

func (s *Service) ListAll(ctx context.Context) ([]*Item, error) {
	return s.list(ctx, true)
}

func (s *Service) GetPublic(ctx context.Context, id string) (*Item, error) {
	item, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if !item.IsActive {
		return nil, ErrItemInactive
	}
	return s.withTotals(ctx, s.repo, item)
}

// Confirm records a donor's promise to buy units of an item, capped at what is still needed.
func (s *Service) Confirm(ctx context.Context, itemID string, dto ConfirmDTO) (*Pledge, error) {
	var (
		item    *wishlistDatamodel.WishlistItem
		row     *wishlistDatamodel.WishlistConfirmation
		updated *Item
	)
	err := s.repo.WithinTx(ctx, func(repo Repository) error {
		var err error
		item, err = s.active(ctx, repo, itemID)
		if err != nil {
			return err
		}
		current, err := s.withTotals(ctx, repo, item)
		if err != nil {
			return err
		}
		if dto.Quantity > current.Progress.RemainingQuantity {
			return ErrQuantityExceeded.WithDetails(map[string]int64{
				"requested": dto.Quantity,
				"remaining": current.Progress.RemainingQuantity,
			})
		}

		row = &wishlistDatamodel.WishlistConfirmation{
			ID:         uuid.NewString(),
			ItemID:     item.ID,
			DonorName:  strings.TrimSpace(dto.DonorName),
			DonorEmail: normalizeEmail(dto.DonorEmail),
			DonorPhone: trimmed(dto.DonorPhone),
			Quantity:   dto.Quantity,
			Note:       trimmed(dto.Note),
			CreatedAt:  s.now(),
		}
		if err := repo.AddConfirmation(ctx, row); err != nil {
			return err
		}
		updated, err = s.withTotals(ctx, repo, item)
		return err
	})
	if err != nil {
		return nil, wrapInternal(err, "failed to record confirmation")
	}

	s.logger.InfoContext(ctx, "wishlist confirmation recorded", "item_id", item.ID, "quantity", row.Quantity)
	s.publish(ctx, events.NewWishlistPledgedEvent(item.ID, item.Name, events.PledgeKindConfirmation,
		row.DonorName, row.DonorEmail, row.Quantity, row.Quantity*item.PriceCents))
	return &Pledge{ID: row.ID, Kind: events.PledgeKindConfirmation, Quantity: row.Quantity, Item: updated, CreatedAt: row.CreatedAt}, nil
}

// Contribute records a monetary gift toward an item. Contributions are not capped.
func (s *Service) Contribute(ctx context.Context, itemID string, dto ContributeDTO) (*Pledge, error) {
	item, err := s.active(ctx, s.repo, itemID)
	if err != nil {
		return nil, err
	}
	if !item.AllowContributions {
		return nil, ErrContributionsDisabled
	}

	row := &wishlistDatamodel.WishlistContribution{
		ID:          uuid.NewString(),
		ItemID:      item.ID,
		DonorName:   strings.TrimSpace(dto.DonorName),
		DonorEmail:  normalizeEmail(dto.DonorEmail),
		DonorPhone:  trimmed(dto.DonorPhone),
		AmountCents: dto.AmountCents,
		Note:        trimmed(dto.Note),
		CreatedAt:   s.now(),
	}
	if err := s.repo.AddContribution(ctx, row); err != nil {
		return nil, internal.NewInternalError("failed to record contribution", err)
	}
	updated, err := s.withTotals(ctx, s.repo, item)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "wishlist contribution recorded", "item_id", item.ID, "amount_cents", row.AmountCents)
	s.publish(ctx, events.NewWishlistPledgedEvent(item.ID, item.Name, events.PledgeKindContribution,
		row.DonorName, row.DonorEmail, 0, row.AmountCents))
	return &Pledge{ID: row.ID, Kind: events.PledgeKindContribution, AmountCents: row.AmountCents, Item: updated, CreatedAt: row.CreatedAt}, nil
}

func (s *Service) CreateItem(ctx context.Context, dto CreateItemDTO) (*Item, error) {
	now := s.now()
	item := &wishlistDatamodel.WishlistItem{
		ID:                 uuid.NewString(),
		Name:               strings.TrimSpace(dto.Name),
		Description:        strings.TrimSpace(dto.Description),
		ImageURL:           trimmed(dto.ImageURL),
		PurchaseURL:        trimmed(dto.PurchaseURL),
		PriceCents:         dto.PriceCents,
		QuantityNeeded:     dto.QuantityNeeded,
		Priority:           dto.Priority,
		IsActive:           true,
		AllowContributions: dto.AllowContributions,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, internal.NewInternalError("failed to create wishlist item", err)
	}
	s.logger.InfoContext(ctx, "wishlist item created", "item_id", item.ID, "grant", grantHolder(ctx))
	return FromDatamodel(item, Totals{ItemID: item.ID}), nil
}

func (s *Service) UpdateItem(ctx context.Context, id string, dto UpdateItemDTO) (*Item, error) {
	fields := map[string]interface{}{}
	if dto.Name != nil {
		fields["name"] = strings.TrimSpace(*dto.Name)
	}
	if dto.Description != nil {
		fields["description"] = strings.TrimSpace(*dto.Description)
	}
	if dto.ImageURL != nil {
		fields["image_url"] = trimmed(dto.ImageURL)
	}
	if dto.PurchaseURL != nil {
		fields["purchase_url"] = trimmed(dto.PurchaseURL)
	}
	if dto.PriceCents != nil {
		fields["price_cents"] = *dto.PriceCents
	}
	if dto.QuantityNeeded != nil {
		fields["quantity_needed"] = *dto.QuantityNeeded
	}
	if dto.Priority != nil {
		fields["priority"] = *dto.Priority
	}
	if dto.IsActive != nil {
		fields["is_active"] = *dto.IsActive
	}
	if dto.AllowContributions != nil {
		fields["allow_contributions"] = *dto.AllowContributions
	}
	return s.update(ctx, id, fields)
}

// Deactivate hides an item from the public list; its pledges are kept.
func (s *Service) Deactivate(ctx context.Context, id string) (*Item, error) {
	return s.update(ctx, id, map[string]interface{}{"is_active": false})
}

func (s *Service) ListContributions(ctx context.Context, id string) ([]Contribution, error) {
	if _, err := s.load(ctx, s.repo, id); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListContributions(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to list contributions", err)
	}
	out := make([]Contribution, 0, len(rows))
	for _, c := range rows {
		out = append(out, Contribution{
			ID:          c.ID,
			DonorName:   c.DonorName,
			DonorEmail:  c.DonorEmail,
			DonorPhone:  c.DonorPhone,
			AmountCents: c.AmountCents,
			Note:        c.Note,
			CreatedAt:   c.CreatedAt,
		})
	}
	return out, nil
}

func (s *Service) update(ctx context.Context, id string, fields map[string]interface{}) (*Item, error) {
	if _, err := s.load(ctx, s.repo, id); err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		fields["updated_at"] = s.now()
		if err := s.repo.UpdateItem(ctx, id, fields); err != nil {
			return nil, internal.NewInternalError("failed to update wishlist item", err)
		}
	}
	item, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "wishlist item updated", "item_id", id, "is_active", item.IsActive, "grant", grantHolder(ctx))
	return s.withTotals(ctx, s.repo, item)
}

func (s *Service) list(ctx context.Context, includeInactive bool) ([]*Item, error) {
	rows, err := s.repo.List(ctx, includeInactive)
	if err != nil {
		return nil, internal.NewInternalError("failed to list wishlist items", err)
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	totals, err := s.repo.Totals(ctx, ids)
	if err != nil {
		return nil, internal.NewInternalError("failed to load wishlist progress", err)
	}
	out := make([]*Item, 0, len(rows))
	for i := range rows {
		out = append(out, FromDatamodel(&rows[i], totals[rows[i].ID]))
	}
	return out, nil
}

func (s *Service) withTotals(ctx context.Context, repo Repository, item *wishlistDatamodel.WishlistItem) (*Item, error) {
	totals, err := repo.Totals(ctx, []string{item.ID})
	if err != nil {
		return nil, internal.NewInternalError("failed to load wishlist progress", err)
	}
	return FromDatamodel(item, totals[item.ID]), nil
}

func (s *Service) active(ctx context.Context, repo Repository, id string) (*wishlistDatamodel.WishlistItem, error) {
	item, err := repo.LockByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, internal.NewInternalError("failed to load wishlist item", err)
	}
	if !item.IsActive {
		return nil, ErrItemInactive
	}
	return item, nil
}

func (s *Service) load(ctx context.Context, repo Repository, id string) (*wishlistDatamodel.WishlistItem, error) {
	item, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, internal.NewInternalError("failed to load wishlist item", err)
	}
	return item, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish event", "event_type", event.EventType(), "error", err)
	}
}

// grantHolder names who is acting on the admin surface for audit logs.
func grantHolder(ctx context.Context) string {
	if p, ok := internal.PrincipalFromContext(ctx); ok {
		return p.Email
	}
	email, _ := internal.WishlistGrantFromContext(ctx)
	return email
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func wrapInternal(err error, msg string) error {
	if _, ok := internal.IsAppError(err); ok {
		return err
	}
	return internal.NewInternalError(msg, err)
}
