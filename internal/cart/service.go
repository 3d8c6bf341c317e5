package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	product "github.com/angelmondragon/ordering-backend/internal/products"
	"github.com/angelmondragon/ordering-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/ordering-backend/pkg/errors"
	"github.com/angelmondragon/ordering-backend/pkg/logger"
	"github.com/angelmondragon/ordering-backend/pkg/types"
)

// Service exposes the server-side cart of an authenticated user.
type Service interface {
	Add(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartItemView, error)
	SetQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*CartItemView, error)
	Remove(ctx context.Context, userID, itemID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID) (*CartView, error)
	Merge(ctx context.Context, userID uuid.UUID, items []AddItemInput) (*CartView, error)
}

type service struct {
	repo    CartRepository
	tx      txRunner
	catalog product.Catalog
	logg    *logger.Logger
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, tx txRunner, catalog product.Catalog, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	return &service{repo: repo, tx: tx, catalog: catalog, logg: logg}, nil
}

func (s *service) Add(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartItemView, error) {
	item, err := s.prepare(ctx, userID, input)
	if err != nil {
		return nil, err
	}
	stored, err := s.repo.Upsert(ctx, item)
	if err != nil {
		return nil, err
	}
	view := toCartItemView(*stored)
	return &view, nil
}

// prepare validates input against the catalog and builds the row to upsert.
// Option names and modifiers are captured from the catalog, never the client.
func (s *service) prepare(ctx context.Context, userID uuid.UUID, input AddItemInput) (*models.CartItem, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	instructions := strings.TrimSpace(input.SpecialInstructions)
	if len(instructions) > maxInstructionsLength {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "special instructions must be at most %d characters", maxInstructionsLength)
	}

	prod, selected, err := s.catalog.ResolveSelection(ctx, input.ProductID, input.Selections)
	if err != nil {
		return nil, err
	}
	if selected == nil {
		selected = types.SelectedOptions{}
	}
	return &models.CartItem{
		UserID:              userID,
		ProductID:           prod.ID,
		Quantity:            input.Quantity,
		SelectedOptions:     selected,
		HasOptions:          len(selected) > 0,
		SpecialInstructions: instructions,
	}, nil
}

func (s *service) SetQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*CartItemView, error) {
	if quantity <= 0 {
		return nil, s.Remove(ctx, userID, itemID)
	}
	updated, err := s.repo.UpdateQuantity(ctx, itemID, userID, quantity)
	if err != nil {
		return nil, err
	}
	if updated == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	item, err := s.repo.FindByIDAndUser(ctx, itemID, userID)
	if err != nil {
		return nil, err
	}
	view := toCartItemView(*item)
	return &view, nil
}

func (s *service) Remove(ctx context.Context, userID, itemID uuid.UUID) error {
	return s.repo.Delete(ctx, itemID, userID)
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.repo.DeleteByUser(ctx, userID)
}

func (s *service) List(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toCartView(items), nil
}

// Merge folds anonymous lines into the user's cart with the Add rules.
// Lines that fail validation are reported as skipped; storage failures
// roll the whole merge back.
func (s *service) Merge(ctx context.Context, userID uuid.UUID, items []AddItemInput) (*CartView, error) {
	prepared := make([]*models.CartItem, 0, len(items))
	var skipped []SkippedItem
	for _, input := range items {
		item, err := s.prepare(ctx, userID, input)
		if err != nil {
			if pkgerrors.CodeOf(err) == pkgerrors.CodeDependency {
				return nil, err
			}
			skipped = append(skipped, SkippedItem{ProductID: input.ProductID, Reason: reasonOf(err)})
			continue
		}
		prepared = append(prepared, item)
	}

	if len(prepared) > 0 {
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			for _, item := range prepared {
				if _, err := repo.Upsert(ctx, item); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if len(skipped) > 0 && s.logg != nil {
		logCtx := s.logg.WithUserID(ctx, userID.String())
		s.logg.Warn(logCtx, fmt.Sprintf("cart merge skipped %d anonymous item(s)", len(skipped)))
	}

	view, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	view.Skipped = skipped
	return view, nil
}

func reasonOf(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Message()
	}
	return err.Error()
}
