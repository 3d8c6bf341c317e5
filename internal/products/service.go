package product

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/ordering-backend/pkg/db/models"
	"github.com/angelmondragon/ordering-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ordering-backend/pkg/errors"
	"github.com/angelmondragon/ordering-backend/pkg/types"
)

type catalogRepository interface {
	FindWithOptions(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

// Catalog is the read surface the cart and checkout services depend on.
type Catalog interface {
	ResolveSelection(ctx context.Context, productID uuid.UUID, selections []Selection) (*models.Product, types.SelectedOptions, error)
	ProductsByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

type Service struct {
	repo catalogRepository
}

func NewService(repo catalogRepository) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &Service{repo: repo}, nil
}

// ProductOptions returns the option groups of an available product.
func (s *Service) ProductOptions(ctx context.Context, productID uuid.UUID) (*ProductOptionsDTO, error) {
	product, err := s.repo.FindWithOptions(ctx, productID)
	if err != nil {
		return nil, err
	}
	dto := toProductOptionsDTO(product)
	return &dto, nil
}

func (s *Service) ProductsByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	return s.repo.FindByIDs(ctx, ids)
}

// ResolveSelection validates the client's option picks against the product's
// option groups and returns the captured SelectedOptions, in group then
// option sort order.
func (s *Service) ResolveSelection(ctx context.Context, productID uuid.UUID, selections []Selection) (*models.Product, types.SelectedOptions, error) {
	product, err := s.repo.FindWithOptions(ctx, productID)
	if err != nil {
		return nil, nil, err
	}
	if !product.IsAvailable {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s is currently unavailable", product.Name))
	}
	selected, err := Resolve(product, selections)
	if err != nil {
		return nil, nil, err
	}
	return product, selected, nil
}

// Resolve applies the option rules to an already-loaded product:
// every option must belong to the product, no option twice, group counts
// within [min, max], and required groups satisfied.
func Resolve(product *models.Product, selections []Selection) (types.SelectedOptions, error) {
	type located struct {
		group  *models.OptionGroup
		option *models.Option
	}
	index := map[uuid.UUID]located{}
	for gi := range product.OptionGroups {
		group := &product.OptionGroups[gi]
		for oi := range group.Options {
			index[group.Options[oi].ID] = located{group: group, option: &group.Options[oi]}
		}
	}

	chosen := map[uuid.UUID]bool{}
	perGroup := map[uuid.UUID]int{}
	for _, sel := range selections {
		hit, ok := index[sel.OptionID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "selected option does not belong to this product").
				WithDetails(map[string]any{"option_id": sel.OptionID})
		}
		if sel.GroupID != uuid.Nil && sel.GroupID != hit.group.ID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "selected option does not belong to the given group").
				WithDetails(map[string]any{"option_id": sel.OptionID, "group_id": sel.GroupID})
		}
		if chosen[sel.OptionID] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "option selected more than once").
				WithDetails(map[string]any{"option_id": sel.OptionID})
		}
		chosen[sel.OptionID] = true
		perGroup[hit.group.ID]++
	}

	selected := types.SelectedOptions{}
	for _, group := range product.OptionGroups {
		count := perGroup[group.ID]
		if count > group.MaxSelections {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("choose at most %d for %s", group.MaxSelections, group.Name))
		}
		min := group.MinSelections
		if group.IsRequired && min < 1 {
			min = 1
		}
		if (group.IsRequired || count > 0) && count < min {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("choose at least %d for %s", min, group.Name))
		}
		for _, opt := range group.Options {
			if !chosen[opt.ID] {
				continue
			}
			selected = append(selected, types.SelectedOption{
				GroupID:       group.ID,
				GroupName:     group.Name,
				OptionID:      opt.ID,
				OptionName:    opt.Name,
				PriceModifier: opt.PriceModifier,
			})
		}
	}
	return selected, nil
}

// AvailableFor reports whether the product can be ordered on the channel.
func AvailableFor(product models.Product, orderType enums.OrderType) bool {
	if !product.IsAvailable {
		return false
	}
	switch orderType {
	case enums.OrderTypeDelivery:
		return product.DeliveryAvailable
	case enums.OrderTypePickup:
		return product.PickupAvailable
	default:
		return false
	}
}
