// Package anoncart keeps a guest's cart in a signed cookie until they sign in.
package anoncart

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/angelmondragon/ordering-backend/internal/cart"
	product "github.com/angelmondragon/ordering-backend/internal/products"
	"github.com/angelmondragon/ordering-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/ordering-backend/pkg/errors"
	"github.com/angelmondragon/ordering-backend/pkg/pricing"
	"github.com/angelmondragon/ordering-backend/pkg/types"
)

const (
	itemsKey = "items"
	// A cookie holds at most 4096 bytes once encoded.
	maxLines = 20
)

// Item is one guest cart line. Only ids are stored; names and prices are
// re-read from the catalog whenever the cart is viewed or merged.
type Item struct {
	ID                  uuid.UUID           `json:"id"`
	ProductID           uuid.UUID           `json:"product_id"`
	Quantity            int                 `json:"quantity"`
	Selections          []product.Selection `json:"selected_options,omitempty"`
	SpecialInstructions string              `json:"special_instructions,omitempty"`
}

// Store reads and writes the guest cart cookie.
type Store struct {
	cookies sessions.Store
	name    string
	catalog product.Catalog
}

// NewStore builds a cookie-backed guest cart.
func NewStore(cfg config.CartSessionConfig, catalog product.Catalog) (*Store, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, fmt.Errorf("cart session secret required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	name := strings.TrimSpace(cfg.CookieName)
	if name == "" {
		name = "guest_cart"
	}
	cookies := sessions.NewCookieStore([]byte(cfg.Secret))
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int((time.Duration(cfg.MaxAgeDays) * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Store{cookies: cookies, name: name, catalog: catalog}, nil
}

// Items returns the lines stored in the request's cookie. A missing or
// tampered cookie reads as an empty cart.
func (s *Store) Items(r *http.Request) []Item {
	sess, err := s.cookies.Get(r, s.name)
	if err != nil || sess == nil {
		return []Item{}
	}
	raw, ok := sess.Values[itemsKey].(string)
	if !ok || raw == "" {
		return []Item{}
	}
	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return []Item{}
	}
	return items
}

// Add validates the line against the catalog and folds it into the cookie
// cart with the same merge rule the server cart uses.
func (s *Store) Add(ctx context.Context, w http.ResponseWriter, r *http.Request, input cart.AddItemInput) ([]Item, error) {
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	input.SpecialInstructions = strings.TrimSpace(input.SpecialInstructions)
	if _, _, err := s.catalog.ResolveSelection(ctx, input.ProductID, input.Selections); err != nil {
		return nil, err
	}

	items := s.Items(r)
	items, err := addLine(items, input)
	if err != nil {
		return nil, err
	}
	return items, s.save(w, r, items)
}

// SetQuantity updates a line; a quantity of zero or less removes it.
func (s *Store) SetQuantity(w http.ResponseWriter, r *http.Request, id uuid.UUID, quantity int) ([]Item, error) {
	items := s.Items(r)
	found := false
	next := items[:0]
	for _, item := range items {
		if item.ID == id {
			found = true
			if quantity <= 0 {
				continue
			}
			item.Quantity = quantity
		}
		next = append(next, item)
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return next, s.save(w, r, next)
}

// Remove deletes a line; removing an unknown id is not an error.
func (s *Store) Remove(w http.ResponseWriter, r *http.Request, id uuid.UUID) ([]Item, error) {
	items := s.Items(r)
	next := items[:0]
	for _, item := range items {
		if item.ID != id {
			next = append(next, item)
		}
	}
	return next, s.save(w, r, next)
}

// Clear expires the cookie.
func (s *Store) Clear(w http.ResponseWriter, r *http.Request) error {
	sess, err := s.cookies.Get(r, s.name)
	if sess == nil {
		return err
	}
	sess.Values = map[any]any{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// View prices the guest cart against the current catalog. Lines whose
// product or options are no longer valid are reported as skipped.
func (s *Store) View(ctx context.Context, items []Item) (*cart.CartView, error) {
	view := &cart.CartView{Items: make([]cart.CartItemView, 0, len(items))}
	for _, item := range items {
		prod, selected, err := s.catalog.ResolveSelection(ctx, item.ProductID, item.Selections)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
				return nil, err
			}
			view.Skipped = append(view.Skipped, cart.SkippedItem{ProductID: item.ProductID, Reason: err.Error()})
			continue
		}
		if selected == nil {
			selected = types.SelectedOptions{}
		}
		line := cart.CartItemView{
			ID:                  item.ID,
			ProductID:           prod.ID,
			ProductName:         prod.Name,
			ImageURL:            prod.ImageURL,
			BasePrice:           prod.Price,
			Quantity:            item.Quantity,
			SelectedOptions:     selected,
			SpecialInstructions: item.SpecialInstructions,
			UnitPrice:           pricing.UnitPrice(prod.Price, selected),
			LineTotal:           pricing.LineTotal(prod.Price, selected, item.Quantity),
			IsAvailable:         prod.IsAvailable,
			DeliveryAvailable:   prod.DeliveryAvailable,
			PickupAvailable:     prod.PickupAvailable,
		}
		view.Items = append(view.Items, line)
		view.Subtotal = view.Subtotal.Add(line.LineTotal)
		view.ItemCount += line.Quantity
	}
	return view, nil
}

// MergeInputs converts guest lines into server cart inputs.
func MergeInputs(items []Item) []cart.AddItemInput {
	out := make([]cart.AddItemInput, 0, len(items))
	for _, item := range items {
		out = append(out, cart.AddItemInput{
			ProductID:           item.ProductID,
			Quantity:            item.Quantity,
			Selections:          item.Selections,
			SpecialInstructions: item.SpecialInstructions,
		})
	}
	return out
}

func addLine(items []Item, input cart.AddItemInput) ([]Item, error) {
	if len(input.Selections) == 0 {
		for i := range items {
			if items[i].ProductID == input.ProductID &&
				len(items[i].Selections) == 0 &&
				items[i].SpecialInstructions == input.SpecialInstructions {
				items[i].Quantity += input.Quantity
				return items, nil
			}
		}
	}
	if len(items) >= maxLines {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "guest cart is limited to %d lines, sign in to add more", maxLines)
	}
	return append(items, Item{
		ID:                  uuid.New(),
		ProductID:           input.ProductID,
		Quantity:            input.Quantity,
		Selections:          input.Selections,
		SpecialInstructions: input.SpecialInstructions,
	}), nil
}

func (s *Store) save(w http.ResponseWriter, r *http.Request, items []Item) error {
	sess, err := s.cookies.Get(r, s.name)
	if sess == nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "open guest cart")
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode guest cart")
	}
	sess.Values[itemsKey] = string(raw)
	if err := sess.Save(r, w); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save guest cart")
	}
	return nil
}
