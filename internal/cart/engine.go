package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/nilgirisfresh-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/nilgirisfresh-backend/pkg/errors"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/logger"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/redis"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/types"
)

// Owner selects the cart an operation works on. A signed-in owner may also
// carry the guest token of the cart it used before signing in; the engine
// merges that cart before touching the bound one.
type Owner struct {
	UserID       *uuid.UUID
	GuestToken   string
	TransitionID string
}

// Guest returns an unauthenticated owner.
func Guest(token string) Owner {
	return Owner{GuestToken: token}
}

// User returns a signed-in owner.
func User(id uuid.UUID) Owner {
	return Owner{UserID: &id}
}

// Bound reports whether the owner is signed in.
func (o Owner) Bound() bool {
	return o.UserID != nil && *o.UserID != uuid.Nil
}

// Selection is a shopper's pick before it is resolved against the catalog.
type Selection struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
}

// Resolver prices a selection.
type Resolver interface {
	Resolve(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*catalog.Selection, error)
}

// MergeMarkers records sign-in transitions whose guest cart was merged.
type MergeMarkers interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	CartMergeKey(transitionID string) string
}

const (
	markerMerging = "merging"
	markerMerged  = "merged"
	// A claim that never reaches markerMerged lapses after mergeClaimTTL.
	mergeClaimTTL = time.Minute
	mergeWait     = 2 * time.Second
	mergePoll     = 50 * time.Millisecond
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// BindResult describes the outcome of a sign-in transition.
type BindResult struct {
	Merged      bool `json:"merged"`
	MergedLines int  `json:"merged_lines"`
	Cart        View `json:"cart"`
}

// Engine is the single entry point for cart mutations.
type Engine struct {
	resolver  Resolver
	guests    *GuestStore
	bound     *BoundStore
	tx        txRunner
	markers   MergeMarkers
	markerTTL time.Duration
	mergeWait time.Duration
	logg      *logger.Logger
}

// EngineDeps bundles the collaborators of an Engine.
type EngineDeps struct {
	Resolver  Resolver
	Guests    *GuestStore
	Bound     *BoundStore
	Tx        txRunner
	Markers   MergeMarkers
	MarkerTTL time.Duration
	Logger    *logger.Logger
}

// NewEngine wires an Engine.
func NewEngine(deps EngineDeps) (*Engine, error) {
	switch {
	case deps.Resolver == nil:
		return nil, fmt.Errorf("catalog resolver required")
	case deps.Guests == nil:
		return nil, fmt.Errorf("guest store required")
	case deps.Bound == nil:
		return nil, fmt.Errorf("bound store required")
	case deps.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case deps.Markers == nil:
		return nil, fmt.Errorf("merge marker store required")
	case deps.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	ttl := deps.MarkerTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Engine{
		resolver:  deps.Resolver,
		guests:    deps.Guests,
		bound:     deps.Bound,
		tx:        deps.Tx,
		markers:   deps.Markers,
		markerTTL: ttl,
		mergeWait: mergeWait,
		logg:      deps.Logger,
	}, nil
}

func dependencyErr(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

func (e *Engine) prepare(ctx context.Context, owner Owner) error {
	if !owner.Bound() {
		if strings.TrimSpace(owner.GuestToken) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "guest cart token required")
		}
		return nil
	}
	if owner.GuestToken != "" && owner.TransitionID != "" {
		if _, err := e.Bind(ctx, owner.TransitionID, *owner.UserID, owner.GuestToken); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) load(ctx context.Context, owner Owner) (Cart, error) {
	if owner.Bound() {
		c, err := e.bound.Load(ctx, *owner.UserID)
		if err != nil {
			return Cart{}, dependencyErr(err, "load cart")
		}
		return c, nil
	}
	c, err := e.guests.Load(ctx, owner.GuestToken)
	if err != nil {
		return Cart{}, dependencyErr(err, "load guest cart")
	}
	return c, nil
}

func (e *Engine) view(ctx context.Context, owner Owner) (View, error) {
	c, err := e.load(ctx, owner)
	if err != nil {
		return View{}, err
	}
	return NewView(c), nil
}

// Get returns the owner's cart with derived totals.
func (e *Engine) Get(ctx context.Context, owner Owner) (View, error) {
	if err := e.prepare(ctx, owner); err != nil {
		return View{}, err
	}
	return e.view(ctx, owner)
}

// Cart returns the raw bound cart of a signed-in owner after merging any
// pending guest cart. Checkout reads through here.
func (e *Engine) Cart(ctx context.Context, owner Owner) (Cart, error) {
	if !owner.Bound() {
		return Cart{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to check out")
	}
	if err := e.prepare(ctx, owner); err != nil {
		return Cart{}, err
	}
	return e.load(ctx, owner)
}

// Settle takes the lines an order paid for out of the user's bound cart.
// Quantities added after the payment opened stay in the cart.
func (e *Engine) Settle(ctx context.Context, userID uuid.UUID, paid types.OrderLines) error {
	err := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		store := e.bound.WithTx(tx)
		current, err := store.Load(ctx, userID)
		if err != nil {
			return err
		}
		for _, line := range paid {
			key := KeyFor(line.ProductID, line.VariantID)
			item, ok := current.Find(key)
			if !ok {
				continue
			}
			if left := item.Quantity - line.Quantity; left > 0 {
				_, err = store.SetQuantity(ctx, userID, key, left)
			} else {
				_, err = store.Remove(ctx, userID, key)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return dependencyErr(err, "settle cart")
	}
	return nil
}

// AddItem resolves the selection against the catalog and adds quantity units.
func (e *Engine) AddItem(ctx context.Context, owner Owner, sel Selection, quantity int) (View, error) {
	if quantity < 1 {
		return View{}, pkgerrors.New(pkgerrors.CodeValidation, ErrInvalidQuantity.Error())
	}
	if err := e.prepare(ctx, owner); err != nil {
		return View{}, err
	}
	resolved, err := e.resolver.Resolve(ctx, sel.ProductID, sel.VariantID)
	if err != nil {
		return View{}, dependencyErr(err, "resolve selection")
	}
	item := lineFromSelection(*resolved)

	if owner.Bound() {
		if err := e.bound.Add(ctx, *owner.UserID, item, quantity); err != nil {
			return View{}, dependencyErr(err, "add cart item")
		}
		return e.view(ctx, owner)
	}

	c, err := e.load(ctx, owner)
	if err != nil {
		return View{}, err
	}
	if err := c.Add(item, quantity); err != nil {
		return View{}, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	if err := e.guests.Save(ctx, owner.GuestToken, c); err != nil {
		return View{}, dependencyErr(err, "save guest cart")
	}
	return NewView(c), nil
}

// UpdateQuantity sets a line's quantity. Zero or less removes the line; an
// unknown key is NOT_FOUND.
func (e *Engine) UpdateQuantity(ctx context.Context, owner Owner, productID uuid.UUID, variantID *uuid.UUID, quantity int) (View, error) {
	if quantity <= 0 {
		return e.RemoveItem(ctx, owner, productID, variantID)
	}
	if err := e.prepare(ctx, owner); err != nil {
		return View{}, err
	}
	key := KeyFor(productID, variantID)

	if owner.Bound() {
		found, err := e.bound.SetQuantity(ctx, *owner.UserID, key, quantity)
		if err != nil {
			return View{}, dependencyErr(err, "update cart item")
		}
		if !found {
			return View{}, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return e.view(ctx, owner)
	}

	c, err := e.load(ctx, owner)
	if err != nil {
		return View{}, err
	}
	if !c.Update(key, quantity) {
		return View{}, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	if err := e.guests.Save(ctx, owner.GuestToken, c); err != nil {
		return View{}, dependencyErr(err, "save guest cart")
	}
	return NewView(c), nil
}

// RemoveItem deletes a line. Removing an absent line succeeds.
func (e *Engine) RemoveItem(ctx context.Context, owner Owner, productID uuid.UUID, variantID *uuid.UUID) (View, error) {
	if err := e.prepare(ctx, owner); err != nil {
		return View{}, err
	}
	key := KeyFor(productID, variantID)

	if owner.Bound() {
		if _, err := e.bound.Remove(ctx, *owner.UserID, key); err != nil {
			return View{}, dependencyErr(err, "remove cart item")
		}
		return e.view(ctx, owner)
	}

	c, err := e.load(ctx, owner)
	if err != nil {
		return View{}, err
	}
	if c.Remove(key) {
		if err := e.guests.Save(ctx, owner.GuestToken, c); err != nil {
			return View{}, dependencyErr(err, "save guest cart")
		}
	}
	return NewView(c), nil
}

// Clear empties the owner's cart.
func (e *Engine) Clear(ctx context.Context, owner Owner) error {
	if owner.Bound() {
		if err := e.bound.Clear(ctx, *owner.UserID); err != nil {
			return dependencyErr(err, "clear cart")
		}
		return nil
	}
	if strings.TrimSpace(owner.GuestToken) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "guest cart token required")
	}
	if err := e.guests.Erase(ctx, owner.GuestToken); err != nil {
		return dependencyErr(err, "clear guest cart")
	}
	return nil
}

// Bind moves the guest cart into the user's bound cart. Every guest line is
// added to the bound cart by key and the guest document is erased inside one
// transaction. The merge runs at most once per transitionID; a concurrent
// call for the same sign-in waits for the running merge, and repeated calls
// return the bound cart unchanged.
func (e *Engine) Bind(ctx context.Context, transitionID string, userID uuid.UUID, guestToken string) (BindResult, error) {
	owner := User(userID)
	if strings.TrimSpace(transitionID) == "" {
		return BindResult{}, pkgerrors.New(pkgerrors.CodeValidation, "sign-in transition id required")
	}
	if strings.TrimSpace(guestToken) == "" {
		v, err := e.view(ctx, owner)
		return BindResult{Cart: v}, err
	}

	guest, err := e.guests.Load(ctx, guestToken)
	if err != nil {
		return BindResult{}, dependencyErr(err, "load guest cart")
	}
	if guest.Empty() {
		v, err := e.view(ctx, owner)
		return BindResult{Cart: v}, err
	}

	markerKey := e.markers.CartMergeKey(transitionID)
	acquired, err := e.markers.SetNX(ctx, markerKey, markerMerging, mergeClaimTTL)
	if err != nil {
		return BindResult{}, dependencyErr(err, "claim cart merge")
	}
	if !acquired {
		if err := e.awaitMerge(ctx, markerKey); err != nil {
			return BindResult{}, err
		}
		v, err := e.view(ctx, owner)
		return BindResult{Cart: v}, err
	}

	erased := false
	if err := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		store := e.bound.WithTx(tx)
		for _, item := range guest.Items {
			if err := store.Add(ctx, userID, item, item.Quantity); err != nil {
				return err
			}
		}
		if err := e.guests.Erase(ctx, guestToken); err != nil {
			return err
		}
		erased = true
		return nil
	}); err != nil {
		if erased {
			if saveErr := e.guests.Save(context.WithoutCancel(ctx), guestToken, guest); saveErr != nil {
				e.logg.Error(ctx, "restore guest cart after failed merge", saveErr)
			}
		}
		if delErr := e.markers.Del(ctx, markerKey); delErr != nil {
			e.logg.Warn(ctx, fmt.Sprintf("release cart merge marker: %v", delErr))
		}
		if errors.Is(err, ErrInvalidQuantity) {
			return BindResult{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "guest cart holds an invalid line")
		}
		return BindResult{}, dependencyErr(err, "merge guest cart")
	}

	if err := e.markers.Set(ctx, markerKey, markerMerged, e.markerTTL); err != nil {
		// The guest document is gone, so a lapsed claim cannot merge twice.
		e.logg.Warn(ctx, fmt.Sprintf("record cart merge marker: %v", err))
	}
	e.logg.Info(e.logg.WithFields(ctx, map[string]any{"user_id": userID.String(), "merged_lines": len(guest.Items)}), "guest cart merged")

	v, err := e.view(ctx, owner)
	return BindResult{Merged: true, MergedLines: len(guest.Items), Cart: v}, err
}

// awaitMerge blocks while another request holds the merge claim for the
// same transition.
func (e *Engine) awaitMerge(ctx context.Context, markerKey string) error {
	deadline := time.Now().Add(e.mergeWait)
	for {
		state, err := e.markers.Get(ctx, markerKey)
		if err != nil && !redis.IsNil(err) {
			return dependencyErr(err, "read cart merge marker")
		}
		if state != markerMerging {
			return nil
		}
		if time.Now().After(deadline) {
			return pkgerrors.New(pkgerrors.CodeConflict, "cart merge in progress, retry shortly")
		}
		select {
		case <-ctx.Done():
			return dependencyErr(ctx.Err(), "wait for cart merge")
		case <-time.After(mergePoll):
		}
	}
}

func lineFromSelection(sel catalog.Selection) LineItem {
	return LineItem{
		ProductID:    sel.ProductID,
		VariantID:    sel.VariantID,
		DisplayName:  sel.Name,
		VariantLabel: sel.VariantLabel,
		Description:  sel.Description,
		UnitPrice:    sel.UnitPrice,
		PackSize:     sel.PackSize,
		ImageRef:     sel.ImageRef,
	}
}
