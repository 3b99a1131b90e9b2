package cart

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/nilgirisfresh-backend/internal/catalog"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/nilgirisfresh-backend/pkg/errors"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/logger"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/types"
)

type memoryKV struct {
	mu      sync.Mutex
	values  map[string]string
	setNXes int
	failSet error
	failDel error
}

func newMemoryKV() *memoryKV {
	return &memoryKV{values: map[string]string{}}
}

func (m *memoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (m *memoryKV) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet != nil {
		return m.failSet
	}
	m.values[key] = value.(string)
	return nil
}

func (m *memoryKV) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setNXes++
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryKV) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDel != nil {
		return m.failDel
	}
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *memoryKV) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.values[key]
	return ok
}

func (m *memoryKV) GuestCartKey(token string) string      { return "nf:cart:guest:" + token }
func (m *memoryKV) CartMergeKey(transition string) string { return "nf:cart:merged:" + transition }

type stubResolver struct {
	prices map[uuid.UUID]decimal.Decimal
}

func (s stubResolver) Resolve(_ context.Context, productID uuid.UUID, variantID *uuid.UUID) (*catalog.Selection, error) {
	price, ok := s.prices[productID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	sel := &catalog.Selection{
		ProductID: productID,
		VariantID: variantID,
		Name:      "Tea " + productID.String()[:4],
		UnitPrice: price,
		PackSize:  "250g",
	}
	if variantID != nil {
		label := "Premium - 500g"
		sel.VariantLabel = &label
		sel.UnitPrice = price.Add(decimal.NewFromInt(50))
	}
	return sel, nil
}

type engineFixture struct {
	engine *Engine
	kv     *memoryKV
	teaID  uuid.UUID
	dustID uuid.UUID
}

func newEngineFixture(t *testing.T) engineFixture {
	t.Helper()
	client := dbtest.Client(t)
	kv := newMemoryKV()
	tea, dust := uuid.New(), uuid.New()
	guests, err := NewGuestStore(kv, time.Hour)
	require.NoError(t, err)
	engine, err := NewEngine(EngineDeps{
		Resolver: stubResolver{prices: map[uuid.UUID]decimal.Decimal{
			tea:  decimal.NewFromInt(180),
			dust: decimal.RequireFromString("99.50"),
		}},
		Guests:  guests,
		Bound:   NewBoundStore(client.DB()),
		Tx:      client,
		Markers: kv,
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return engineFixture{engine: engine, kv: kv, teaID: tea, dustID: dust}
}

func TestGuestCartLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	guest := Guest("g-1")

	view, err := f.engine.AddItem(ctx, guest, Selection{ProductID: f.teaID}, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, view.TotalItems)
	assert.True(t, view.TotalAmount.Equal(decimal.NewFromInt(360)))

	view, err = f.engine.AddItem(ctx, guest, Selection{ProductID: f.teaID}, 1)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 3, view.Items[0].Quantity)

	_, err = f.engine.UpdateQuantity(ctx, guest, f.dustID, nil, 3)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	view, err = f.engine.UpdateQuantity(ctx, guest, f.teaID, nil, 0)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.False(t, f.kv.has("nf:cart:guest:g-1"), "empty guest cart should be erased")

	_, err = f.engine.RemoveItem(ctx, guest, f.teaID, nil)
	require.NoError(t, err, "remove is idempotent")
}

func TestAddItemRejectsBadQuantityAndMissingToken(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)

	_, err := f.engine.AddItem(ctx, Guest("g"), Selection{ProductID: f.teaID}, 0)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.engine.AddItem(ctx, Guest(""), Selection{ProductID: f.teaID}, 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.engine.AddItem(ctx, Guest("g"), Selection{ProductID: uuid.New()}, 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestBoundCartMutations(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	user := User(uuid.New())
	variant := uuid.New()

	_, err := f.engine.AddItem(ctx, user, Selection{ProductID: f.teaID}, 1)
	require.NoError(t, err)
	_, err = f.engine.AddItem(ctx, user, Selection{ProductID: f.teaID, VariantID: &variant}, 2)
	require.NoError(t, err)
	view, err := f.engine.AddItem(ctx, user, Selection{ProductID: f.teaID}, 4)
	require.NoError(t, err)

	require.Len(t, view.Items, 2)
	assert.Equal(t, 7, view.TotalItems)
	// 5 x 180 + 2 x 230
	assert.True(t, view.TotalAmount.Equal(decimal.NewFromInt(1360)), view.TotalAmount.String())

	view, err = f.engine.UpdateQuantity(ctx, user, f.teaID, &variant, 1)
	require.NoError(t, err)
	assert.Equal(t, 6, view.TotalItems)

	_, err = f.engine.UpdateQuantity(ctx, user, f.dustID, nil, 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	view, err = f.engine.UpdateQuantity(ctx, user, f.teaID, &variant, -1)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)

	require.NoError(t, f.engine.Clear(ctx, user))
	view, err = f.engine.Get(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestBindMergesAdditivelyExactlyOnce(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	userID := uuid.New()

	_, err := f.engine.AddItem(ctx, User(userID), Selection{ProductID: f.teaID}, 1)
	require.NoError(t, err)

	guest := Guest("g-merge")
	_, err = f.engine.AddItem(ctx, guest, Selection{ProductID: f.teaID}, 2)
	require.NoError(t, err)
	_, err = f.engine.AddItem(ctx, guest, Selection{ProductID: f.dustID}, 3)
	require.NoError(t, err)

	res, err := f.engine.Bind(ctx, "jti-1", userID, "g-merge")
	require.NoError(t, err)
	assert.True(t, res.Merged)
	assert.Equal(t, 2, res.MergedLines)
	require.Len(t, res.Cart.Items, 2)
	assert.Equal(t, 6, res.Cart.TotalItems)
	assert.False(t, f.kv.has("nf:cart:guest:g-merge"), "guest document erased after merge")

	// The client repeats the bind (re-render) and the guest token is somehow
	// repopulated; the same transition must not merge again.
	_, err = f.engine.AddItem(ctx, guest, Selection{ProductID: f.teaID}, 5)
	require.NoError(t, err)
	res, err = f.engine.Bind(ctx, "jti-1", userID, "g-merge")
	require.NoError(t, err)
	assert.False(t, res.Merged)
	assert.Equal(t, 6, res.Cart.TotalItems)

	// A new sign-in transition merges again.
	res, err = f.engine.Bind(ctx, "jti-2", userID, "g-merge")
	require.NoError(t, err)
	assert.True(t, res.Merged)
	assert.Equal(t, 11, res.Cart.TotalItems)
}

func TestBindWithEmptyGuestCartSkipsMarker(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)

	res, err := f.engine.Bind(ctx, "jti-empty", uuid.New(), "nobody")
	require.NoError(t, err)
	assert.False(t, res.Merged)
	assert.Equal(t, 0, f.kv.setNXes)

	_, err = f.engine.Bind(ctx, "", uuid.New(), "nobody")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestBoundReadMergesPendingGuestCartFirst(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	userID := uuid.New()

	_, err := f.engine.AddItem(ctx, Guest("g-read"), Selection{ProductID: f.dustID}, 2)
	require.NoError(t, err)

	owner := User(userID)
	owner.GuestToken = "g-read"
	owner.TransitionID = "jti-read"
	view, err := f.engine.Get(ctx, owner)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Items[0].Quantity)

	view, err = f.engine.Get(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 2, view.TotalItems, "second read must not merge again")
}

func TestGuestStoreErrorsSurfaceAsDependency(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	f.kv.failSet = errors.New("redis down")

	_, err := f.engine.AddItem(ctx, Guest("g-err"), Selection{ProductID: f.teaID}, 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestCheckoutReadMergesPendingGuestCart(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	userID := uuid.New()

	_, err := f.engine.AddItem(ctx, Guest("g-checkout"), Selection{ProductID: f.teaID}, 2)
	require.NoError(t, err)

	owner := User(userID)
	owner.GuestToken = "g-checkout"
	owner.TransitionID = "jti-checkout"
	c, err := f.engine.Cart(ctx, owner)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)

	view, err := f.engine.Get(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 2, view.TotalItems, "the same headers must not merge a second time")

	_, err = f.engine.Cart(ctx, Guest("g-checkout"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestSettleKeepsLinesAddedAfterPayment(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	userID := uuid.New()
	user := User(userID)

	_, err := f.engine.AddItem(ctx, user, Selection{ProductID: f.teaID}, 2)
	require.NoError(t, err)
	paid, err := f.engine.Cart(ctx, user)
	require.NoError(t, err)

	// The payment form is open while the shopper keeps shopping.
	_, err = f.engine.AddItem(ctx, user, Selection{ProductID: f.teaID}, 1)
	require.NoError(t, err)
	_, err = f.engine.AddItem(ctx, user, Selection{ProductID: f.dustID}, 4)
	require.NoError(t, err)

	require.NoError(t, f.engine.Settle(ctx, userID, paid.Snapshot()))

	view, err := f.engine.Get(ctx, user)
	require.NoError(t, err)
	left := map[uuid.UUID]int{}
	for _, item := range view.Items {
		left[item.ProductID] = item.Quantity
	}
	assert.Equal(t, map[uuid.UUID]int{f.teaID: 1, f.dustID: 4}, left, "only the paid quantity leaves the cart")

	require.NoError(t, f.engine.Settle(ctx, userID, types.OrderLines{
		{ProductID: f.teaID, Quantity: 5},
		{ProductID: uuid.New(), Quantity: 1},
	}))
	view, err = f.engine.Get(ctx, user)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, f.dustID, view.Items[0].ProductID)
}

func TestBindRollsBackWhenGuestCartCannotBeErased(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	userID := uuid.New()

	_, err := f.engine.AddItem(ctx, Guest("g-stuck"), Selection{ProductID: f.teaID}, 3)
	require.NoError(t, err)

	f.kv.failDel = errors.New("redis down")
	_, err = f.engine.Bind(ctx, "jti-stuck", userID, "g-stuck")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	f.kv.failDel = nil
	bound, err := f.engine.Get(ctx, User(userID))
	require.NoError(t, err)
	assert.Empty(t, bound.Items, "merge must not commit while the guest cart survives")
	assert.True(t, f.kv.has("nf:cart:guest:g-stuck"))

	res, err := f.engine.Bind(ctx, "jti-retry", userID, "g-stuck")
	require.NoError(t, err)
	assert.True(t, res.Merged)
	assert.Equal(t, 3, res.Cart.TotalItems)
}

func TestBindWaitsForRunningMerge(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	f.engine.mergeWait = 20 * time.Millisecond
	userID := uuid.New()

	_, err := f.engine.AddItem(ctx, Guest("g-race"), Selection{ProductID: f.teaID}, 1)
	require.NoError(t, err)

	marker := f.kv.CartMergeKey("jti-race")
	require.NoError(t, f.kv.Set(ctx, marker, markerMerging, time.Minute))
	_, err = f.engine.Bind(ctx, "jti-race", userID, "g-race")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	require.NoError(t, f.kv.Set(ctx, marker, markerMerged, time.Minute))
	res, err := f.engine.Bind(ctx, "jti-race", userID, "g-race")
	require.NoError(t, err)
	assert.False(t, res.Merged)
}
