package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/nilgirisfresh-backend/pkg/db/dbtest"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/db/models"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/enums"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/pagination"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/types"
)

var baseTime = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newOrder(userID uuid.UUID, ref string, status enums.OrderStatus, createdAt time.Time) *models.Order {
	label := "Premium - 250g"
	price := decimal.RequireFromString("420.00")
	return &models.Order{
		UserID:       userID,
		CustomerName: "Anita Rao",
		Phone:        "9876543210",
		AddressLine1: "12 Tea Garden Road",
		City:         "Ooty",
		State:        "Tamil Nadu",
		Pincode:      "643001",
		Items: types.OrderLines{{
			ProductID:    uuid.New(),
			Name:         "Nilgiri Black Tea",
			VariantLabel: &label,
			PackSize:     "250g",
			UnitPrice:    price,
			Quantity:     2,
			LineTotal:    price.Mul(decimal.NewFromInt(2)),
		}},
		TotalAmount:      price.Mul(decimal.NewFromInt(2)),
		Currency:         "inr",
		PaymentReference: ref,
		Status:           status,
		CreatedAt:        createdAt,
		UpdatedAt:        createdAt,
	}
}

func TestRepositoryCreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))

	userID := uuid.New()
	order := newOrder(userID, "pi_find", enums.OrderStatusPending, baseTime)
	require.NoError(t, repo.Create(ctx, order))
	require.NotEqual(t, uuid.Nil, order.ID)

	byID, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, userID, byID.UserID)
	require.Len(t, byID.Items, 1)
	assert.Equal(t, "Premium - 250g", *byID.Items[0].VariantLabel)
	assert.True(t, byID.TotalAmount.Equal(decimal.RequireFromString("840")))

	byRef, err := repo.FindByPaymentReference(ctx, "pi_find")
	require.NoError(t, err)
	require.NotNil(t, byRef)
	assert.Equal(t, order.ID, byRef.ID)

	missing, err := repo.FindByPaymentReference(ctx, "pi_missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepositoryRejectsDuplicatePaymentReference(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))

	require.NoError(t, repo.Create(ctx, newOrder(uuid.New(), "pi_dup", enums.OrderStatusPending, baseTime)))
	err := repo.Create(ctx, newOrder(uuid.New(), "pi_dup", enums.OrderStatusPending, baseTime))
	require.Error(t, err)
}

func TestRepositoryListPaginatesNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))

	userID := uuid.New()
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, newOrder(userID, "pi_page_"+string(rune('a'+i)), enums.OrderStatusPending, baseTime.Add(time.Duration(i)*time.Minute))))
	}
	require.NoError(t, repo.Create(ctx, newOrder(uuid.New(), "pi_other", enums.OrderStatusPending, baseTime)))

	rows, err := repo.List(ctx, ListQuery{UserID: &userID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "pi_page_e", rows[0].PaymentReference)
	assert.Equal(t, "pi_page_d", rows[1].PaymentReference)

	cursor := &pagination.Cursor{CreatedAt: rows[1].CreatedAt, ID: rows[1].ID}
	next, err := repo.List(ctx, ListQuery{UserID: &userID, Cursor: cursor, Limit: 2})
	require.NoError(t, err)
	require.Len(t, next, 3)
	assert.Equal(t, "pi_page_c", next[0].PaymentReference)
}

func TestRepositoryStatusFilterAndCounts(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))

	require.NoError(t, repo.Create(ctx, newOrder(uuid.New(), "pi_1", enums.OrderStatusPending, baseTime)))
	require.NoError(t, repo.Create(ctx, newOrder(uuid.New(), "pi_2", enums.OrderStatusPending, baseTime.Add(time.Minute))))
	require.NoError(t, repo.Create(ctx, newOrder(uuid.New(), "pi_3", enums.OrderStatusShipped, baseTime.Add(2*time.Minute))))

	shipped := enums.OrderStatusShipped
	rows, err := repo.List(ctx, ListQuery{Status: &shipped})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "pi_3", rows[0].PaymentReference)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[enums.OrderStatusPending])
	assert.Equal(t, int64(1), counts[enums.OrderStatusShipped])
}

func TestRepositoryUpdateStatusIsConditional(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))

	order := newOrder(uuid.New(), "pi_cond", enums.OrderStatusPending, baseTime)
	require.NoError(t, repo.Create(ctx, order))

	ok, err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusConfirmed)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UpdateStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusCancelled)
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, stored.Status)
	assert.Equal(t, "Anita Rao", stored.CustomerName)
}
