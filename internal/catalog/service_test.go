package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/nilgirisfresh-backend/pkg/db/dbtest"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/nilgirisfresh-backend/pkg/errors"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	client := dbtest.Client(t)
	svc, err := NewService(NewRepository(client.DB()), client)
	require.NoError(t, err)
	return svc
}

func seedTea(t *testing.T, svc Service) *ProductDTO {
	t.Helper()
	ctx := context.Background()
	product, err := svc.CreateProduct(ctx, ProductInput{
		Name:     "Nilgiri Black Tea",
		Price:    decimal.RequireFromString("250.00"),
		PackSize: "250g",
	})
	require.NoError(t, err)
	return product
}

func TestResolveWithoutVariantsUsesProductPrice(t *testing.T) {
	svc := newTestService(t)
	product := seedTea(t, svc)

	sel, err := svc.Resolve(context.Background(), product.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, sel.VariantID)
	assert.Nil(t, sel.VariantLabel)
	assert.True(t, sel.UnitPrice.Equal(decimal.NewFromInt(250)))
	assert.Equal(t, "250g", sel.PackSize)
}

func TestResolveAppliesDefaultVariant(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	product := seedTea(t, svc)

	_, err := svc.CreateVariant(ctx, product.ID, VariantInput{
		Name: "Regular", Type: enums.VariantTypeQuality, PackSize: "250g", Price: decimal.NewFromInt(250),
	})
	require.NoError(t, err)
	premium, err := svc.CreateVariant(ctx, product.ID, VariantInput{
		Name: "Premium", Type: enums.VariantTypeQuality, PackSize: "500g", Price: decimal.NewFromInt(480), IsDefault: true,
	})
	require.NoError(t, err)

	sel, err := svc.Resolve(ctx, product.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, sel.VariantID)
	assert.Equal(t, premium.ID, *sel.VariantID)
	assert.Equal(t, "Premium - 500g", *sel.VariantLabel)
	assert.True(t, sel.UnitPrice.Equal(decimal.NewFromInt(480)))
}

func TestResolveRejectsOutOfStockAndForeignVariants(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	product := seedTea(t, svc)
	other := seedTea(t, svc)

	sold, err := svc.CreateVariant(ctx, product.ID, VariantInput{
		Name: "Reserve", Type: enums.VariantTypeQuality, PackSize: "100g", Price: decimal.NewFromInt(900),
		StockStatus: enums.StockStatusOutOfStock,
	})
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, product.ID, &sold.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Resolve(ctx, other.ID, &sold.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	missing := uuid.New()
	_, err = svc.Resolve(ctx, missing, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestSettingDefaultClearsSiblingsOfSameType(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	product := seedTea(t, svc)

	first, err := svc.CreateVariant(ctx, product.ID, VariantInput{
		Name: "250g", Type: enums.VariantTypeQuantity, PackSize: "250g", Price: decimal.NewFromInt(250), IsDefault: true,
	})
	require.NoError(t, err)
	_, err = svc.CreateVariant(ctx, product.ID, VariantInput{
		Name: "1kg", Type: enums.VariantTypeQuantity, PackSize: "1kg", Price: decimal.NewFromInt(900), IsDefault: true,
	})
	require.NoError(t, err)

	got, err := svc.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	defaults := 0
	for _, v := range got.Variants {
		if v.IsDefault {
			defaults++
			assert.NotEqual(t, first.ID, v.ID)
		}
	}
	assert.Equal(t, 1, defaults)
	assert.Equal(t, got.Variants[0].Name, "1kg", "default variant is listed first")
}

func TestCreateProductValidation(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.CreateProduct(context.Background(), ProductInput{Name: " ", Price: decimal.Zero})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "name")
	assert.Contains(t, details, "price")
	assert.Contains(t, details, "pack_size")
}

func TestCategoryLifecycleDetachesProducts(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	category, err := svc.CreateCategory(ctx, CategoryInput{Name: "Spices"})
	require.NoError(t, err)
	_, err = svc.CreateCategory(ctx, CategoryInput{Name: "Spices"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	product, err := svc.CreateProduct(ctx, ProductInput{
		Name: "Cardamom", Price: decimal.NewFromInt(320), PackSize: "100g", CategoryID: &category.ID,
	})
	require.NoError(t, err)

	filtered, err := svc.ListProducts(ctx, ListFilter{CategoryID: &category.ID})
	require.NoError(t, err)
	require.Len(t, filtered, 1)

	require.NoError(t, svc.DeleteCategory(ctx, category.ID))
	got, err := svc.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)

	err = svc.DeleteCategory(ctx, category.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Products)
	assert.Equal(t, int64(0), stats.Categories)
}

func TestDeleteProductRemovesVariants(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	product := seedTea(t, svc)
	v, err := svc.CreateVariant(ctx, product.ID, VariantInput{
		Name: "Premium", Type: enums.VariantTypeQuality, PackSize: "500g", Price: decimal.NewFromInt(480),
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(ctx, product.ID))
	_, err = svc.GetProduct(ctx, product.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	err = svc.DeleteVariant(ctx, product.ID, v.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
