package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/nilgirisfresh-backend/pkg/db"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/db/models"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/nilgirisfresh-backend/pkg/errors"
)

// Service exposes catalog reads for shoppers and catalog management for admins.
type Service interface {
	ListProducts(ctx context.Context, filter ListFilter) ([]ProductDTO, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	ListCategories(ctx context.Context) ([]CategoryDTO, error)
	Resolve(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*Selection, error)
	Stats(ctx context.Context) (Stats, error)

	CreateProduct(ctx context.Context, input ProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input ProductPatch) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	CreateVariant(ctx context.Context, productID uuid.UUID, input VariantInput) (*VariantDTO, error)
	UpdateVariant(ctx context.Context, productID, variantID uuid.UUID, input VariantPatch) (*VariantDTO, error)
	DeleteVariant(ctx context.Context, productID, variantID uuid.UUID) error
	CreateCategory(ctx context.Context, input CategoryInput) (*CategoryDTO, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, input CategoryInput) (*CategoryDTO, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
}

// ProductInput holds the validated payload to create a product.
type ProductInput struct {
	Name        string
	Description *string
	Price       decimal.Decimal
	PackSize    string
	CategoryID  *uuid.UUID
	ImageURL    *string
	Featured    bool
}

// ProductPatch carries optional product mutations.
type ProductPatch struct {
	Name          *string
	Description   *string
	Price         *decimal.Decimal
	PackSize      *string
	CategoryID    *uuid.UUID
	ClearCategory bool
	ImageURL      *string
	Featured      *bool
}

// VariantInput holds the validated payload to create a variant.
type VariantInput struct {
	Name        string
	Type        enums.VariantType
	PackSize    string
	Price       decimal.Decimal
	StockStatus enums.StockStatus
	IsDefault   bool
}

// VariantPatch carries optional variant mutations.
type VariantPatch struct {
	Name        *string
	Type        *enums.VariantType
	PackSize    *string
	Price       *decimal.Decimal
	StockStatus *enums.StockStatus
	IsDefault   *bool
}

// CategoryInput is used for both create and update.
type CategoryInput struct {
	Name        string
	Description *string
}

type service struct {
	repo     *Repository
	dbClient *db.Client
}

// NewService constructs the catalog service.
func NewService(repo *Repository, dbClient *db.Client) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, dbClient: dbClient}, nil
}

func lookupErr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, what+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+what)
}

func (s *service) ListProducts(ctx context.Context, filter ListFilter) ([]ProductDTO, error) {
	rows, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	out := make([]ProductDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, NewProductDTO(row))
	}
	return out, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "product")
	}
	dto := NewProductDTO(*product)
	return &dto, nil
}

func (s *service) ListCategories(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, newCategoryDTO(row))
	}
	return out, nil
}

// Resolve turns a shopper's choice into the priced selection stored on a cart
// line. A missing variant id on a product with variants falls back to
// DefaultVariant. Out-of-stock selections are rejected.
func (s *service) Resolve(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*Selection, error) {
	product, err := s.repo.FindProduct(ctx, productID)
	if err != nil {
		return nil, lookupErr(err, "product")
	}

	var chosen *models.ProductVariant
	switch {
	case variantID != nil:
		for i := range product.Variants {
			if product.Variants[i].ID == *variantID {
				chosen = &product.Variants[i]
				break
			}
		}
		if chosen == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant does not belong to product")
		}
	case len(product.Variants) > 0:
		def, _ := DefaultVariant(product.Variants, "")
		chosen = &def
	}

	if chosen != nil && !chosen.StockStatus.Purchasable() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "selected variant is out of stock").
			WithDetails(map[string]any{"variant_id": chosen.ID})
	}

	sel := selectionFor(*product, chosen)
	return &sel, nil
}

func (s *service) Stats(ctx context.Context) (Stats, error) {
	products, categories, err := s.repo.Counts(ctx)
	if err != nil {
		return Stats{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count catalog")
	}
	return Stats{Products: products, Categories: categories}, nil
}

func validateProduct(name, packSize string, price decimal.Decimal) error {
	details := map[string]string{}
	if strings.TrimSpace(name) == "" {
		details["name"] = "required"
	}
	if strings.TrimSpace(packSize) == "" {
		details["pack_size"] = "required"
	}
	if !price.IsPositive() {
		details["price"] = "must be greater than zero"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid product").WithDetails(details)
	}
	return nil
}

func validateVariant(name, packSize string, price decimal.Decimal, vt enums.VariantType, stock enums.StockStatus) error {
	details := map[string]string{}
	if strings.TrimSpace(name) == "" {
		details["name"] = "required"
	}
	if strings.TrimSpace(packSize) == "" {
		details["pack_size"] = "required"
	}
	if !price.IsPositive() {
		details["price"] = "must be greater than zero"
	}
	if !vt.IsValid() {
		details["type"] = "must be quality or quantity"
	}
	if !stock.IsValid() {
		details["stock_status"] = "must be in_stock, low_stock or out_of_stock"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid variant").WithDetails(details)
	}
	return nil
}

func (s *service) ensureCategory(ctx context.Context, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	if _, err := s.repo.FindCategory(ctx, *id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "category does not exist")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	return nil
}

func (s *service) CreateProduct(ctx context.Context, input ProductInput) (*ProductDTO, error) {
	if err := validateProduct(input.Name, input.PackSize, input.Price); err != nil {
		return nil, err
	}
	if err := s.ensureCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}
	product := &models.Product{
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Price:       input.Price,
		PackSize:    strings.TrimSpace(input.PackSize),
		CategoryID:  input.CategoryID,
		ImageURL:    input.ImageURL,
		Featured:    input.Featured,
	}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
	}
	return s.GetProduct(ctx, product.ID)
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input ProductPatch) (*ProductDTO, error) {
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "product")
	}
	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.PackSize != nil {
		product.PackSize = strings.TrimSpace(*input.PackSize)
	}
	if input.ImageURL != nil {
		product.ImageURL = input.ImageURL
	}
	if input.Featured != nil {
		product.Featured = *input.Featured
	}
	switch {
	case input.ClearCategory:
		product.CategoryID = nil
	case input.CategoryID != nil:
		if err := s.ensureCategory(ctx, input.CategoryID); err != nil {
			return nil, err
		}
		product.CategoryID = input.CategoryID
	}
	if err := validateProduct(product.Name, product.PackSize, product.Price); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
	}
	return s.GetProduct(ctx, id)
}

func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	var deleted bool
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		deleted, err = s.repo.WithTx(tx).DeleteProduct(ctx, id)
		return err
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete product")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

// clearSiblingDefaults unsets is_default on the other variants of the same type.
func clearSiblingDefaults(ctx context.Context, tx *gorm.DB, v *models.ProductVariant) error {
	return tx.WithContext(ctx).Model(&models.ProductVariant{}).
		Where("product_id = ? AND type = ? AND id <> ?", v.ProductID, v.Type, v.ID).
		Update("is_default", false).Error
}

func (s *service) CreateVariant(ctx context.Context, productID uuid.UUID, input VariantInput) (*VariantDTO, error) {
	if input.StockStatus == "" {
		input.StockStatus = enums.StockStatusInStock
	}
	if err := validateVariant(input.Name, input.PackSize, input.Price, input.Type, input.StockStatus); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindProduct(ctx, productID); err != nil {
		return nil, lookupErr(err, "product")
	}
	variant := &models.ProductVariant{
		ProductID:   productID,
		Name:        strings.TrimSpace(input.Name),
		Type:        input.Type,
		PackSize:    strings.TrimSpace(input.PackSize),
		Price:       input.Price,
		StockStatus: input.StockStatus,
		IsDefault:   input.IsDefault,
	}
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).CreateVariant(ctx, variant); err != nil {
			return err
		}
		if variant.IsDefault {
			return clearSiblingDefaults(ctx, tx, variant)
		}
		return nil
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert variant")
	}
	dto := newVariantDTO(*variant)
	return &dto, nil
}

func (s *service) loadOwnedVariant(ctx context.Context, productID, variantID uuid.UUID) (*models.ProductVariant, error) {
	variant, err := s.repo.FindVariant(ctx, variantID)
	if err != nil {
		return nil, lookupErr(err, "variant")
	}
	if variant.ProductID != productID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
	}
	return variant, nil
}

func (s *service) UpdateVariant(ctx context.Context, productID, variantID uuid.UUID, input VariantPatch) (*VariantDTO, error) {
	variant, err := s.loadOwnedVariant(ctx, productID, variantID)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		variant.Name = strings.TrimSpace(*input.Name)
	}
	if input.Type != nil {
		variant.Type = *input.Type
	}
	if input.PackSize != nil {
		variant.PackSize = strings.TrimSpace(*input.PackSize)
	}
	if input.Price != nil {
		variant.Price = *input.Price
	}
	if input.StockStatus != nil {
		variant.StockStatus = *input.StockStatus
	}
	if input.IsDefault != nil {
		variant.IsDefault = *input.IsDefault
	}
	if err := validateVariant(variant.Name, variant.PackSize, variant.Price, variant.Type, variant.StockStatus); err != nil {
		return nil, err
	}
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).UpdateVariant(ctx, variant); err != nil {
			return err
		}
		if variant.IsDefault {
			return clearSiblingDefaults(ctx, tx, variant)
		}
		return nil
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update variant")
	}
	dto := newVariantDTO(*variant)
	return &dto, nil
}

func (s *service) DeleteVariant(ctx context.Context, productID, variantID uuid.UUID) error {
	if _, err := s.loadOwnedVariant(ctx, productID, variantID); err != nil {
		return err
	}
	if _, err := s.repo.DeleteVariant(ctx, variantID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete variant")
	}
	return nil
}

func (s *service) CreateCategory(ctx context.Context, input CategoryInput) (*CategoryDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name is required")
	}
	category := &models.Category{Name: name, Description: input.Description}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "category already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert category")
	}
	dto := newCategoryDTO(*category)
	return &dto, nil
}

func (s *service) UpdateCategory(ctx context.Context, id uuid.UUID, input CategoryInput) (*CategoryDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name is required")
	}
	category, err := s.repo.FindCategory(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "category")
	}
	category.Name = name
	category.Description = input.Description
	if err := s.repo.UpdateCategory(ctx, category); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "category already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update category")
	}
	dto := newCategoryDTO(*category)
	return &dto, nil
}

func (s *service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	var deleted bool
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		deleted, err = s.repo.WithTx(tx).DeleteCategory(ctx, id)
		return err
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete category")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	}
	return nil
}
