package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/nilgirisfresh-backend/pkg/db/models"
)

// BoundStore persists the carts of signed-in shoppers in cart_items.
type BoundStore struct {
	db *gorm.DB
}

// NewBoundStore binds the store to the provided DB handle.
func NewBoundStore(db *gorm.DB) *BoundStore {
	return &BoundStore{db: db}
}

// WithTx scopes the store to the provided transaction.
func (s *BoundStore) WithTx(tx *gorm.DB) *BoundStore {
	if tx == nil {
		return s
	}
	return &BoundStore{db: tx}
}

// Load returns the user's cart in insertion order.
func (s *BoundStore) Load(ctx context.Context, userID uuid.UUID) (Cart, error) {
	var rows []models.CartItem
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return Cart{}, err
	}
	c := Cart{Items: make([]LineItem, 0, len(rows))}
	for _, row := range rows {
		c.Items = append(c.Items, lineFromRow(row))
	}
	return c, nil
}

// Add inserts the line or, when the key already exists for the user, adds
// quantity to the stored line.
func (s *BoundStore) Add(ctx context.Context, userID uuid.UUID, item LineItem, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	row := rowFromLine(userID, item)
	row.Quantity = quantity
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}, {Name: "variant_key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"quantity":   gorm.Expr("cart_items.quantity + ?", quantity),
			"updated_at": time.Now().UTC(),
		}),
	}).Create(&row).Error
}

// SetQuantity overwrites the quantity of an existing line and reports whether
// it matched.
func (s *BoundStore) SetQuantity(ctx context.Context, userID uuid.UUID, key Key, quantity int) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.CartItem{}).
		Where("user_id = ? AND product_id = ? AND variant_key = ?", userID, key.ProductID, key.VariantKey).
		Update("quantity", quantity)
	return res.RowsAffected > 0, res.Error
}

// Remove deletes the line under key and reports whether it existed.
func (s *BoundStore) Remove(ctx context.Context, userID uuid.UUID, key Key) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ? AND variant_key = ?", userID, key.ProductID, key.VariantKey).
		Delete(&models.CartItem{})
	return res.RowsAffected > 0, res.Error
}

// Clear deletes every line of the user.
func (s *BoundStore) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartItem{}).Error
}

func lineFromRow(row models.CartItem) LineItem {
	return LineItem{
		ProductID:    row.ProductID,
		VariantID:    row.VariantID,
		DisplayName:  row.DisplayName,
		VariantLabel: row.VariantLabel,
		Description:  row.Description,
		UnitPrice:    row.UnitPrice,
		PackSize:     row.PackSize,
		ImageRef:     row.ImageRef,
		Quantity:     row.Quantity,
	}
}

func rowFromLine(userID uuid.UUID, item LineItem) models.CartItem {
	return models.CartItem{
		UserID:       userID,
		ProductID:    item.ProductID,
		VariantKey:   VariantKey(item.VariantID),
		VariantID:    item.VariantID,
		DisplayName:  item.DisplayName,
		VariantLabel: item.VariantLabel,
		Description:  item.Description,
		UnitPrice:    item.UnitPrice,
		PackSize:     item.PackSize,
		ImageRef:     item.ImageRef,
		Quantity:     item.Quantity,
	}
}
