package settings

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/nilgirisfresh-backend/pkg/db/models"
)

// Repository reads and writes the single site_settings row.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Get returns the settings row or a zero row when none has been saved yet.
func (r *Repository) Get(ctx context.Context) (models.SiteSettings, error) {
	var row models.SiteSettings
	err := r.db.WithContext(ctx).First(&row, "id = ?", models.SiteSettingsID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.SiteSettings{ID: models.SiteSettingsID}, nil
	}
	return row, err
}

// Save upserts the settings row.
func (r *Repository) Save(ctx context.Context, row *models.SiteSettings) error {
	row.ID = models.SiteSettingsID
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(row).Error
}
