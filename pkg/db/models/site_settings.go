package models

import "time"

// SiteSettingsID is the primary key of the single settings row.
const SiteSettingsID = 1

// SiteSettings holds store-wide contact and payment configuration.
type SiteSettings struct {
	ID             int       `gorm:"column:id;primaryKey"`
	HeroTitle      string    `gorm:"column:hero_title;not null"`
	HeroSubtitle   string    `gorm:"column:hero_subtitle;not null"`
	Phone          string    `gorm:"column:phone;not null"`
	Email          string    `gorm:"column:email;not null"`
	Address        string    `gorm:"column:address;not null"`
	UPIID          string    `gorm:"column:upi_id;not null"`
	WhatsAppNumber string    `gorm:"column:whatsapp_number;not null"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (SiteSettings) TableName() string { return "site_settings" }
