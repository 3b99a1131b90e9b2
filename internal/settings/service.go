package settings

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/nilgirisfresh-backend/internal/whatsapp"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/nilgirisfresh-backend/pkg/errors"
)

const payeeName = "NilgirisFresh"

// Settings is the public view of the store configuration.
type Settings struct {
	HeroTitle      string `json:"hero_title"`
	HeroSubtitle   string `json:"hero_subtitle"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	Address        string `json:"address"`
	UPIID          string `json:"upi_id"`
	WhatsAppNumber string `json:"whatsapp_number"`
}

// Patch carries optional admin edits; nil fields stay unchanged.
type Patch struct {
	HeroTitle      *string
	HeroSubtitle   *string
	Phone          *string
	Email          *string
	Address        *string
	UPIID          *string
	WhatsAppNumber *string
}

type store interface {
	Get(ctx context.Context) (models.SiteSettings, error)
	Save(ctx context.Context, row *models.SiteSettings) error
}

// Service reads and updates site settings.
type Service struct {
	repo store
}

// NewService constructs the settings service.
func NewService(repo store) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	return &Service{repo: repo}, nil
}

func fromRow(row models.SiteSettings) Settings {
	return Settings{
		HeroTitle:      row.HeroTitle,
		HeroSubtitle:   row.HeroSubtitle,
		Phone:          row.Phone,
		Email:          row.Email,
		Address:        row.Address,
		UPIID:          row.UPIID,
		WhatsAppNumber: row.WhatsAppNumber,
	}
}

// Get returns the current settings.
func (s *Service) Get(ctx context.Context) (Settings, error) {
	row, err := s.repo.Get(ctx)
	if err != nil {
		return Settings{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load settings")
	}
	return fromRow(row), nil
}

// Update applies an admin patch. The whatsapp number is stored as digits only.
func (s *Service) Update(ctx context.Context, patch Patch) (Settings, error) {
	row, err := s.repo.Get(ctx)
	if err != nil {
		return Settings{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load settings")
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&row.HeroTitle, patch.HeroTitle)
	set(&row.HeroSubtitle, patch.HeroSubtitle)
	set(&row.Phone, patch.Phone)
	set(&row.Email, patch.Email)
	set(&row.Address, patch.Address)
	set(&row.UPIID, patch.UPIID)
	if patch.WhatsAppNumber != nil {
		digits := whatsapp.Digits(*patch.WhatsAppNumber)
		if strings.TrimSpace(*patch.WhatsAppNumber) != "" && (len(digits) < 10 || len(digits) > 15) {
			return Settings{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid whatsapp number").
				WithDetails(map[string]string{"whatsapp_number": "must contain 10 to 15 digits"})
		}
		row.WhatsAppNumber = digits
	}
	if err := s.repo.Save(ctx, &row); err != nil {
		return Settings{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save settings")
	}
	return fromRow(row), nil
}

// RequirePaymentIdentifier returns the settings when the store can collect
// payments and CONFIG_ERROR otherwise.
func (s *Service) RequirePaymentIdentifier(ctx context.Context) (Settings, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return Settings{}, err
	}
	if strings.TrimSpace(current.UPIID) == "" {
		return Settings{}, pkgerrors.New(pkgerrors.CodeConfig, "payment collection identifier is not configured")
	}
	return current, nil
}

// UPILink builds the upi://pay intent for a manual UPI payment.
func UPILink(upiID string, amount decimal.Decimal, note string) string {
	q := url.Values{}
	q.Set("pa", upiID)
	q.Set("pn", payeeName)
	q.Set("am", amount.StringFixed(2))
	q.Set("cu", "INR")
	q.Set("tn", payeeName+" - "+whatsapp.Sanitize(note))
	return "upi://pay?" + q.Encode()
}
