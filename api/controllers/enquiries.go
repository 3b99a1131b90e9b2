package controllers

import (
	"net/http"

	"github.com/angelmondragon/nilgirisfresh-backend/api/responses"
	"github.com/angelmondragon/nilgirisfresh-backend/api/validators"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/whatsapp"
	pkgerrors "github.com/angelmondragon/nilgirisfresh-backend/pkg/errors"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/logger"
)

type bulkEnquiryRequest struct {
	BusinessName  string `json:"business_name" validate:"required,min=2,max=200"`
	ContactPerson string `json:"contact_person" validate:"required,min=2,max=100"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"required,min=10,max=20"`
	BusinessType  string `json:"business_type" validate:"required,max=100"`
	Quantity      string `json:"quantity" validate:"required,max=100"`
	Requirements  string `json:"requirements" validate:"max=1000"`
}

type contactRequest struct {
	Name    string `json:"name" validate:"required,min=2,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"omitempty,max=20"`
	Message string `json:"message" validate:"required,min=5,max=1000"`
}

func (b *bulkEnquiryRequest) Clean() {
	b.BusinessName = validators.CleanLine(b.BusinessName)
	b.ContactPerson = validators.CleanLine(b.ContactPerson)
	b.Email = validators.CleanLine(b.Email)
	b.Phone = validators.CleanLine(b.Phone)
	b.BusinessType = validators.CleanLine(b.BusinessType)
	b.Quantity = validators.CleanLine(b.Quantity)
	b.Requirements = validators.CleanText(b.Requirements)
}

func (c *contactRequest) Clean() {
	c.Name = validators.CleanLine(c.Name)
	c.Email = validators.CleanLine(c.Email)
	c.Phone = validators.CleanLine(c.Phone)
	c.Message = validators.CleanText(c.Message)
}

// BulkEnquiry turns the dealer enquiry form into a WhatsApp chat link.
func BulkEnquiry(store settingsReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}

		var body bulkEnquiryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		current, err := store.Get(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		message := whatsapp.BulkEnquiryMessage(whatsapp.BulkEnquiry{
			BusinessName:  body.BusinessName,
			ContactPerson: body.ContactPerson,
			Email:         body.Email,
			Phone:         body.Phone,
			BusinessType:  body.BusinessType,
			Quantity:      body.Quantity,
			Requirements:  body.Requirements,
		})
		responses.WriteSuccess(w, whatsAppLinkResponse{
			URL:     whatsapp.Link(current.WhatsAppNumber, message),
			Message: message,
		})
	}
}

// ContactEnquiry turns the contact form into a WhatsApp chat link.
func ContactEnquiry(store settingsReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}

		var body contactRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		current, err := store.Get(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		message := whatsapp.ContactMessage(whatsapp.Contact{
			Name:    body.Name,
			Email:   body.Email,
			Phone:   body.Phone,
			Message: body.Message,
		})
		responses.WriteSuccess(w, whatsAppLinkResponse{
			URL:     whatsapp.Link(current.WhatsAppNumber, message),
			Message: message,
		})
	}
}
