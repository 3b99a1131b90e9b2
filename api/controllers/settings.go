package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/nilgirisfresh-backend/api/responses"
	"github.com/angelmondragon/nilgirisfresh-backend/api/validators"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/settings"
	pkgerrors "github.com/angelmondragon/nilgirisfresh-backend/pkg/errors"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/logger"
)

type settingsUpdater interface {
	Update(ctx context.Context, patch settings.Patch) (settings.Settings, error)
}

type updateSettingsRequest struct {
	HeroTitle      *string `json:"hero_title" validate:"omitempty,max=200"`
	HeroSubtitle   *string `json:"hero_subtitle" validate:"omitempty,max=500"`
	Phone          *string `json:"phone" validate:"omitempty,max=32"`
	Email          *string `json:"email" validate:"omitempty,email"`
	Address        *string `json:"address" validate:"omitempty,max=500"`
	UPIID          *string `json:"upi_id" validate:"omitempty,max=100"`
	WhatsAppNumber *string `json:"whatsapp_number" validate:"omitempty,max=32"`
}

func GetSettings(store settingsReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}
		current, err := store.Get(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, current)
	}
}

// AdminUpdateSettings applies a partial settings update.
func AdminUpdateSettings(svc settingsUpdater, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}

		var body updateSettingsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), settings.Patch{
			HeroTitle:      body.HeroTitle,
			HeroSubtitle:   body.HeroSubtitle,
			Phone:          body.Phone,
			Email:          body.Email,
			Address:        body.Address,
			UPIID:          body.UPIID,
			WhatsAppNumber: body.WhatsAppNumber,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}
