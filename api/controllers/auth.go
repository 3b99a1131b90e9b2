package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/nilgirisfresh-backend/api/responses"
	"github.com/angelmondragon/nilgirisfresh-backend/api/validators"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/auth"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/users"
	pkgerrors "github.com/angelmondragon/nilgirisfresh-backend/pkg/errors"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/logger"
)

var errAuthUnavailable = pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable")

func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errAuthUnavailable)
			return
		}
		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type registerFunc func(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error)

// AuthRegister opens a shopper account and answers 201 with the same body
// as a login, so the new shopper is signed in straight away.
func AuthRegister(reg auth.RegisterService, svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	var create registerFunc
	if reg != nil {
		create = reg.Register
	}
	return registerAndSignIn(create, svc, logg)
}

// AdminRegister provisions a back-office account. Only mounted outside production.
func AdminRegister(reg auth.RegisterService, svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	var create registerFunc
	if reg != nil {
		create = reg.RegisterAdmin
	}
	return registerAndSignIn(create, svc, logg)
}

func registerAndSignIn(create registerFunc, svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if create == nil || svc == nil {
			responses.WriteError(ctx, logg, w, errAuthUnavailable)
			return
		}
		var body auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		user, err := create(ctx, body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithFields(ctx, map[string]any{"user_id": user.ID, "role": user.Role}), "auth.registered")
		}

		result, err := svc.Login(ctx, auth.LoginRequest{Email: body.Email, Password: body.Password})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
