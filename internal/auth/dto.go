package auth

import (
	"github.com/angelmondragon/nilgirisfresh-backend/internal/users"
	pkgAuth "github.com/angelmondragon/nilgirisfresh-backend/pkg/auth"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

// RegisterRequest opens a shopper account. Phone is optional and kept as
// typed; the storefront only shows it back to the owner and staff.
type RegisterRequest struct {
	FullName string  `json:"full_name" validate:"required,min=2,max=120"`
	Email    string  `json:"email" validate:"required,email,max=254"`
	Password string  `json:"password" validate:"required,min=8,max=128"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=20"`
}

// LoginResponse flattens the token pair next to the signed-in user.
// TransitionID is sent back on the first cart call after sign-in so the
// guest cart is merged exactly once.
type LoginResponse struct {
	pkgAuth.TokenPair
	TransitionID string         `json:"transition_id"`
	User         *users.UserDTO `json:"user"`
}
