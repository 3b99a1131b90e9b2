package checkout

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/angelmondragon/nilgirisfresh-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/nilgirisfresh-backend/pkg/errors"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/types"
)

var (
	personNamePattern = regexp.MustCompile(`^[\p{L} .'\-]+$`)
	phonePattern      = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
	pincodePattern    = regexp.MustCompile(`^[0-9]{6}$`)
)

var shippingValidator = newShippingValidator()

func newShippingValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	mustRegister(v, "personname", personNamePattern)
	mustRegister(v, "phone", phonePattern)
	mustRegister(v, "pincode", pincodePattern)
	return v
}

func mustRegister(v *validator.Validate, tag string, pattern *regexp.Regexp) {
	if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return pattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// ShippingForm is the raw delivery and contact input captured at checkout.
type ShippingForm struct {
	CustomerName string `json:"customer_name" validate:"required,min=2,max=100,personname"`
	Phone        string `json:"phone" validate:"required,phone"`
	Email        string `json:"email" validate:"omitempty,email"`
	AddressLine1 string `json:"address_line1" validate:"required,min=5,max=200"`
	AddressLine2 string `json:"address_line2" validate:"max=200"`
	City         string `json:"city" validate:"required,min=2,max=100"`
	State        string `json:"state" validate:"required,min=2,max=100"`
	Pincode      string `json:"pincode" validate:"required,pincode"`
}

func (f ShippingForm) trimmed() ShippingForm {
	return ShippingForm{
		CustomerName: strings.TrimSpace(f.CustomerName),
		Phone:        strings.ReplaceAll(strings.TrimSpace(f.Phone), " ", ""),
		Email:        strings.TrimSpace(f.Email),
		AddressLine1: strings.TrimSpace(f.AddressLine1),
		AddressLine2: strings.TrimSpace(f.AddressLine2),
		City:         strings.TrimSpace(f.City),
		State:        strings.TrimSpace(f.State),
		Pincode:      strings.TrimSpace(f.Pincode),
	}
}

// ValidateShippingForm trims the form and checks every field. On failure the
// VALIDATION_ERROR carries a field -> message map covering every bad field.
func ValidateShippingForm(form ShippingForm) (types.ShippingDetails, error) {
	clean := form.trimmed()
	if err := shippingValidator.Struct(clean); err != nil {
		return types.ShippingDetails{}, shippingErrors(err)
	}
	details := types.ShippingDetails{
		CustomerName: clean.CustomerName,
		Phone:        clean.Phone,
		AddressLine1: clean.AddressLine1,
		City:         clean.City,
		State:        clean.State,
		Pincode:      clean.Pincode,
	}
	if clean.Email != "" {
		details.Email = &clean.Email
	}
	if clean.AddressLine2 != "" {
		details.AddressLine2 = &clean.AddressLine2
	}
	return details, nil
}

func shippingErrors(err error) error {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping details")
	}
	fields := map[string]string{}
	for _, fe := range errs {
		if _, seen := fields[fe.Field()]; seen {
			continue
		}
		fields[fe.Field()] = shippingMessage(fe)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid shipping details").WithDetails(fields)
}

func shippingMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email":
		return "must be a valid email address"
	case "personname":
		return "may contain only letters, spaces, hyphens, apostrophes and periods"
	case "phone":
		return "must be 10 to 15 digits with an optional leading +"
	case "pincode":
		return "must be exactly 6 digits"
	}
	return "is invalid"
}

// StockValidationInput describes one cart line re-checked at checkout.
type StockValidationInput struct {
	ProductID   uuid.UUID
	VariantID   *uuid.UUID
	Name        string
	StockStatus enums.StockStatus
}

// StockViolationDetail is returned for each line that can no longer be bought.
type StockViolationDetail struct {
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Name      string     `json:"name,omitempty"`
}

// ValidateStock rejects checkout when any selection went out of stock after
// it was added to the cart.
func ValidateStock(items []StockValidationInput) error {
	var violations []StockViolationDetail
	for _, item := range items {
		if item.StockStatus == "" || item.StockStatus.Purchasable() {
			continue
		}
		violations = append(violations, StockViolationDetail{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Name:      item.Name,
		})
	}
	if len(violations) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("%d item(s) are out of stock", len(violations))).WithDetails(map[string]any{
		"violations": violations,
	})
}
