package types

import "strings"

// ShippingDetails is the validated contact and delivery block captured at checkout.
type ShippingDetails struct {
	CustomerName string  `json:"customer_name"`
	Phone        string  `json:"phone"`
	Email        *string `json:"email,omitempty"`
	AddressLine1 string  `json:"address_line1"`
	AddressLine2 *string `json:"address_line2,omitempty"`
	City         string  `json:"city"`
	State        string  `json:"state"`
	Pincode      string  `json:"pincode"`
}

// EmailOrEmpty returns the optional email as a plain string.
func (s ShippingDetails) EmailOrEmpty() string {
	if s.Email == nil {
		return ""
	}
	return *s.Email
}

// AddressLines renders the address the way it is printed on a parcel.
func (s ShippingDetails) AddressLines() []string {
	lines := []string{s.AddressLine1}
	if s.AddressLine2 != nil && strings.TrimSpace(*s.AddressLine2) != "" {
		lines = append(lines, *s.AddressLine2)
	}
	return append(lines, s.City+", "+s.State+" - "+s.Pincode)
}
