package whatsapp

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/nilgirisfresh-backend/pkg/types"
)

const storeName = "NilgirisFresh"

// OrderMessage is the order summary sent to the store after a paid checkout.
func OrderMessage(shipping types.ShippingDetails, lines types.OrderLines, total decimal.Decimal, paymentRef string) string {
	var b strings.Builder
	b.WriteString("🛒 *New Order from " + storeName + "*\n\n")
	b.WriteString("*Customer Details:*\n")
	fmt.Fprintf(&b, "Name: %s\n", Sanitize(shipping.CustomerName))
	fmt.Fprintf(&b, "Phone: %s\n", Sanitize(shipping.Phone))
	if email := Email(shipping.EmailOrEmpty()); email != "" {
		fmt.Fprintf(&b, "Email: %s\n", email)
	}
	b.WriteString("\n*Shipping Address:*\n")
	b.WriteString(Sanitize(shipping.AddressLine1) + "\n")
	if shipping.AddressLine2 != nil {
		if line2 := Sanitize(*shipping.AddressLine2); line2 != "" {
			b.WriteString(line2 + "\n")
		}
	}
	fmt.Fprintf(&b, "%s, %s - %s\n\n", Sanitize(shipping.City), Sanitize(shipping.State), Sanitize(shipping.Pincode))

	b.WriteString("*Order Items:*\n")
	for i, line := range lines {
		if i > 0 {
			b.WriteString("\n")
		}
		name := Sanitize(line.Name)
		if line.VariantLabel != nil && *line.VariantLabel != "" {
			name += " [" + Sanitize(*line.VariantLabel) + "]"
		}
		fmt.Fprintf(&b, "• %s (%s) x%d = ₹%s", name, Sanitize(line.PackSize), line.Quantity, line.LineTotal.StringFixed(2))
	}
	fmt.Fprintf(&b, "\n\n*Total Amount: ₹%s*", total.StringFixed(2))
	if ref := Reference(paymentRef); ref != "" {
		fmt.Fprintf(&b, "\n\nPayment Reference: %s", ref)
	}
	return b.String()
}

// ProductMessage is the quick-order message for a single product.
func ProductMessage(name, packSize string, price decimal.Decimal) string {
	return "Hi! I would like to order:\n\n" +
		"*" + Sanitize(name) + "*\n" +
		"Pack Size: " + Sanitize(packSize) + "\n" +
		"Price: ₹" + price.StringFixed(2) + "\n\n" +
		"Please confirm availability and payment details."
}

// BulkEnquiry is the dealer/bulk order enquiry form.
type BulkEnquiry struct {
	BusinessName  string
	ContactPerson string
	Email         string
	Phone         string
	BusinessType  string
	Quantity      string
	Requirements  string
}

// BulkEnquiryMessage renders a bulk enquiry.
func BulkEnquiryMessage(e BulkEnquiry) string {
	return "*BULK ORDER ENQUIRY*\n\n" +
		"*Business Name:* " + Sanitize(e.BusinessName) + "\n" +
		"*Contact Person:* " + Sanitize(e.ContactPerson) + "\n" +
		"*Email:* " + Email(e.Email) + "\n" +
		"*Phone:* " + Sanitize(e.Phone) + "\n" +
		"*Business Type:* " + Sanitize(e.BusinessType) + "\n" +
		"*Monthly Quantity:* " + Sanitize(e.Quantity) + "\n\n" +
		"*Requirements:*\n" + Sanitize(e.Requirements)
}

// Contact is the general contact form.
type Contact struct {
	Name    string
	Email   string
	Phone   string
	Message string
}

// ContactMessage renders a contact form submission.
func ContactMessage(c Contact) string {
	return "Hi! I'm reaching out from the website.\n\n" +
		"*Name:* " + Sanitize(c.Name) + "\n" +
		"*Email:* " + Email(c.Email) + "\n" +
		"*Phone:* " + Sanitize(c.Phone) + "\n\n" +
		"*Message:*\n" + Sanitize(c.Message)
}
