// Package whatsapp composes click-to-chat deep links. Every shopper-supplied
// value is passed through Sanitize before it is interpolated into a message.
package whatsapp

import (
	"net/url"
	"strings"
	"unicode"
)

const (
	baseURL = "https://wa.me/"
	// MaxFieldRunes caps a single interpolated value.
	MaxFieldRunes = 200
)

var (
	formattingReplacer = strings.NewReplacer("*", "", "_", "", "~", "", "`", "")
	// Underscores are legal in addresses, and a lone one never italicizes.
	emailReplacer = strings.NewReplacer("*", "", "~", "", "`", "")
)

// Sanitize strips WhatsApp formatting markers, collapses line breaks into a
// single space, trims, and caps the value at MaxFieldRunes runes.
func Sanitize(value string) string {
	return clean(formattingReplacer.Replace(value))
}

// Email sanitizes an email address without dropping underscores.
func Email(value string) string {
	return clean(emailReplacer.Replace(value))
}

// Reference keeps a system-generated identifier such as a Stripe
// PaymentIntent id intact. Anything outside [A-Za-z0-9_-] is dropped.
func Reference(value string) string {
	out := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return -1
	}, value)
	if len(out) > MaxFieldRunes {
		out = out[:MaxFieldRunes]
	}
	return out
}

func clean(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	inBreak := false
	for _, r := range value {
		if r == '\r' || r == '\n' {
			if !inBreak {
				b.WriteRune(' ')
				inBreak = true
			}
			continue
		}
		inBreak = false
		b.WriteRune(r)
	}

	out := strings.TrimSpace(b.String())
	if runes := []rune(out); len(runes) > MaxFieldRunes {
		out = strings.TrimSpace(string(runes[:MaxFieldRunes]))
	}
	return out
}

// Digits keeps only the digits of a phone number.
func Digits(number string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			return r
		}
		return -1
	}, number)
}

// Link builds https://wa.me/<digits>?text=<message> with the message
// percent-encoded. An empty number yields a link that lets the sender pick a chat.
func Link(number, message string) string {
	return baseURL + Digits(number) + "?text=" + encodeComponent(message)
}

// encodeComponent percent-encodes like encodeURIComponent (spaces as %20).
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
