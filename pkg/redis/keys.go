package redis

import "strings"

// Every key lives under one namespace so a shared Redis can be flushed or
// inspected per application.
const keyNamespace = "nf"

func (c *Client) IdempotencyKey(scope, id string) string {
	return key("idempotency", scope, id)
}

func (c *Client) RateLimitKey(scope string) string {
	return key("rate_limit", scope)
}

// AccessSessionKey marks a live access token by its jti.
func (c *Client) AccessSessionKey(accessID string) string {
	return key("session", "access", accessID)
}

// GuestCartKey holds the cart document of a shopper who has not signed in.
func (c *Client) GuestCartKey(guestToken string) string {
	return key("cart", "guest", guestToken)
}

// CartMergeKey marks a sign-in whose guest cart was already folded into
// the account cart.
func (c *Client) CartMergeKey(transitionID string) string {
	return key("cart", "merged", transitionID)
}

// CheckoutLockKey is held from payment start until the attempt settles.
func (c *Client) CheckoutLockKey(userID string) string {
	return key("checkout", "lock", userID)
}

func (c *Client) WebhookEventKey(provider, eventID string) string {
	return key("webhook", provider, eventID)
}

func (c *Client) LockKey(name string) string {
	return key("lock", name)
}

// key joins non-blank parts under the namespace.
func key(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}
