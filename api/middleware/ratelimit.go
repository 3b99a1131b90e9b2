package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/angelmondragon/nilgirisfresh-backend/api/responses"
	pkgerrors "github.com/angelmondragon/nilgirisfresh-backend/pkg/errors"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/logger"
)

// maxRateLimitBody bounds how much of a request body the limiter buffers
// while looking for the keyed field.
const maxRateLimitBody = 64 << 10

type rateCounter interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// BodyField names the JSON field a policy counts per value, plus how the
// raw value is canonicalised before hashing.
type BodyField struct {
	Name      string
	Normalize func(string) string
}

var (
	// EmailField keys on the lower-cased "email" property.
	EmailField = BodyField{Name: "email", Normalize: func(v string) string {
		return strings.ToLower(strings.TrimSpace(v))
	}}
	// PhoneField keys on the digits of the "phone" property so formatting
	// variants of one number share a counter.
	PhoneField = BodyField{Name: "phone", Normalize: digitsOnly}
)

// RateLimitPolicy caps requests per client IP and per body field value
// inside a fixed window.
type RateLimitPolicy struct {
	Name       string
	Window     time.Duration
	IPLimit    int
	Field      BodyField
	FieldLimit int
}

func (p RateLimitPolicy) active() bool {
	return p.Window > 0 && (p.IPLimit > 0 || p.countsField())
}

func (p RateLimitPolicy) countsField() bool {
	return p.FieldLimit > 0 && p.Field.Name != ""
}

func (p RateLimitPolicy) scope() string {
	if name := strings.ToLower(strings.TrimSpace(p.Name)); name != "" {
		return name
	}
	return "default"
}

// RateLimit rejects requests over the policy with RATE_LIMIT_EXCEEDED.
// Counter failures fail closed as DEPENDENCY_ERROR.
func RateLimit(policy RateLimitPolicy, counter rateCounter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if counter == nil || !policy.active() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if policy.IPLimit > 0 {
				if ip := clientIP(r); ip != "" {
					if !hit(ctx, w, logg, counter, policy, "ip:"+policy.scope()+":"+ip, policy.IPLimit) {
						return
					}
				}
			}

			if policy.countsField() {
				body, err := io.ReadAll(io.LimitReader(r.Body, maxRateLimitBody))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
					return
				}
				r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), r.Body))

				if value := policy.Field.Normalize(bodyField(body, policy.Field.Name)); value != "" {
					key := policy.Field.Name + ":" + policy.scope() + ":" + digest(value)
					if !hit(ctx, w, logg, counter, policy, key, policy.FieldLimit) {
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// hit bumps one counter and writes the rejection itself when the request
// must stop.
func hit(ctx context.Context, w http.ResponseWriter, logg *logger.Logger, counter rateCounter, policy RateLimitPolicy, key string, limit int) bool {
	count, err := counter.IncrWithTTL(ctx, counter.RateLimitKey(key), policy.Window)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiter unavailable"))
		return false
	}
	if count <= int64(limit) {
		return true
	}
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"policy":   policy.scope(),
			"counter":  key,
			"attempts": count,
			"limit":    limit,
		}), "request throttled")
	}
	w.Header().Set("Retry-After", retryAfter(policy.Window))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests, try again later"))
	return false
}

func retryAfter(window time.Duration) string {
	secs := int64(window / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func bodyField(body []byte, name string) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return ""
	}
	var value string
	if err := json.Unmarshal(fields[name], &value); err != nil {
		return ""
	}
	return value
}

func digitsOnly(v string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, v)
}

func digest(v string) string {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:])
}
