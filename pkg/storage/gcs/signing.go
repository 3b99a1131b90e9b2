package gcs

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// urlSigner produces V2 signed URLs with a service account key.
type urlSigner struct {
	email string
	key   *rsa.PrivateKey
	now   func() time.Time
}

// SignedURL lets a browser PUT exactly contentType to object until ttl elapses.
func (c *Client) SignedURL(bucket, object, contentType string, ttl time.Duration) (string, error) {
	if contentType == "" {
		return "", errors.New("content type is required")
	}
	return c.signed(http.MethodPut, bucket, object, contentType, ttl)
}

// SignedReadURL grants a GET of object until ttl elapses.
func (c *Client) SignedReadURL(bucket, object string, ttl time.Duration) (string, error) {
	return c.signed(http.MethodGet, bucket, object, "", ttl)
}

func (c *Client) signed(method, bucket, object, contentType string, ttl time.Duration) (string, error) {
	if c == nil || c.signer == nil {
		return "", errors.New("signing requires service account credentials")
	}
	if bucket == "" {
		bucket = c.defaultBucket
	}
	switch {
	case bucket == "":
		return "", errors.New("bucket is required")
	case object == "":
		return "", errors.New("object is required")
	case ttl <= 0:
		return "", errors.New("ttl must be positive")
	}
	return c.signer.sign(method, bucket, object, contentType, ttl)
}

// sign builds the V2 string-to-sign: verb, content md5 (unused), content
// type, expiry, then the canonical resource.
func (s *urlSigner) sign(method, bucket, object, contentType string, ttl time.Duration) (string, error) {
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	expires := strconv.FormatInt(now().Add(ttl).Unix(), 10)
	canonical := method + "\n\n" + contentType + "\n" + expires + "\n/" + bucket + "/" + object

	digest := sha256.Sum256([]byte(canonical))
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("sign url: %w", err)
	}

	q := url.Values{
		"GoogleAccessId": {s.email},
		"Expires":        {expires},
		"Signature":      {base64.StdEncoding.EncodeToString(sig)},
	}
	return objectURL(bucket, object) + "?" + q.Encode(), nil
}
