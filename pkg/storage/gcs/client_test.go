package gcs

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/nilgirisfresh-backend/pkg/config"
)

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func testKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func signerClient(t *testing.T) (*Client, *rsa.PrivateKey) {
	t.Helper()
	key := testKey(t)
	return &Client{
		defaultBucket: "nf-media",
		signer:        &urlSigner{email: "uploader@nf.iam.gserviceaccount.com", key: key, now: func() time.Time { return fixedNow }},
	}, key
}

// checkSigned recomputes the V2 string-to-sign and verifies the signature.
func checkSigned(t *testing.T, key *rsa.PrivateKey, raw, method, contentType, resource string) {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := u.Query()
	if q.Get("GoogleAccessId") != "uploader@nf.iam.gserviceaccount.com" {
		t.Fatalf("access id = %q", q.Get("GoogleAccessId"))
	}
	sig, err := base64.StdEncoding.DecodeString(q.Get("Signature"))
	if err != nil {
		t.Fatalf("signature encoding: %v", err)
	}
	canonical := method + "\n\n" + contentType + "\n" + q.Get("Expires") + "\n" + resource
	digest := sha256.Sum256([]byte(canonical))
	if err := rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA256, digest[:], sig); err != nil {
		t.Fatalf("signature does not verify: %v", err)
	}
}

func TestSignedURLs(t *testing.T) {
	client, key := signerClient(t)

	put, err := client.SignedURL("", "products/p1/masala chai.png", "image/png", 15*time.Minute)
	if err != nil {
		t.Fatalf("SignedURL: %v", err)
	}
	if !strings.HasPrefix(put, "https://storage.googleapis.com/nf-media/products/p1/masala%20chai.png?") {
		t.Fatalf("unexpected put url %s", put)
	}
	if want := "1772356500"; !strings.Contains(put, "Expires="+want) {
		t.Fatalf("expected expiry %s in %s", want, put)
	}
	checkSigned(t, key, put, http.MethodPut, "image/png", "/nf-media/products/p1/masala chai.png")

	get, err := client.SignedReadURL("nf-evidence", "evidence/ord-1/upi.jpg", time.Hour)
	if err != nil {
		t.Fatalf("SignedReadURL: %v", err)
	}
	checkSigned(t, key, get, http.MethodGet, "", "/nf-evidence/evidence/ord-1/upi.jpg")
}

func TestSignedURLRefusals(t *testing.T) {
	client, _ := signerClient(t)
	cases := map[string]func() error{
		"no content type": func() error { _, err := client.SignedURL("", "a.png", "", time.Minute); return err },
		"no object":       func() error { _, err := client.SignedReadURL("", "", time.Minute); return err },
		"expired ttl":     func() error { _, err := client.SignedReadURL("", "a.png", -time.Second); return err },
		"no bucket": func() error {
			_, err := (&Client{signer: client.signer}).SignedReadURL("", "a.png", time.Minute)
			return err
		},
		"metadata credentials": func() error {
			_, err := (&Client{defaultBucket: "nf-media"}).SignedReadURL("", "a.png", time.Minute)
			return err
		},
	}
	for name, call := range cases {
		if call() == nil {
			t.Fatalf("%s: expected an error", name)
		}
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func reply(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

func apiClient(rt roundTripFunc) *Client {
	return &Client{
		defaultBucket: "nf-media",
		httpClient:    &http.Client{Transport: rt},
		tokens: &tokenSource{fetch: func(context.Context) (string, time.Time, error) {
			return "ya29.test", time.Now().Add(time.Hour), nil
		}},
	}
}

func TestUploadPostsMedia(t *testing.T) {
	var seen *http.Request
	var body string
	client := apiClient(func(req *http.Request) (*http.Response, error) {
		seen = req
		b, _ := io.ReadAll(req.Body)
		body = string(b)
		return reply(http.StatusOK, `{}`), nil
	})

	obj, err := client.Upload(context.Background(), "", "products/p1/tea.png", "", strings.NewReader("pngdata"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if obj != (Object{Bucket: "nf-media", Name: "products/p1/tea.png"}) {
		t.Fatalf("object = %+v", obj)
	}
	if seen.Method != http.MethodPost || seen.URL.Path != "/upload/storage/v1/b/nf-media/o" {
		t.Fatalf("request %s %s", seen.Method, seen.URL.Path)
	}
	if seen.URL.Query().Get("name") != "products/p1/tea.png" || seen.URL.Query().Get("uploadType") != "media" {
		t.Fatalf("query %s", seen.URL.RawQuery)
	}
	if seen.Header.Get("Authorization") != "Bearer ya29.test" {
		t.Fatalf("auth header %q", seen.Header.Get("Authorization"))
	}
	if seen.Header.Get("Content-Type") != "application/octet-stream" || body != "pngdata" {
		t.Fatalf("content type %q body %q", seen.Header.Get("Content-Type"), body)
	}
}

func TestCallStatusHandling(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		run     func(*Client) error
		wantErr string
	}{
		{"upload forbidden", http.StatusForbidden, "bucket is locked", func(c *Client) error {
			_, err := c.Upload(context.Background(), "", "x.png", "image/png", strings.NewReader("x"))
			return err
		}, "bucket is locked"},
		{"delete ok", http.StatusNoContent, "", func(c *Client) error {
			return c.DeleteObject(context.Background(), "", "products/p1/tea.png")
		}, ""},
		{"delete missing", http.StatusNotFound, "", func(c *Client) error {
			return c.DeleteObject(context.Background(), "", "products/p1/tea.png")
		}, ""},
		{"delete failing", http.StatusInternalServerError, "", func(c *Client) error {
			return c.DeleteObject(context.Background(), "", "products/p1/tea.png")
		}, "gcs delete"},
		{"ping denied", http.StatusUnauthorized, "", func(c *Client) error {
			return c.Ping(context.Background())
		}, "gcs list objects"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := apiClient(func(*http.Request) (*http.Response, error) {
				return reply(tc.status, tc.body), nil
			})
			err := tc.run(client)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected %q in error, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestUninitializedClientRefusesCalls(t *testing.T) {
	var nilClient *Client
	if err := nilClient.Ping(context.Background()); !errors.Is(err, errNotInitialized) {
		t.Fatalf("ping on nil client: %v", err)
	}
	if err := (&Client{}).DeleteObject(context.Background(), "b", "o"); !errors.Is(err, errNotInitialized) {
		t.Fatalf("delete without tokens: %v", err)
	}
	if nilClient.DefaultBucket() != "" {
		t.Fatal("nil client has no bucket")
	}
}

func TestTokenSourceCachesUntilNearExpiry(t *testing.T) {
	var fetches atomic.Int32
	ts := &tokenSource{fetch: func(context.Context) (string, time.Time, error) {
		n := fetches.Add(1)
		// The first token is already inside the refresh margin.
		if n == 1 {
			return "short", time.Now().Add(30 * time.Second), nil
		}
		return "long", time.Now().Add(time.Hour), nil
	}}

	for i, want := range []string{"short", "long", "long"} {
		got, err := ts.Token(context.Background())
		if err != nil || got != want {
			t.Fatalf("call %d: got %q err %v", i, got, err)
		}
	}
	if fetches.Load() != 2 {
		t.Fatalf("expected two fetches, got %d", fetches.Load())
	}
}

func serviceAccountJSON(t *testing.T, key *rsa.PrivateKey) string {
	t.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	raw, _ := json.Marshal(map[string]string{
		"client_email": "uploader@nf.iam.gserviceaccount.com",
		"private_key":  string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})),
	})
	return string(raw)
}

func TestServiceAccountAssertion(t *testing.T) {
	key := testKey(t)
	sa, err := loadServiceAccount(config.GCPConfig{CredentialsJSON: serviceAccountJSON(t, key)})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sa.TokenURI != defaultTokenURI {
		t.Fatalf("token uri defaulted to %q", sa.TokenURI)
	}

	signed, err := sa.assertion(time.Now())
	if err != nil {
		t.Fatalf("assertion: %v", err)
	}
	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(signed, claims, func(*jwt.Token) (any, error) { return &key.PublicKey, nil },
		jwt.WithValidMethods([]string{"RS256"}), jwt.WithAudience(defaultTokenURI))
	if err != nil {
		t.Fatalf("assertion does not verify: %v", err)
	}
	if claims["scope"] != storageScope || claims["iss"] != "uploader@nf.iam.gserviceaccount.com" {
		t.Fatalf("claims = %v", claims)
	}
}

func TestLoadServiceAccountVariants(t *testing.T) {
	if sa, err := loadServiceAccount(config.GCPConfig{}); sa != nil || err != nil {
		t.Fatalf("no credentials should mean metadata server, got %v %v", sa, err)
	}
	for name, raw := range map[string]string{
		"not json":  "{",
		"no email":  `{"private_key":"x"}`,
		"bad key":   `{"client_email":"a@b","private_key":"not pem"}`,
		"file gone": "",
	} {
		gcp := config.GCPConfig{CredentialsJSON: raw}
		if raw == "" {
			gcp.ApplicationCredentials = t.TempDir() + "/missing.json"
		}
		if _, err := loadServiceAccount(gcp); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
