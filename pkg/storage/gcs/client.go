// Package gcs talks to the Cloud Storage JSON API over plain HTTP for the
// handful of calls the store needs: uploads, deletes, and V2 signed URLs.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/nilgirisfresh-backend/pkg/config"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/logger"
)

const (
	apiHost        = "https://storage.googleapis.com"
	requestTimeout = 30 * time.Second
	pingTimeout    = 5 * time.Second
	errBodyLimit   = 2048
)

var errNotInitialized = errors.New("gcs client not initialized")

// Object locates an uploaded blob.
type Object struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

type Client struct {
	httpClient    *http.Client
	defaultBucket string
	tokens        *tokenSource
	// signer is nil when running on metadata credentials.
	signer *urlSigner
}

// NewClient resolves credentials (inline JSON, a key file, or the metadata
// server) and checks that the default bucket can be listed.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("gcs bucket name is required")
	}

	httpClient := &http.Client{Timeout: requestTimeout}
	client := &Client{httpClient: httpClient, defaultBucket: cfg.BucketName}

	sa, err := loadServiceAccount(gcp)
	if err != nil {
		return nil, err
	}
	if sa != nil {
		client.tokens = sa.tokenSource(httpClient)
		client.signer = &urlSigner{email: sa.ClientEmail, key: sa.key}
	} else {
		client.tokens = metadataTokenSource(httpClient)
		if logg != nil {
			logg.Warn(ctx, "gcs.signing_disabled")
		}
	}

	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}
	if logg != nil {
		logg.Info(ctx, "gcs.connected")
	}
	return client, nil
}

func (c *Client) DefaultBucket() string {
	if c == nil {
		return ""
	}
	return c.defaultBucket
}

func (c *Client) Close() error { return nil }

// Ping lists at most one object, which needs storage.objects.list on the
// default bucket.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.tokens == nil {
		return errNotInitialized
	}
	if c.defaultBucket == "" {
		return errors.New("gcs bucket not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/storage/v1/b/%s/o?maxResults=1", apiHost, url.PathEscape(c.defaultBucket))
	return c.call(ctx, http.MethodGet, endpoint, nil, "", "list objects", http.StatusOK)
}

// Upload stores body under object with a simple media upload.
func (c *Client) Upload(ctx context.Context, bucket, object, contentType string, body io.Reader) (Object, error) {
	bucket, err := c.target(bucket, object)
	if err != nil {
		return Object{}, err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	q := url.Values{"uploadType": {"media"}, "name": {object}}
	endpoint := fmt.Sprintf("%s/upload/storage/v1/b/%s/o?%s", apiHost, url.PathEscape(bucket), q.Encode())
	if err := c.call(ctx, http.MethodPost, endpoint, body, contentType, "upload", http.StatusOK); err != nil {
		return Object{}, err
	}
	return Object{Bucket: bucket, Name: object}, nil
}

// DeleteObject removes an object. A missing object is not an error.
func (c *Client) DeleteObject(ctx context.Context, bucket, object string) error {
	bucket, err := c.target(bucket, object)
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/storage/v1/b/%s/o/%s", apiHost, url.PathEscape(bucket), url.PathEscape(object))
	return c.call(ctx, http.MethodDelete, endpoint, nil, "", "delete",
		http.StatusOK, http.StatusNoContent, http.StatusNotFound)
}

// PublicURL is the unsigned address of an object in a publicly readable bucket.
func (c *Client) PublicURL(bucket, object string) string {
	return objectURL(bucket, object)
}

func (c *Client) target(bucket, object string) (string, error) {
	if c == nil || c.tokens == nil {
		return "", errNotInitialized
	}
	if bucket == "" {
		bucket = c.defaultBucket
	}
	if bucket == "" || object == "" {
		return "", errors.New("bucket and object are required")
	}
	return bucket, nil
}

func (c *Client) call(ctx context.Context, method, endpoint string, body io.Reader, contentType, op string, accept ...int) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("gcs %s: token: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gcs %s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	for _, status := range accept {
		if resp.StatusCode == status {
			return nil
		}
	}
	return statusError("gcs "+op, resp)
}

func statusError(prefix string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, errBodyLimit))
	if msg := strings.TrimSpace(string(b)); msg != "" {
		return fmt.Errorf("%s: %s: %s", prefix, resp.Status, msg)
	}
	return fmt.Errorf("%s: %s", prefix, resp.Status)
}

func objectURL(bucket, object string) string {
	segments := strings.Split(object, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return apiHost + "/" + bucket + "/" + strings.Join(segments, "/")
}
