package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/angelmondragon/nilgirisfresh-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/nilgirisfresh-backend/pkg/errors"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/storage/gcs"
)

const defaultUploadTTL = 15 * time.Minute

type objectStore interface {
	Upload(ctx context.Context, bucket, object, contentType string, body io.Reader) (gcs.Object, error)
	DeleteObject(ctx context.Context, bucket, object string) error
	PublicURL(bucket, object string) string
	SignedURL(bucket, object, contentType string, expires time.Duration) (string, error)
}

// Service stores product images and payment evidence in object storage.
type Service interface {
	Upload(ctx context.Context, input UploadInput) (*UploadOutput, error)
	PresignProductImage(ctx context.Context, input PresignInput) (*PresignOutput, error)
	Discard(ctx context.Context, kind enums.MediaKind, key string) error
}

// Config selects buckets and limits.
type Config struct {
	ImageBucket    string
	EvidenceBucket string
	MaxBytes       int64
	UploadTTL      time.Duration
}

type service struct {
	store          objectStore
	imageBucket    string
	evidenceBucket string
	maxBytes       int64
	uploadTTL      time.Duration
}

// NewService constructs a media service backed by the object store.
func NewService(store objectStore, cfg Config) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if cfg.ImageBucket == "" {
		return nil, fmt.Errorf("image bucket required")
	}
	if cfg.MaxBytes <= 0 {
		return nil, fmt.Errorf("max upload size must be positive")
	}
	evidence := cfg.EvidenceBucket
	if evidence == "" {
		evidence = cfg.ImageBucket
	}
	ttl := cfg.UploadTTL
	if ttl <= 0 {
		ttl = defaultUploadTTL
	}
	return &service{
		store:          store,
		imageBucket:    cfg.ImageBucket,
		evidenceBucket: evidence,
		maxBytes:       cfg.MaxBytes,
		uploadTTL:      ttl,
	}, nil
}

// UploadInput is a file received through a multipart form.
type UploadInput struct {
	Kind     enums.MediaKind
	OwnerID  uuid.UUID
	FileName string
	Body     io.Reader
}

// UploadOutput locates a stored object. URL is set for public objects only.
type UploadOutput struct {
	Key         string `json:"key"`
	Bucket      string `json:"-"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	URL         string `json:"url,omitempty"`
}

// PresignInput requests a direct browser upload of a product image.
type PresignInput struct {
	FileName  string
	MimeType  string
	SizeBytes int64
}

// PresignOutput contains the signed PUT target handed to the admin client.
type PresignOutput struct {
	Key          string    `json:"key"`
	SignedPUTURL string    `json:"signed_put_url"`
	PublicURL    string    `json:"public_url"`
	ContentType  string    `json:"content_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (s *service) bucketFor(kind enums.MediaKind) string {
	if kind == enums.MediaKindPaymentEvidence {
		return s.evidenceBucket
	}
	return s.imageBucket
}

// Upload reads at most the configured limit, checks the sniffed content type
// against the kind and stores the object.
func (s *service) Upload(ctx context.Context, input UploadInput) (*UploadOutput, error) {
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid media kind")
	}
	if input.Body == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is required")
	}
	data, err := io.ReadAll(io.LimitReader(input.Body, s.maxBytes+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload")
	}
	if len(data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is empty")
	}
	if int64(len(data)) > s.maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("file must be at most %d MB", s.maxBytes>>20))
	}

	contentType := sniffMime(data)
	if err := checkContentType(input.Kind, contentType); err != nil {
		return nil, err
	}

	key := buildObjectKey(input.Kind, input.OwnerID, input.FileName, contentType)
	bucket := s.bucketFor(input.Kind)
	if _, err := s.store.Upload(ctx, bucket, key, contentType, bytes.NewReader(data)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store upload")
	}

	out := &UploadOutput{
		Key:         key,
		Bucket:      bucket,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
	}
	if input.Kind == enums.MediaKindProductImage {
		out.URL = s.store.PublicURL(bucket, key)
	}
	return out, nil
}

func (s *service) PresignProductImage(ctx context.Context, input PresignInput) (*PresignOutput, error) {
	if strings.TrimSpace(input.FileName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file_name is required")
	}
	if input.SizeBytes <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size_bytes must be positive")
	}
	if input.SizeBytes > s.maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("size_bytes must be at most %d bytes", s.maxBytes))
	}
	contentType, err := normalizeMime(input.MimeType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "mime_type is invalid")
	}
	if err := checkContentType(enums.MediaKindProductImage, contentType); err != nil {
		return nil, err
	}

	key := buildObjectKey(enums.MediaKindProductImage, uuid.Nil, input.FileName, contentType)
	signed, err := s.store.SignedURL(s.imageBucket, key, contentType, s.uploadTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign upload url")
	}
	return &PresignOutput{
		Key:          key,
		SignedPUTURL: signed,
		PublicURL:    s.store.PublicURL(s.imageBucket, key),
		ContentType:  contentType,
		ExpiresAt:    time.Now().Add(s.uploadTTL),
	}, nil
}

// Discard removes an object that never got attached.
func (s *service) Discard(ctx context.Context, kind enums.MediaKind, key string) error {
	if strings.TrimSpace(key) == "" {
		return nil
	}
	if err := s.store.DeleteObject(ctx, s.bucketFor(kind), key); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete object")
	}
	return nil
}

func buildObjectKey(kind enums.MediaKind, ownerID uuid.UUID, fileName, contentType string) string {
	id := uuid.New()
	name := sanitizeFileName(fileName)
	if name == "" {
		name = id.String()
	}
	if ext := mimetype.Lookup(contentType); ext != nil && ext.Extension() != "" && path.Ext(name) == "" {
		name += ext.Extension()
	}
	switch kind {
	case enums.MediaKindPaymentEvidence:
		return fmt.Sprintf("evidence/%s/%s/%s", ownerID, id, name)
	default:
		return fmt.Sprintf("products/%s/%s", id, name)
	}
}

func sanitizeFileName(name string) string {
	if name == "" {
		return ""
	}
	clean := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if clean == "." || clean == "/" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}
