package media

import (
	"errors"
	"mime"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/angelmondragon/nilgirisfresh-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/nilgirisfresh-backend/pkg/errors"
)

const octetStream = "application/octet-stream"

type acceptedTypes struct {
	types []string
	label string
}

// Receipts arrive as phone screenshots or bank PDFs; catalogue photos are
// images only.
var acceptedByKind = map[enums.MediaKind]acceptedTypes{
	enums.MediaKindProductImage: {
		types: []string{"image/jpeg", "image/png", "image/webp"},
		label: "JPEG, PNG or WebP images",
	},
	enums.MediaKindPaymentEvidence: {
		types: []string{"application/pdf", "image/jpeg", "image/png", "image/webp"},
		label: "images or PDF receipts",
	},
}

// checkContentType rejects a type the kind does not accept with a
// VALIDATION error naming what is accepted.
func checkContentType(kind enums.MediaKind, contentType string) error {
	accepted, ok := acceptedByKind[kind]
	if ok && slices.Contains(accepted.types, contentType) {
		return nil
	}
	label := accepted.label
	if label == "" {
		label = "approved file types"
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "only "+label+" are accepted").
		WithDetails(map[string]string{"content_type": contentType})
}

// normalizeMime drops parameters: "image/webp; charset=binary" is image/webp.
func normalizeMime(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", errors.New("mime type required")
	}
	mediaType, _, err := mime.ParseMediaType(value)
	if err != nil {
		return "", err
	}
	return strings.ToLower(mediaType), nil
}

// sniffMime trusts the bytes, never the client's Content-Type.
func sniffMime(data []byte) string {
	detected, err := normalizeMime(mimetype.Detect(data).String())
	if err != nil {
		return octetStream
	}
	return detected
}
