package controllers

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/angelmondragon/nilgirisfresh-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/nilgirisfresh-backend/pkg/errors"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/logger"
)

const multipartOverhead = 1 << 20

type multipartUpload struct {
	file multipart.File
	name string
}

// readMultipartFile parses a multipart body capped at maxBytes plus form
// overhead and returns its "file" part. cleanup must be called once the
// file has been consumed.
func readMultipartFile(w http.ResponseWriter, r *http.Request, maxBytes int64) (multipartUpload, func(), error) {
	noop := func() {}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(maxBytes + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return multipartUpload{}, noop, pkgerrors.New(pkgerrors.CodeValidation, "file too large")
		}
		return multipartUpload{}, noop, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		_ = r.MultipartForm.RemoveAll()
		return multipartUpload{}, noop, pkgerrors.New(pkgerrors.CodeValidation, "file is required").
			WithDetails(map[string]string{"file": "required"})
	}
	cleanup := func() {
		_ = file.Close()
		_ = r.MultipartForm.RemoveAll()
	}
	return multipartUpload{file: file, name: header.Filename}, cleanup, nil
}

func discardEvidence(ctx context.Context, uploader mediaUploader, key string, logg *logger.Logger) {
	if err := uploader.Discard(ctx, enums.MediaKindPaymentEvidence, key); err != nil && logg != nil {
		logg.Warn(logg.WithField(ctx, "object_key", key), "evidence.discard_failed: "+err.Error())
	}
}
