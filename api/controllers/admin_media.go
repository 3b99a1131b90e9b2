package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/nilgirisfresh-backend/api/responses"
	"github.com/angelmondragon/nilgirisfresh-backend/api/validators"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/media"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/nilgirisfresh-backend/pkg/errors"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/logger"
)

type productImagePresigner interface {
	PresignProductImage(ctx context.Context, input media.PresignInput) (*media.PresignOutput, error)
}

type mediaPresignRequest struct {
	MimeType  string `json:"mime_type" validate:"required"`
	FileName  string `json:"file_name" validate:"required,max=200"`
	SizeBytes int64  `json:"size_bytes" validate:"required,min=1"`
}

// AdminPresignProductImage returns a signed PUT URL for a direct browser upload.
func AdminPresignProductImage(svc productImagePresigner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "media service unavailable"))
			return
		}

		var body mediaPresignRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out, err := svc.PresignProductImage(r.Context(), media.PresignInput{
			FileName:  body.FileName,
			MimeType:  body.MimeType,
			SizeBytes: body.SizeBytes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

// AdminUploadProductImage accepts a multipart product image and stores it publicly.
func AdminUploadProductImage(uploader mediaUploader, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if uploader == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "media service unavailable"))
			return
		}

		adminID, err := requireUser(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		upload, cleanup, err := readMultipartFile(w, r, maxBytes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer cleanup()

		out, err := uploader.Upload(r.Context(), media.UploadInput{
			Kind:     enums.MediaKindProductImage,
			OwnerID:  adminID,
			FileName: upload.name,
			Body:     upload.file,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, out)
	}
}
