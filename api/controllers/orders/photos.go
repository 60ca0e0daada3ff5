package orders

import (
	"errors"
	"io"
	"net/http"

	"github.com/angelmondragon/repairdesk-backend/api/responses"
	"github.com/angelmondragon/repairdesk-backend/api/validators"
	internalorders "github.com/angelmondragon/repairdesk-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
	"github.com/angelmondragon/repairdesk-backend/pkg/logger"
)

const (
	photoField   = "photo"
	captionField = "caption"
	// multipart framing and the caption field on top of the image itself
	multipartOverhead = 64 << 10
)

// AddPhoto accepts a multipart upload with a "photo" file and an optional caption.
func AddPhoto(svc internalorders.Service, maxBytes int, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := scopeOrError(w, r, logg)
		if !ok {
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes)+multipartOverhead)
		if err := r.ParseMultipartForm(int64(maxBytes)); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "photo too large").
					WithDetails(map[string]any{"max_bytes": maxBytes}))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body"))
			return
		}
		defer func() {
			if r.MultipartForm != nil {
				_ = r.MultipartForm.RemoveAll()
			}
		}()

		file, _, err := r.FormFile(photoField)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "photo file is required").
				WithDetails(map[string]any{"field": photoField}))
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, int64(maxBytes)+1))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read photo"))
			return
		}
		if len(data) > maxBytes {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "photo too large").
				WithDetails(map[string]any{"max_bytes": maxBytes}))
			return
		}

		var caption *string
		if raw := validators.SanitizeString(r.FormValue(captionField), 500); raw != "" {
			caption = &raw
		}

		photo, err := svc.AddPhoto(r.Context(), scope, orderID, internalorders.AddPhotoInput{
			Data:    data,
			Caption: caption,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, internalorders.ToPhotoDTO(*photo))
	}
}
