package uploads

import (
	"mime/multipart"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/tsundokuapp/tsundoku/pkg/errcodes"
	"github.com/tsundokuapp/tsundoku/pkg/identity"
)

// maxUploadSize caps cover uploads at 5MB.
const maxUploadSize = 5 * 1024 * 1024

// allowedImageTypes maps the accepted sniffed content types to the extension
// used for the stored object.
var allowedImageTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

type handler struct {
	storage Storage
}

type UploadCoverPayload struct {
	FormFiles map[string]*multipart.FileHeader
}

func (h *handler) uploadCover(c echo.Context) error {
	ctx := c.Request().Context()
	profile, err := identity.CurrentProfile(c)
	if err != nil {
		return errors.WithStack(err)
	}

	// Bind params.
	params := UploadCoverPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	header, ok := params.FormFiles["file"]
	if !ok {
		return errcodes.ValidationError(`"file" is required`)
	}
	if header.Size > maxUploadSize {
		return errcodes.ValidationError("The file is too large. The maximum size is 5MB.")
	}

	file, err := header.Open()
	if err != nil {
		return errors.WithStack(err)
	}
	defer file.Close()

	// The content type is sniffed from the bytes rather than trusted from the
	// request.
	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		return errors.WithStack(err)
	}
	ext, ok := allowedImageTypes[mtype.String()]
	if !ok {
		return errcodes.ValidationError("Only JPEG, PNG, GIF, and WebP images can be uploaded.")
	}

	if _, err := file.Seek(0, 0); err != nil {
		return errors.WithStack(err)
	}

	key := profile.ID + "/" + uuid.NewString() + "." + ext
	publicURL, err := h.storage.Put(ctx, key, file, header.Size, mtype.String())
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Success bool   `json:"success"`
		Path    string `json:"path"`
	}{true, publicURL}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}
