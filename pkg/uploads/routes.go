package uploads

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutesWithGroup registers the upload routes on a pre-configured
// group.
func RegisterRoutesWithGroup(g *echo.Group, storage Storage) {
	h := &handler{
		storage: storage,
	}

	g.POST("/cover", h.uploadCover)
}
