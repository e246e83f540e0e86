package transfer

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers the export/import routes on a
// pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB) {
	h := &handler{
		transferService: NewService(db),
	}

	g.GET("/export", h.export)
	g.POST("/import", h.importDocument)
}
