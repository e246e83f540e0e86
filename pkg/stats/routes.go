package stats

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers the stats routes on a pre-configured
// group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB) {
	h := &handler{
		statsService: NewService(db),
	}

	g.GET("", h.retrieve)
}
