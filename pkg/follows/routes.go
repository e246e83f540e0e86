package follows

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers follow routes on a pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB) {
	h := &handler{
		followService: NewService(db),
	}

	g.GET("", h.list)
	g.POST("", h.create)
	g.DELETE("/:id", h.delete)
}
