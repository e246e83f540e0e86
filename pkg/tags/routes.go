package tags

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers tag routes on a pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, cacheTTL time.Duration) {
	h := &handler{
		tagService: NewServiceWithTTL(db, cacheTTL),
	}

	g.GET("", h.list)
	g.POST("", h.create)
}
