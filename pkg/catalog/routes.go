package catalog

import (
	"github.com/labstack/echo/v4"
	"github.com/tsundokuapp/tsundoku/pkg/config"
)

// RegisterRoutesWithGroup registers the catalog proxy routes on a
// pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, cfg *config.Config) {
	h := &handler{
		client: NewClient(cfg.Catalog.APIKey, cfg.CatalogTimeout),
	}

	g.GET("/search", h.search)
	g.GET("/cover", h.cover)
}
