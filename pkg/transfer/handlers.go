package transfer

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/tsundokuapp/tsundoku/pkg/identity"
)

type handler struct {
	transferService *Service
}

func (h *handler) export(c echo.Context) error {
	ctx := c.Request().Context()
	profile, err := identity.CurrentProfile(c)
	if err != nil {
		return errors.WithStack(err)
	}

	doc, err := h.transferService.Export(ctx, profile.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	filename := fmt.Sprintf("tsundoku-export-%s.json", doc.ExportedAt.Format("2006-01-02"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))

	return errors.WithStack(c.JSON(http.StatusOK, doc))
}

func (h *handler) importDocument(c echo.Context) error {
	ctx := c.Request().Context()
	profile, err := identity.CurrentProfile(c)
	if err != nil {
		return errors.WithStack(err)
	}

	// Bind params. Imports tolerate unknown fields so documents from newer
	// versions still load.
	c.Set("disallow_unknown_fields", false)
	params := ImportPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	doc := &Document{
		ExportedAt: time.Time{},
		Version:    params.Version,
		Books:      params.Books,
		Tags:       params.Tags,
	}

	result, err := h.transferService.Import(ctx, profile.ID, doc)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, result))
}
