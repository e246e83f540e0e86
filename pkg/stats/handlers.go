package stats

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/tsundokuapp/tsundoku/pkg/identity"
)

type handler struct {
	statsService *Service
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	profile, err := identity.CurrentProfile(c)
	if err != nil {
		return errors.WithStack(err)
	}

	summary, err := h.statsService.Summarize(ctx, profile.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, summary))
}
