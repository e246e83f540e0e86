package tags

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/tsundokuapp/tsundoku/pkg/identity"
	"github.com/tsundokuapp/tsundoku/pkg/models"
)

type handler struct {
	tagService *Service
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()
	profile, err := identity.CurrentProfile(c)
	if err != nil {
		return errors.WithStack(err)
	}

	tags, err := h.tagService.ListTags(ctx, profile.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Tags []*models.Tag `json:"tags"`
	}{tags}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()
	profile, err := identity.CurrentProfile(c)
	if err != nil {
		return errors.WithStack(err)
	}

	// Bind params.
	params := CreateTagPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	tag, err := h.tagService.CreateTag(ctx, profile.ID, params.Name)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, tag))
}
