package follows

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/tsundokuapp/tsundoku/pkg/errcodes"
	"github.com/tsundokuapp/tsundoku/pkg/identity"
	"github.com/tsundokuapp/tsundoku/pkg/models"
)

type handler struct {
	followService *Service
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()
	profile, err := identity.CurrentProfile(c)
	if err != nil {
		return errors.WithStack(err)
	}

	follows, err := h.followService.ListFollowing(ctx, profile.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Follows []*models.Follow `json:"follows"`
	}{follows}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()
	profile, err := identity.CurrentProfile(c)
	if err != nil {
		return errors.WithStack(err)
	}

	// Bind params.
	params := CreateFollowPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	follow, err := h.followService.CreateFollow(ctx, profile.ID, params.FollowingID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, follow))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()
	profile, err := identity.CurrentProfile(c)
	if err != nil {
		return errors.WithStack(err)
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Follow")
	}

	err = h.followService.DeleteFollow(ctx, profile.ID, id)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Success bool `json:"success"`
	}{true}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}
