package catalog

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/tsundokuapp/tsundoku/pkg/errcodes"
)

type handler struct {
	client *Client
}

func (h *handler) search(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := SearchQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	if !h.client.Configured() {
		return errcodes.Upstream("The book catalog is not configured.")
	}

	volumes, err := h.client.Search(ctx, params.Query)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Books []Volume `json:"books"`
	}{volumes}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) cover(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := CoverQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	coverURL, found := h.client.CoverForISBN(ctx, params.ISBN)

	resp := struct {
		ISBN     string  `json:"isbn"`
		CoverURL *string `json:"cover_url"`
		Found    bool    `json:"found"`
	}{ISBN: params.ISBN, Found: found}
	if found {
		resp.CoverURL = &coverURL
	}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}
