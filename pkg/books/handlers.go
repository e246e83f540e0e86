package books

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
	bookService *Service
}

// Pagination describes one page of a listing. HasMore is true while rows
// remain beyond the returned page.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasMore    bool `json:"has_more"`
}

func Paginate(page, limit, total, count int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasMore:    (page-1)*limit+count < total,
	}
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()
	profile, err := identity.CurrentProfile(c)
	if err != nil {
		return errors.WithStack(err)
	}

	// Bind params.
	params := ListBooksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	opts := params.ToListOptions(profile.ID)

	books, total, err := h.bookService.ListBooksWithTotal(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	if params.Limit == nil {
		resp := struct {
			Books []*models.Book `json:"books"`
			Total int            `json:"total"`
		}{books, total}
		return errors.WithStack(c.JSON(http.StatusOK, resp))
	}

	page := 1
	if params.Page != nil {
		page = *params.Page
	}
	resp := struct {
		Books      []*models.Book `json:"books"`
		Pagination Pagination     `json:"pagination"`
	}{books, Paginate(page, *params.Limit, total, len(books))}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	profile, err := identity.CurrentProfile(c)
	if err != nil {
		return errors.WithStack(err)
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID:     &id,
		UserID: &profile.ID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()
	profile, err := identity.CurrentProfile(c)
	if err != nil {
		return errors.WithStack(err)
	}

	// Bind params.
	params := CreateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	cmd, err := params.toCommand(profile.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	book, err := h.bookService.CreateBook(ctx, cmd)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, book))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	profile, err := identity.CurrentProfile(c)
	if err != nil {
		return errors.WithStack(err)
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	// Bind params.
	params := UpdateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	cmd, err := params.toCommand()
	if err != nil {
		return errors.WithStack(err)
	}

	book, err := h.bookService.UpdateBook(ctx, profile.ID, id, cmd)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) purchase(c echo.Context) error {
	ctx := c.Request().Context()
	profile, err := identity.CurrentProfile(c)
	if err != nil {
		return errors.WithStack(err)
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	book, err := h.bookService.PurchaseBook(ctx, profile.ID, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()
	profile, err := identity.CurrentProfile(c)
	if err != nil {
		return errors.WithStack(err)
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	err = h.bookService.DeleteBook(ctx, profile.ID, id)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Success bool `json:"success"`
	}{true}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}
