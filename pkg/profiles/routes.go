package profiles

import (
	"github.com/labstack/echo/v4"
	"github.com/tsundokuapp/tsundoku/pkg/books"
	"github.com/tsundokuapp/tsundoku/pkg/follows"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers the current-user profile routes on a
// pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB) {
	h := newHandler(db)

	g.GET("", h.retrieve)
	g.PUT("", h.update)
}

// RegisterUserRoutesWithGroup registers the routes for looking at other
// users: search, the public card, and the follow-gated shelf.
func RegisterUserRoutesWithGroup(g *echo.Group, db *bun.DB) {
	h := newHandler(db)

	g.GET("/search", h.search)
	g.GET("/:id", h.retrieveUser)
	g.GET("/:id/lists", h.listUserBooks)
}

func newHandler(db *bun.DB) *handler {
	return &handler{
		profileService: NewService(db),
		bookService:    books.NewService(db),
		followService:  follows.NewService(db),
	}
}
