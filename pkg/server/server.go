package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/tsundokuapp/tsundoku/pkg/binder"
	"github.com/tsundokuapp/tsundoku/pkg/books"
	"github.com/tsundokuapp/tsundoku/pkg/catalog"
	"github.com/tsundokuapp/tsundoku/pkg/config"
	"github.com/tsundokuapp/tsundoku/pkg/errcodes"
	"github.com/tsundokuapp/tsundoku/pkg/follows"
	"github.com/tsundokuapp/tsundoku/pkg/identity"
	"github.com/tsundokuapp/tsundoku/pkg/profiles"
	"github.com/tsundokuapp/tsundoku/pkg/stats"
	"github.com/tsundokuapp/tsundoku/pkg/tags"
	"github.com/tsundokuapp/tsundoku/pkg/transfer"
	"github.com/tsundokuapp/tsundoku/pkg/uploads"
	"github.com/uptrace/bun"
)

func New(cfg *config.Config, db *bun.DB, storage uploads.Storage) (*http.Server, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)

	identityService := identity.NewService(db, cfg.Identity)
	authMiddleware := identity.NewMiddleware(identityService)

	registerProtectedRoutes(e, db, cfg, storage, authMiddleware)

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

// registerProtectedRoutes registers all API routes. Everything except the
// health check requires a valid bearer token.
func registerProtectedRoutes(e *echo.Echo, db *bun.DB, cfg *config.Config, storage uploads.Storage, authMiddleware *identity.Middleware) {
	booksGroup := e.Group("/books")
	booksGroup.Use(authMiddleware.Authenticate)
	books.RegisterRoutesWithGroup(booksGroup, db)

	tagsGroup := e.Group("/tags")
	tagsGroup.Use(authMiddleware.Authenticate)
	tags.RegisterRoutesWithGroup(tagsGroup, db, cfg.TagCacheTTL)

	followsGroup := e.Group("/follows")
	followsGroup.Use(authMiddleware.Authenticate)
	follows.RegisterRoutesWithGroup(followsGroup, db)

	profileGroup := e.Group("/profile")
	profileGroup.Use(authMiddleware.Authenticate)
	profiles.RegisterRoutesWithGroup(profileGroup, db)

	usersGroup := e.Group("/users")
	usersGroup.Use(authMiddleware.Authenticate)
	profiles.RegisterUserRoutesWithGroup(usersGroup, db)

	statsGroup := e.Group("/stats")
	statsGroup.Use(authMiddleware.Authenticate)
	stats.RegisterRoutesWithGroup(statsGroup, db)

	transferGroup := e.Group("")
	transferGroup.Use(authMiddleware.Authenticate)
	transfer.RegisterRoutesWithGroup(transferGroup, db)

	catalogGroup := e.Group("/catalog")
	catalogGroup.Use(authMiddleware.Authenticate)
	catalog.RegisterRoutesWithGroup(catalogGroup, cfg)

	uploadsGroup := e.Group("/uploads")
	uploadsGroup.Use(authMiddleware.Authenticate)
	uploads.RegisterRoutesWithGroup(uploadsGroup, storage)
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
