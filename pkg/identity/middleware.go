package identity

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/tsundokuapp/tsundoku/pkg/errcodes"
	"github.com/tsundokuapp/tsundoku/pkg/models"
)

const contextKeyProfile = "profile"

// Middleware authenticates requests against the external identity provider's
// bearer tokens.
type Middleware struct {
	service *Service
}

func NewMiddleware(service *Service) *Middleware {
	return &Middleware{service: service}
}

// Authenticate validates the bearer token and stores the acting user's profile
// in the request context, provisioning the profile on first access.
func (m *Middleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return errcodes.Unauthorized("Authentication required")
		}

		claims, err := m.service.VerifyToken(token)
		if err != nil {
			return errcodes.Unauthorized("Invalid or expired token")
		}

		profile, err := m.service.EnsureProfile(ctx, claims)
		if err != nil {
			return err
		}

		c.Set(contextKeyProfile, profile)

		return next(c)
	}
}

// CurrentProfile returns the acting user's profile set by Authenticate.
func CurrentProfile(c echo.Context) (*models.Profile, error) {
	profile, ok := c.Get(contextKeyProfile).(*models.Profile)
	if !ok {
		return nil, errcodes.Unauthorized("Authentication required")
	}
	return profile, nil
}
