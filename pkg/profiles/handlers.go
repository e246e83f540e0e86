package profiles

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/tsundokuapp/tsundoku/pkg/books"
	"github.com/tsundokuapp/tsundoku/pkg/errcodes"
	"github.com/tsundokuapp/tsundoku/pkg/follows"
	"github.com/tsundokuapp/tsundoku/pkg/identity"
	"github.com/tsundokuapp/tsundoku/pkg/models"
)

const defaultShelfLimit = 1000

type handler struct {
	profileService *Service
	bookService    *books.Service
	followService  *follows.Service
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	current, err := identity.CurrentProfile(c)
	if err != nil {
		return errors.WithStack(err)
	}

	profile, err := h.profileService.RetrieveProfile(ctx, current.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, profile))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	current, err := identity.CurrentProfile(c)
	if err != nil {
		return errors.WithStack(err)
	}

	// Bind params.
	params := UpdateProfilePayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	profile, err := h.profileService.UpdateProfile(ctx, current.ID, params.Name, params.AvatarURL)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, profile))
}

func (h *handler) search(c echo.Context) error {
	ctx := c.Request().Context()
	current, err := identity.CurrentProfile(c)
	if err != nil {
		return errors.WithStack(err)
	}

	// Bind params.
	params := SearchProfilesQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	profiles, err := h.profileService.SearchProfiles(ctx, current.ID, params.Query)
	if err != nil {
		return errors.WithStack(err)
	}

	ids := make([]string, 0, len(profiles))
	for _, profile := range profiles {
		ids = append(ids, profile.ID)
	}
	followingSet, err := h.followService.FollowingSet(ctx, current.ID, ids)
	if err != nil {
		return errors.WithStack(err)
	}

	type searchHit struct {
		*models.Profile
		IsFollowing bool `json:"is_following"`
	}
	hits := make([]searchHit, 0, len(profiles))
	for _, profile := range profiles {
		hits = append(hits, searchHit{profile, followingSet[profile.ID]})
	}

	resp := struct {
		Users []searchHit `json:"users"`
	}{hits}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

// retrieveUser returns another user's public card. It is visible to any
// authenticated user; only the shelf itself is follow-gated.
func (h *handler) retrieveUser(c echo.Context) error {
	ctx := c.Request().Context()
	current, err := identity.CurrentProfile(c)
	if err != nil {
		return errors.WithStack(err)
	}

	profile, err := h.profileService.RetrieveProfile(ctx, c.Param("id"))
	if err != nil {
		return errors.WithStack(err)
	}

	var followID *int
	isFollowing := false
	if profile.ID != current.ID {
		follow, err := h.followService.FindFollow(ctx, current.ID, profile.ID)
		if err != nil {
			return errors.WithStack(err)
		}
		if follow != nil {
			isFollowing = true
			followID = &follow.ID
		}
	}

	resp := struct {
		User        *models.Profile `json:"user"`
		IsFollowing bool            `json:"is_following"`
		FollowID    *int            `json:"follow_id"`
		IsMe        bool            `json:"is_me"`
	}{profile, isFollowing, followID, profile.ID == current.ID}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

// listUserBooks returns another user's shelf. Access requires following that
// user; your own shelf is always visible.
func (h *handler) listUserBooks(c echo.Context) error {
	ctx := c.Request().Context()
	current, err := identity.CurrentProfile(c)
	if err != nil {
		return errors.WithStack(err)
	}

	userID := c.Param("id")
	owner, err := h.profileService.RetrieveProfile(ctx, userID)
	if err != nil {
		return errors.WithStack(err)
	}

	if userID != current.ID {
		following, err := h.followService.IsFollowing(ctx, current.ID, userID)
		if err != nil {
			return errors.WithStack(err)
		}
		if !following {
			return errcodes.Forbidden("Viewing this user's books")
		}
	}

	// Bind params.
	params := books.ListBooksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}
	if params.Limit == nil {
		limit := defaultShelfLimit
		params.Limit = &limit
	}

	opts := params.ToListOptions(userID)
	results, total, err := h.bookService.ListBooksWithTotal(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	page := 1
	if params.Page != nil {
		page = *params.Page
	}
	resp := struct {
		User       *models.Profile  `json:"user"`
		Books      []*models.Book   `json:"books"`
		Pagination books.Pagination `json:"pagination"`
	}{owner, results, books.Paginate(page, *params.Limit, total, len(results))}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}
