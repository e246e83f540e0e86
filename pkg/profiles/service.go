package profiles

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tsundokuapp/tsundoku/pkg/errcodes"
	"github.com/tsundokuapp/tsundoku/pkg/models"
	"github.com/uptrace/bun"
)

const searchLimit = 20

type Service struct {
	db  *bun.DB
	now func() time.Time
}

func NewService(db *bun.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// RetrieveProfile returns a user's profile annotated with shelf and follow
// counts.
func (svc *Service) RetrieveProfile(ctx context.Context, id string) (*models.Profile, error) {
	profile := &models.Profile{}
	err := svc.db.
		NewSelect().
		Model(profile).
		ColumnExpr("p.*").
		ColumnExpr("(SELECT COUNT(*) FROM books b WHERE b.user_id = p.id) AS book_count").
		ColumnExpr("(SELECT COUNT(*) FROM follows f WHERE f.following_id = p.id) AS follower_count").
		ColumnExpr("(SELECT COUNT(*) FROM follows f WHERE f.follower_id = p.id) AS following_count").
		Where("p.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("User")
		}
		return nil, errors.WithStack(err)
	}
	return profile, nil
}

// UpdateProfile updates the user's display name and avatar.
func (svc *Service) UpdateProfile(ctx context.Context, id string, name *string, avatarURL *string) (*models.Profile, error) {
	profile, err := svc.RetrieveProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if n := len([]rune(trimmed)); n < 2 || n > 30 {
			return nil, errcodes.ValidationError(`"name" must be between 2 and 30 characters`)
		}
		profile.Name = &trimmed
	}
	if avatarURL != nil {
		profile.AvatarURL = avatarURL
	}
	profile.UpdatedAt = svc.now()

	_, err = svc.db.
		NewUpdate().
		Model(profile).
		Column("name", "avatar_url", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return svc.RetrieveProfile(ctx, id)
}

// SearchProfiles finds users whose display name or email contains the query,
// case-insensitively. Queries shorter than two characters return nothing, and
// the caller is always excluded from the results.
func (svc *Service) SearchProfiles(ctx context.Context, callerID, query string) ([]*models.Profile, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < 2 {
		return []*models.Profile{}, nil
	}

	pattern := "%" + strings.ToLower(query) + "%"
	profiles := []*models.Profile{}
	err := svc.db.
		NewSelect().
		Model(&profiles).
		ColumnExpr("p.*").
		ColumnExpr("(SELECT COUNT(*) FROM books b WHERE b.user_id = p.id) AS book_count").
		ColumnExpr("(SELECT COUNT(*) FROM follows f WHERE f.following_id = p.id) AS follower_count").
		Where("p.id != ?", callerID).
		Where("(LOWER(p.name) LIKE ? OR LOWER(p.email) LIKE ?)", pattern, pattern).
		Order("p.name ASC").
		Limit(searchLimit).
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return profiles, nil
}
