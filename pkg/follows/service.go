package follows

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/tsundokuapp/tsundoku/pkg/errcodes"
	"github.com/tsundokuapp/tsundoku/pkg/models"
	"github.com/uptrace/bun"
)

type Service struct {
	db  *bun.DB
	now func() time.Time
}

func NewService(db *bun.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// CreateFollow records that followerID follows followingID. Following
// yourself, a missing user, or someone you already follow is rejected.
func (svc *Service) CreateFollow(ctx context.Context, followerID, followingID string) (*models.Follow, error) {
	if followerID == followingID {
		return nil, errcodes.ValidationError("You cannot follow yourself.")
	}

	exists, err := svc.db.
		NewSelect().
		Model((*models.Profile)(nil)).
		Where("p.id = ?", followingID).
		Exists(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !exists {
		return nil, errcodes.NotFound("User")
	}

	following, err := svc.IsFollowing(ctx, followerID, followingID)
	if err != nil {
		return nil, err
	}
	if following {
		return nil, errcodes.Conflict("You are already following this user.")
	}

	follow := &models.Follow{
		CreatedAt:   svc.now(),
		FollowerID:  followerID,
		FollowingID: followingID,
	}

	_, err = svc.db.
		NewInsert().
		Model(follow).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return svc.retrieveFollow(ctx, follow.ID)
}

// DeleteFollow removes a follow record. Only the follower that created the
// record may delete it.
func (svc *Service) DeleteFollow(ctx context.Context, followerID string, id int) error {
	follow := &models.Follow{}
	err := svc.db.
		NewSelect().
		Model(follow).
		Where("f.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Follow")
		}
		return errors.WithStack(err)
	}

	if follow.FollowerID != followerID {
		return errcodes.Forbidden("Removing another user's follow")
	}

	_, err = svc.db.
		NewDelete().
		Model(follow).
		WherePK().
		Exec(ctx)
	return errors.WithStack(err)
}

// ListFollowing returns the users that userID follows, newest first, with
// shelf and follower counts attached to each followed profile.
func (svc *Service) ListFollowing(ctx context.Context, userID string) ([]*models.Follow, error) {
	follows := []*models.Follow{}
	err := svc.db.
		NewSelect().
		Model(&follows).
		Relation("Following").
		Where("f.follower_id = ?", userID).
		Order("f.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if len(follows) == 0 {
		return follows, nil
	}

	ids := make([]string, 0, len(follows))
	for _, follow := range follows {
		ids = append(ids, follow.FollowingID)
	}

	bookCounts, err := svc.countByUser(ctx, "SELECT user_id, COUNT(*) AS count FROM books WHERE user_id IN (?) GROUP BY user_id", ids)
	if err != nil {
		return nil, err
	}
	followerCounts, err := svc.countByUser(ctx, "SELECT following_id AS user_id, COUNT(*) AS count FROM follows WHERE following_id IN (?) GROUP BY following_id", ids)
	if err != nil {
		return nil, err
	}

	for _, follow := range follows {
		if follow.Following == nil {
			continue
		}
		follow.Following.BookCount = bookCounts[follow.FollowingID]
		follow.Following.FollowerCount = followerCounts[follow.FollowingID]
	}

	return follows, nil
}

func (svc *Service) countByUser(ctx context.Context, query string, ids []string) (map[string]int, error) {
	rows := []struct {
		UserID string `bun:"user_id"`
		Count  int    `bun:"count"`
	}{}
	err := svc.db.
		NewRaw(query, bun.In(ids)).
		Scan(ctx, &rows)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.UserID] = row.Count
	}
	return counts, nil
}

// FindFollow returns the follow edge from followerID to followingID, or nil
// when no such edge exists.
func (svc *Service) FindFollow(ctx context.Context, followerID, followingID string) (*models.Follow, error) {
	follow := &models.Follow{}
	err := svc.db.
		NewSelect().
		Model(follow).
		Where("f.follower_id = ?", followerID).
		Where("f.following_id = ?", followingID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.WithStack(err)
	}
	return follow, nil
}

// FollowingSet reports which of the given users followerID follows. IDs absent
// from the map are not followed.
func (svc *Service) FollowingSet(ctx context.Context, followerID string, ids []string) (map[string]bool, error) {
	if len(ids) == 0 {
		return map[string]bool{}, nil
	}

	followingIDs := []string{}
	err := svc.db.
		NewSelect().
		Model((*models.Follow)(nil)).
		Column("f.following_id").
		Where("f.follower_id = ?", followerID).
		Where("f.following_id IN (?)", bun.In(ids)).
		Scan(ctx, &followingIDs)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	set := make(map[string]bool, len(followingIDs))
	for _, id := range followingIDs {
		set[id] = true
	}
	return set, nil
}

// IsFollowing reports whether followerID currently follows followingID.
func (svc *Service) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	exists, err := svc.db.
		NewSelect().
		Model((*models.Follow)(nil)).
		Where("f.follower_id = ?", followerID).
		Where("f.following_id = ?", followingID).
		Exists(ctx)
	return exists, errors.WithStack(err)
}

func (svc *Service) retrieveFollow(ctx context.Context, id int) (*models.Follow, error) {
	follow := &models.Follow{}
	err := svc.db.
		NewSelect().
		Model(follow).
		Relation("Following").
		Where("f.id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return follow, nil
}
