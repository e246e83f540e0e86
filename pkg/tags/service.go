package tags

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/tsundokuapp/tsundoku/pkg/errcodes"
	"github.com/tsundokuapp/tsundoku/pkg/models"
	"github.com/uptrace/bun"
)

// DefaultCacheTTL is how long a user's tag listing is served from memory
// before being re-read from the database.
const DefaultCacheTTL = 60 * time.Second

type cacheEntry struct {
	tags      []*models.Tag
	expiresAt time.Time
}

type Service struct {
	db       *bun.DB
	now      func() time.Time
	cacheTTL time.Duration

	mu    sync.Mutex
	cache map[string]cacheEntry
}

func NewService(db *bun.DB) *Service {
	return NewServiceWithTTL(db, DefaultCacheTTL)
}

// NewServiceWithTTL overrides how long tag listings are cached.
func NewServiceWithTTL(db *bun.DB, cacheTTL time.Duration) *Service {
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	return &Service{
		db:       db,
		now:      time.Now,
		cacheTTL: cacheTTL,
		cache:    map[string]cacheEntry{},
	}
}

// ListTags returns the user's tags ordered by name, each annotated with how
// many of the user's books carry it. Results are cached per user; any write
// through this service invalidates the user's entry.
func (svc *Service) ListTags(ctx context.Context, userID string) ([]*models.Tag, error) {
	svc.mu.Lock()
	entry, ok := svc.cache[userID]
	svc.mu.Unlock()
	if ok && svc.now().Before(entry.expiresAt) {
		return entry.tags, nil
	}

	tags := []*models.Tag{}
	err := svc.db.
		NewSelect().
		Model(&tags).
		ColumnExpr("t.*").
		ColumnExpr("(SELECT COUNT(*) FROM book_tags bt WHERE bt.tag_id = t.id) AS book_count").
		Where("t.user_id = ?", userID).
		Order("t.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	svc.mu.Lock()
	svc.cache[userID] = cacheEntry{tags: tags, expiresAt: svc.now().Add(svc.cacheTTL)}
	svc.mu.Unlock()

	return tags, nil
}

// CreateTag creates a new tag for the user. Names are unique per user; a
// duplicate is rejected rather than reused.
func (svc *Service) CreateTag(ctx context.Context, userID, name string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errcodes.ValidationError(`"name" is required`)
	}

	existing, err := svc.findTag(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errcodes.ValidationError("A tag with this name already exists.")
	}

	now := svc.now()
	tag := &models.Tag{
		CreatedAt: now,
		UpdatedAt: now,
		UserID:    userID,
		Name:      name,
	}

	_, err = svc.db.
		NewInsert().
		Model(tag).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	svc.invalidate(userID)

	return tag, nil
}

// FindOrCreateTag returns the user's tag with the given name, creating it if
// it doesn't exist yet. Matching is exact after trimming.
func (svc *Service) FindOrCreateTag(ctx context.Context, userID, name string) (*models.Tag, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, errcodes.ValidationError(`"name" is required`)
	}

	existing, err := svc.findTag(ctx, userID, name)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	now := svc.now()
	tag := &models.Tag{
		CreatedAt: now,
		UpdatedAt: now,
		UserID:    userID,
		Name:      name,
	}

	_, err = svc.db.
		NewInsert().
		Model(tag).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, false, errors.WithStack(err)
	}

	svc.invalidate(userID)

	return tag, true, nil
}

func (svc *Service) findTag(ctx context.Context, userID, name string) (*models.Tag, error) {
	tag := &models.Tag{}
	err := svc.db.
		NewSelect().
		Model(tag).
		Where("t.user_id = ?", userID).
		Where("t.name = ?", name).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.WithStack(err)
	}
	return tag, nil
}

func (svc *Service) invalidate(userID string) {
	svc.mu.Lock()
	delete(svc.cache, userID)
	svc.mu.Unlock()
}
