package transfer

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsundokuapp/tsundoku/pkg/books"
	"github.com/tsundokuapp/tsundoku/pkg/migrations"
	"github.com/tsundokuapp/tsundoku/pkg/models"
	"github.com/tsundokuapp/tsundoku/pkg/tags"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func createTestProfile(t *testing.T, db *bun.DB, id string) *models.Profile {
	t.Helper()
	profile := &models.Profile{
		ID:        id,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Email:     id + "@example.com",
	}
	_, err := db.NewInsert().Model(profile).Exec(context.Background())
	require.NoError(t, err)
	return profile
}

func strptr(s string) *string { return &s }
func intptr(i int) *int       { return &i }

func TestService_Export(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	bookService := books.NewService(db)
	tagService := tags.NewService(db)
	ctx := context.Background()

	user := createTestProfile(t, db, "user-1")
	other := createTestProfile(t, db, "user-2")

	novel, _, err := tagService.FindOrCreateTag(ctx, user.ID, "novel")
	require.NoError(t, err)
	_, _, err = tagService.FindOrCreateTag(ctx, user.ID, "classic")
	require.NoError(t, err)

	finished := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	_, err = bookService.CreateBook(ctx, books.CreateBookCommand{
		UserID:       user.ID,
		Title:        "Kokoro",
		Author:       strptr("Natsume Soseki"),
		Status:       models.BookStatusFinished,
		Owned:        true,
		FinishedDate: &finished,
		Rating:       intptr(5),
		TagIDs:       []int{novel.ID},
	})
	require.NoError(t, err)
	_, err = bookService.CreateBook(ctx, books.CreateBookCommand{
		UserID: other.ID,
		Title:  "Not Exported",
	})
	require.NoError(t, err)

	t.Run("includes only the user's shelf", func(t *testing.T) {
		doc, err := svc.Export(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, Version, doc.Version)
		assert.False(t, doc.ExportedAt.IsZero())

		require.Len(t, doc.Books, 1)
		record := doc.Books[0]
		assert.Equal(t, "Kokoro", record.Title)
		assert.Equal(t, "FINISHED", record.Status)
		require.NotNil(t, record.FinishedDate)
		assert.Equal(t, "2026-02-10", *record.FinishedDate)
		assert.Equal(t, []string{"novel"}, record.Tags)

		assert.Equal(t, []string{"classic", "novel"}, doc.Tags)
	})
}

func TestService_Import(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	bookService := books.NewService(db)
	ctx := context.Background()

	user := createTestProfile(t, db, "user-1")

	t.Run("loads books and tags", func(t *testing.T) {
		doc := &Document{
			Version: Version,
			Tags:    []string{"novel", "classic"},
			Books: []BookRecord{
				{
					Title:        "Rashomon",
					Status:       "FINISHED",
					Owned:        true,
					FinishedDate: strptr("2025-11-02"),
					Rating:       intptr(4),
					Tags:         []string{"novel"},
				},
				{
					Title: "Botchan",
					// Missing status defaults to unread.
					Tags: []string{"inline-only"},
				},
			},
		}

		result, err := svc.Import(ctx, user.ID, doc)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, 2, result.ImportedBooks)
		assert.Equal(t, 2, result.ImportedTags)

		shelved, err := bookService.ListBooks(ctx, books.ListBooksOptions{UserID: user.ID})
		require.NoError(t, err)
		require.Len(t, shelved, 2)

		byTitle := map[string]*models.Book{}
		for _, book := range shelved {
			byTitle[book.Title] = book
		}
		assert.Equal(t, models.BookStatusFinished, byTitle["Rashomon"].Status)
		require.Len(t, byTitle["Rashomon"].Tags, 1)
		assert.Equal(t, "novel", byTitle["Rashomon"].Tags[0].Tag.Name)
		assert.Equal(t, models.BookStatusUnread, byTitle["Botchan"].Status)
		assert.Equal(t, models.PriorityMedium, byTitle["Botchan"].Priority)
	})

	t.Run("a bad record is skipped, not fatal", func(t *testing.T) {
		doc := &Document{
			Books: []BookRecord{
				{Title: ""},
				{Title: "Good Book"},
				{Title: "Bad Status", Status: "SHELVED"},
				{Title: "Bad Date", FinishedDate: strptr("not-a-date")},
			},
		}

		result, err := svc.Import(ctx, user.ID, doc)
		require.NoError(t, err)
		assert.Equal(t, 1, result.ImportedBooks)
	})

	t.Run("accepts full timestamps for dates", func(t *testing.T) {
		doc := &Document{
			Books: []BookRecord{
				{Title: "Timestamped", FinishedDate: strptr("2025-03-09T10:30:00Z"), Status: "FINISHED"},
			},
		}

		result, err := svc.Import(ctx, user.ID, doc)
		require.NoError(t, err)
		assert.Equal(t, 1, result.ImportedBooks)
	})
}

func TestService_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	source := createTestProfile(t, db, "source")
	target := createTestProfile(t, db, "target")

	original := &Document{
		Tags: []string{"novel"},
		Books: []BookRecord{
			{
				Title:        "Snow Country",
				Author:       strptr("Yasunari Kawabata"),
				Status:       "FINISHED",
				Owned:        true,
				FinishedDate: strptr("2026-01-05"),
				Rating:       intptr(5),
				Priority:     1,
				Tags:         []string{"novel"},
			},
		},
	}

	_, err := svc.Import(ctx, source.ID, original)
	require.NoError(t, err)

	exported, err := svc.Export(ctx, source.ID)
	require.NoError(t, err)

	result, err := svc.Import(ctx, target.ID, exported)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ImportedBooks)

	reExported, err := svc.Export(ctx, target.ID)
	require.NoError(t, err)
	require.Len(t, reExported.Books, 1)
	assert.Equal(t, exported.Books[0], reExported.Books[0])
	assert.Equal(t, exported.Tags, reExported.Tags)
}
