package books

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsundokuapp/tsundoku/pkg/errcodes"
	"github.com/tsundokuapp/tsundoku/pkg/migrations"
	"github.com/tsundokuapp/tsundoku/pkg/models"
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

func createTestTag(t *testing.T, db *bun.DB, userID, name string) *models.Tag {
	t.Helper()
	tag := &models.Tag{
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		UserID:    userID,
		Name:      name,
	}
	_, err := db.NewInsert().Model(tag).Returning("*").Exec(context.Background())
	require.NoError(t, err)
	return tag
}

func strptr(s string) *string    { return &s }
func intptr(i int) *int          { return &i }
func boolptr(b bool) *bool       { return &b }
func timeptr(t time.Time) *time.Time { return &t }

func TestService_CreateBook(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	user := createTestProfile(t, db, "user-1")

	t.Run("applies defaults", func(t *testing.T) {
		book, err := svc.CreateBook(ctx, CreateBookCommand{
			UserID: user.ID,
			Title:  "The Sailor Who Fell from Grace",
		})
		require.NoError(t, err)
		assert.Equal(t, models.BookStatusUnread, book.Status)
		assert.Equal(t, models.PriorityMedium, book.Priority)
		assert.False(t, book.Owned)
		assert.Nil(t, book.FinishedDate)
		assert.Empty(t, book.Tags)
	})

	t.Run("trims the title", func(t *testing.T) {
		book, err := svc.CreateBook(ctx, CreateBookCommand{
			UserID: user.ID,
			Title:  "  Kokoro  ",
		})
		require.NoError(t, err)
		assert.Equal(t, "Kokoro", book.Title)
	})

	t.Run("rejects a blank title", func(t *testing.T) {
		_, err := svc.CreateBook(ctx, CreateBookCommand{
			UserID: user.ID,
			Title:  "   ",
		})
		appErr := &errcodes.Error{}
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "validation_error", appErr.Code)
	})

	t.Run("rejects an out of range rating", func(t *testing.T) {
		_, err := svc.CreateBook(ctx, CreateBookCommand{
			UserID: user.ID,
			Title:  "Botchan",
			Rating: intptr(6),
		})
		appErr := &errcodes.Error{}
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "validation_error", appErr.Code)
	})

	t.Run("stamps the finished date when created as finished", func(t *testing.T) {
		now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
		svc.now = func() time.Time { return now }
		defer func() { svc.now = time.Now }()

		book, err := svc.CreateBook(ctx, CreateBookCommand{
			UserID: user.ID,
			Title:  "Snow Country",
			Status: models.BookStatusFinished,
		})
		require.NoError(t, err)
		require.NotNil(t, book.FinishedDate)
		assert.True(t, book.FinishedDate.Equal(now))
	})

	t.Run("keeps an explicit finished date", func(t *testing.T) {
		finished := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
		book, err := svc.CreateBook(ctx, CreateBookCommand{
			UserID:       user.ID,
			Title:        "The Makioka Sisters",
			Status:       models.BookStatusFinished,
			FinishedDate: timeptr(finished),
		})
		require.NoError(t, err)
		require.NotNil(t, book.FinishedDate)
		assert.True(t, book.FinishedDate.Equal(finished))
	})

	t.Run("attaches tags", func(t *testing.T) {
		novel := createTestTag(t, db, user.ID, "novel")
		classic := createTestTag(t, db, user.ID, "classic")

		book, err := svc.CreateBook(ctx, CreateBookCommand{
			UserID: user.ID,
			Title:  "Rashomon",
			TagIDs: []int{novel.ID, classic.ID},
		})
		require.NoError(t, err)
		require.Len(t, book.Tags, 2)
		names := []string{book.Tags[0].Tag.Name, book.Tags[1].Tag.Name}
		assert.ElementsMatch(t, []string{"novel", "classic"}, names)
	})

	t.Run("a local cover clears the remote one", func(t *testing.T) {
		book, err := svc.CreateBook(ctx, CreateBookCommand{
			UserID:    user.ID,
			Title:     "Sanshiro",
			CoverURL:  strptr("https://example.com/cover.jpg"),
			CoverPath: strptr("user-1/abc.jpg"),
		})
		require.NoError(t, err)
		assert.Nil(t, book.CoverURL)
		require.NotNil(t, book.CoverPath)
		assert.Equal(t, "user-1/abc.jpg", *book.CoverPath)
	})
}

func TestService_UpdateBook(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	user := createTestProfile(t, db, "user-1")
	other := createTestProfile(t, db, "user-2")

	t.Run("replaces the book state", func(t *testing.T) {
		book, err := svc.CreateBook(ctx, CreateBookCommand{
			UserID: user.ID,
			Title:  "I Am a Cat",
			Memo:   strptr("to read on the train"),
		})
		require.NoError(t, err)

		updated, err := svc.UpdateBook(ctx, user.ID, book.ID, UpdateBookCommand{
			Title:  "I Am a Cat",
			Status: models.BookStatusReading,
			Owned:  true,
		})
		require.NoError(t, err)
		assert.Equal(t, models.BookStatusReading, updated.Status)
		assert.True(t, updated.Owned)
		// Full replacement clears fields the caller didn't resend.
		assert.Nil(t, updated.Memo)
	})

	t.Run("stamps the finished date on transition into finished", func(t *testing.T) {
		now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
		svc.now = func() time.Time { return now }
		defer func() { svc.now = time.Now }()

		book, err := svc.CreateBook(ctx, CreateBookCommand{
			UserID: user.ID,
			Title:  "The Wind-Up Bird Chronicle",
			Status: models.BookStatusReading,
		})
		require.NoError(t, err)

		updated, err := svc.UpdateBook(ctx, user.ID, book.ID, UpdateBookCommand{
			Title:  book.Title,
			Status: models.BookStatusFinished,
		})
		require.NoError(t, err)
		require.NotNil(t, updated.FinishedDate)
		assert.True(t, updated.FinishedDate.Equal(now))
	})

	t.Run("clears the finished date when already finished and none is sent", func(t *testing.T) {
		book, err := svc.CreateBook(ctx, CreateBookCommand{
			UserID:       user.ID,
			Title:        "Norwegian Wood",
			Status:       models.BookStatusFinished,
			FinishedDate: timeptr(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
		})
		require.NoError(t, err)

		updated, err := svc.UpdateBook(ctx, user.ID, book.ID, UpdateBookCommand{
			Title:  book.Title,
			Status: models.BookStatusFinished,
		})
		require.NoError(t, err)
		assert.Nil(t, updated.FinishedDate)
	})

	t.Run("replaces the tag set when one is supplied", func(t *testing.T) {
		novel := createTestTag(t, db, user.ID, "novel")
		sf := createTestTag(t, db, user.ID, "sf")

		book, err := svc.CreateBook(ctx, CreateBookCommand{
			UserID: user.ID,
			Title:  "Kafka on the Shore",
			TagIDs: []int{novel.ID},
		})
		require.NoError(t, err)

		updated, err := svc.UpdateBook(ctx, user.ID, book.ID, UpdateBookCommand{
			Title:  book.Title,
			Status: book.Status,
			TagIDs: &[]int{sf.ID},
		})
		require.NoError(t, err)
		require.Len(t, updated.Tags, 1)
		assert.Equal(t, "sf", updated.Tags[0].Tag.Name)
	})

	t.Run("keeps the tag set when none is supplied", func(t *testing.T) {
		essay := createTestTag(t, db, user.ID, "essay")

		book, err := svc.CreateBook(ctx, CreateBookCommand{
			UserID: user.ID,
			Title:  "The Pillow Book",
			TagIDs: []int{essay.ID},
		})
		require.NoError(t, err)

		updated, err := svc.UpdateBook(ctx, user.ID, book.ID, UpdateBookCommand{
			Title:  book.Title,
			Status: book.Status,
		})
		require.NoError(t, err)
		require.Len(t, updated.Tags, 1)
		assert.Equal(t, "essay", updated.Tags[0].Tag.Name)
	})

	t.Run("another user's book reads as missing", func(t *testing.T) {
		book, err := svc.CreateBook(ctx, CreateBookCommand{
			UserID: user.ID,
			Title:  "Silence",
		})
		require.NoError(t, err)

		_, err = svc.UpdateBook(ctx, other.ID, book.ID, UpdateBookCommand{
			Title:  "Hijacked",
			Status: models.BookStatusUnread,
		})
		appErr := &errcodes.Error{}
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "not_found", appErr.Code)
	})
}

func TestService_PurchaseBook(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	user := createTestProfile(t, db, "user-1")

	t.Run("moves a wishlist book to owned and unread", func(t *testing.T) {
		now := time.Date(2026, 5, 20, 18, 30, 0, 0, time.UTC)
		svc.now = func() time.Time { return now }
		defer func() { svc.now = time.Now }()

		book, err := svc.CreateBook(ctx, CreateBookCommand{
			UserID: user.ID,
			Title:  "Convenience Store Woman",
			Status: models.BookStatusWishlist,
		})
		require.NoError(t, err)

		purchased, err := svc.PurchaseBook(ctx, user.ID, book.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookStatusUnread, purchased.Status)
		assert.True(t, purchased.Owned)
		require.NotNil(t, purchased.PurchaseDate)
		assert.True(t, purchased.PurchaseDate.Equal(now))
	})

	t.Run("rejects books outside the wishlist", func(t *testing.T) {
		book, err := svc.CreateBook(ctx, CreateBookCommand{
			UserID: user.ID,
			Title:  "Breasts and Eggs",
			Status: models.BookStatusReading,
		})
		require.NoError(t, err)

		_, err = svc.PurchaseBook(ctx, user.ID, book.ID)
		appErr := &errcodes.Error{}
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "invalid_state", appErr.Code)
	})

	t.Run("missing books are reported as such", func(t *testing.T) {
		_, err := svc.PurchaseBook(ctx, user.ID, 999999)
		appErr := &errcodes.Error{}
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "not_found", appErr.Code)
	})
}

func TestService_DeleteBook(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	user := createTestProfile(t, db, "user-1")
	other := createTestProfile(t, db, "user-2")

	t.Run("removes the book and its tag links", func(t *testing.T) {
		tag := createTestTag(t, db, user.ID, "memoir")
		book, err := svc.CreateBook(ctx, CreateBookCommand{
			UserID: user.ID,
			Title:  "A Personal Matter",
			TagIDs: []int{tag.ID},
		})
		require.NoError(t, err)

		require.NoError(t, svc.DeleteBook(ctx, user.ID, book.ID))

		_, err = svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID, UserID: &user.ID})
		appErr := &errcodes.Error{}
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "not_found", appErr.Code)

		count, err := db.NewSelect().
			Model((*models.BookTag)(nil)).
			Where("book_id = ?", book.ID).
			Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("cannot delete another user's book", func(t *testing.T) {
		book, err := svc.CreateBook(ctx, CreateBookCommand{
			UserID: user.ID,
			Title:  "The Woman in the Dunes",
		})
		require.NoError(t, err)

		err = svc.DeleteBook(ctx, other.ID, book.ID)
		appErr := &errcodes.Error{}
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "not_found", appErr.Code)
	})
}

func TestService_ListBooks(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	user := createTestProfile(t, db, "user-1")
	other := createTestProfile(t, db, "user-2")

	novel := createTestTag(t, db, user.ID, "novel")
	sf := createTestTag(t, db, user.ID, "sf")

	seed := []CreateBookCommand{
		{UserID: user.ID, Title: "Hard-Boiled Wonderland", Author: strptr("Haruki Murakami"), Status: models.BookStatusFinished, Owned: true, Rating: intptr(5), TagIDs: []int{novel.ID, sf.ID}},
		{UserID: user.ID, Title: "The Tale of Genji", Author: strptr("Murasaki Shikibu"), Status: models.BookStatusReading, Owned: true, Rating: intptr(4), TagIDs: []int{novel.ID}},
		{UserID: user.ID, Title: "All You Need Is Kill", Author: strptr("Hiroshi Sakurazaka"), Status: models.BookStatusWishlist, Priority: models.PriorityHigh, TagIDs: []int{sf.ID}},
		{UserID: user.ID, Title: "Musashi", Author: strptr("Eiji Yoshikawa"), Status: models.BookStatusUnread, Owned: true},
		{UserID: other.ID, Title: "Not Yours", Status: models.BookStatusUnread},
	}
	for _, cmd := range seed {
		_, err := svc.CreateBook(ctx, cmd)
		require.NoError(t, err)
	}

	t.Run("scopes to the user", func(t *testing.T) {
		books, err := svc.ListBooks(ctx, ListBooksOptions{UserID: user.ID})
		require.NoError(t, err)
		assert.Len(t, books, 4)
	})

	t.Run("filters by status", func(t *testing.T) {
		status := models.BookStatusWishlist
		books, err := svc.ListBooks(ctx, ListBooksOptions{UserID: user.ID, Status: &status})
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, "All You Need Is Kill", books[0].Title)
	})

	t.Run("filters by owned and rating", func(t *testing.T) {
		books, err := svc.ListBooks(ctx, ListBooksOptions{
			UserID: user.ID,
			Owned:  boolptr(true),
			Rating: intptr(5),
		})
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, "Hard-Boiled Wonderland", books[0].Title)
	})

	t.Run("filters by tag", func(t *testing.T) {
		books, err := svc.ListBooks(ctx, ListBooksOptions{UserID: user.ID, TagID: &sf.ID})
		require.NoError(t, err)
		assert.Len(t, books, 2)
	})

	t.Run("search matches title case-insensitively", func(t *testing.T) {
		books, err := svc.ListBooks(ctx, ListBooksOptions{UserID: user.ID, Search: strptr("genji")})
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, "The Tale of Genji", books[0].Title)
	})

	t.Run("search matches author", func(t *testing.T) {
		books, err := svc.ListBooks(ctx, ListBooksOptions{UserID: user.ID, Search: strptr("murakami")})
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, "Hard-Boiled Wonderland", books[0].Title)
	})

	t.Run("search matches tag names", func(t *testing.T) {
		books, err := svc.ListBooks(ctx, ListBooksOptions{UserID: user.ID, Search: strptr("sf")})
		require.NoError(t, err)
		assert.Len(t, books, 2)
	})

	t.Run("blank search is ignored", func(t *testing.T) {
		books, err := svc.ListBooks(ctx, ListBooksOptions{UserID: user.ID, Search: strptr("   ")})
		require.NoError(t, err)
		assert.Len(t, books, 4)
	})

	t.Run("sorts by rating ascending", func(t *testing.T) {
		books, err := svc.ListBooks(ctx, ListBooksOptions{
			UserID: user.ID,
			Rating: nil,
			Sort:   "rating",
			Order:  "asc",
		})
		require.NoError(t, err)
		require.Len(t, books, 4)
		last := books[len(books)-1]
		require.NotNil(t, last.Rating)
		assert.Equal(t, 5, *last.Rating)
	})

	t.Run("an unknown sort falls back to created_at", func(t *testing.T) {
		books, err := svc.ListBooks(ctx, ListBooksOptions{UserID: user.ID, Sort: "sneaky_column"})
		require.NoError(t, err)
		assert.Len(t, books, 4)
	})

	t.Run("paginates with a total", func(t *testing.T) {
		page := 2
		limit := 3
		books, total, err := svc.ListBooksWithTotal(ctx, ListBooksOptions{
			UserID: user.ID,
			Page:   &page,
			Limit:  &limit,
		})
		require.NoError(t, err)
		assert.Equal(t, 4, total)
		assert.Len(t, books, 1)
	})
}

func TestPaginate(t *testing.T) {
	t.Run("reports remaining pages", func(t *testing.T) {
		p := Paginate(1, 3, 4, 3)
		assert.Equal(t, 2, p.TotalPages)
		assert.True(t, p.HasMore)
	})

	t.Run("last page has no more", func(t *testing.T) {
		p := Paginate(2, 3, 4, 1)
		assert.Equal(t, 2, p.TotalPages)
		assert.False(t, p.HasMore)
	})
}
