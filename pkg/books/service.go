package books

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

type RetrieveBookOptions struct {
	ID     *int
	UserID *string
}

// ListBooksOptions is the full set of filter/sort/pagination criteria for a
// shelf listing. All filters are optional and combine conjunctively; Search is
// internally a disjunction over title, author, and tag names.
type ListBooksOptions struct {
	UserID   string
	Search   *string
	Status   *models.BookStatus
	Category *models.BookCategory
	Owned    *bool
	Rating   *int
	TagID    *int
	Sort     string
	Order    string
	Page     *int
	Limit    *int

	includeTotal bool
}

// CreateBookCommand is the strongly-typed input to CreateBook, after the
// transport layer's coercion and defaulting rules have been applied.
type CreateBookCommand struct {
	UserID              string
	Title               string
	Author              *string
	Publisher           *string
	ISBN                *string
	Status              models.BookStatus
	Owned               bool
	Category            *models.BookCategory
	PurchaseDate        *time.Time
	FinishedDate        *time.Time
	PlannedPurchaseDate *time.Time
	Rating              *int
	Memo                *string
	Review              *string
	CoverURL            *string
	CoverPath           *string
	Price               *float64
	PurchaseURL         *string
	Priority            models.Priority
	TagIDs              []int
}

// UpdateBookCommand carries the full replacement state for a book. A nil
// TagIDs leaves the tag set untouched; a non-nil one fully replaces it.
type UpdateBookCommand struct {
	Title               string
	Author              *string
	Publisher           *string
	ISBN                *string
	Status              models.BookStatus
	Owned               bool
	Category            *models.BookCategory
	PurchaseDate        *time.Time
	FinishedDate        *time.Time
	PlannedPurchaseDate *time.Time
	Rating              *int
	Memo                *string
	Review              *string
	CoverURL            *string
	CoverPath           *string
	Price               *float64
	PurchaseURL         *string
	Priority            models.Priority
	TagIDs              *[]int
}

// sortColumns is the allow-list of sortable columns. Anything else silently
// falls back to created_at.
var sortColumns = map[string]string{
	"created_at":            "created_at",
	"finished_date":         "finished_date",
	"rating":                "rating",
	"priority":              "priority",
	"planned_purchase_date": "planned_purchase_date",
	"category":              "category",
}

type Service struct {
	db  *bun.DB
	now func() time.Time
}

func NewService(db *bun.DB) *Service {
	return &Service{db: db, now: time.Now}
}

func (svc *Service) CreateBook(ctx context.Context, cmd CreateBookCommand) (*models.Book, error) {
	cmd.Title = strings.TrimSpace(cmd.Title)
	if cmd.Title == "" {
		return nil, errcodes.ValidationError(`"title" is required`)
	}
	if cmd.Status == "" {
		cmd.Status = models.BookStatusUnread
	}
	if cmd.Priority == 0 {
		cmd.Priority = models.PriorityMedium
	}
	if err := validateBookFields(cmd.Status, cmd.Category, cmd.Rating, cmd.Priority); err != nil {
		return nil, err
	}

	// A book becoming FINISHED without an explicit completion date is stamped
	// with the current date.
	finishedDate := cmd.FinishedDate
	if cmd.Status == models.BookStatusFinished && finishedDate == nil {
		now := svc.now()
		finishedDate = &now
	}

	coverURL, coverPath := resolveCover(cmd.CoverURL, cmd.CoverPath)

	now := svc.now()
	book := &models.Book{
		CreatedAt:           now,
		UpdatedAt:           now,
		UserID:              cmd.UserID,
		Title:               cmd.Title,
		Author:              cmd.Author,
		Publisher:           cmd.Publisher,
		ISBN:                cmd.ISBN,
		Status:              cmd.Status,
		Owned:               cmd.Owned,
		Category:            cmd.Category,
		PurchaseDate:        cmd.PurchaseDate,
		FinishedDate:        finishedDate,
		PlannedPurchaseDate: cmd.PlannedPurchaseDate,
		Rating:              cmd.Rating,
		Memo:                cmd.Memo,
		Review:              cmd.Review,
		CoverURL:            coverURL,
		CoverPath:           coverPath,
		Price:               cmd.Price,
		PurchaseURL:         cmd.PurchaseURL,
		Priority:            cmd.Priority,
	}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.
			NewInsert().
			Model(book).
			Returning("*").
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		return insertBookTags(ctx, tx, book.ID, cmd.TagIDs)
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID, UserID: &cmd.UserID})
}

func (svc *Service) RetrieveBook(ctx context.Context, opts RetrieveBookOptions) (*models.Book, error) {
	book := &models.Book{}

	q := svc.db.
		NewSelect().
		Model(book).
		Relation("Tags").
		Relation("Tags.Tag")

	if opts.ID != nil {
		q = q.Where("b.id = ?", *opts.ID)
	}
	if opts.UserID != nil {
		q = q.Where("b.user_id = ?", *opts.UserID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}

	return book, nil
}

func (svc *Service) ListBooks(ctx context.Context, opts ListBooksOptions) ([]*models.Book, error) {
	b, _, err := svc.listBooksWithTotal(ctx, opts)
	return b, errors.WithStack(err)
}

func (svc *Service) ListBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	opts.includeTotal = true
	return svc.listBooksWithTotal(ctx, opts)
}

func (svc *Service) listBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	books := []*models.Book{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&books).
		Relation("Tags").
		Relation("Tags.Tag").
		Where("b.user_id = ?", opts.UserID)

	if opts.Search != nil {
		if term := strings.TrimSpace(*opts.Search); term != "" {
			pattern := "%" + strings.ToLower(term) + "%"
			q = q.Where(
				`(LOWER(b.title) LIKE ? OR LOWER(b.author) LIKE ? OR b.id IN (
					SELECT bt.book_id FROM book_tags bt
					JOIN tags t ON t.id = bt.tag_id
					WHERE t.user_id = b.user_id AND LOWER(t.name) LIKE ?
				))`,
				pattern, pattern, pattern,
			)
		}
	}
	if opts.Status != nil {
		q = q.Where("b.status = ?", *opts.Status)
	}
	if opts.Category != nil {
		q = q.Where("b.category = ?", *opts.Category)
	}
	if opts.Owned != nil {
		q = q.Where("b.owned = ?", *opts.Owned)
	}
	if opts.Rating != nil {
		q = q.Where("b.rating = ?", *opts.Rating)
	}
	if opts.TagID != nil {
		q = q.Where("b.id IN (SELECT book_id FROM book_tags WHERE tag_id = ?)", *opts.TagID)
	}

	column, ok := sortColumns[opts.Sort]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if opts.Order == "asc" {
		direction = "ASC"
	}
	q = q.OrderExpr("b.? ?", bun.Ident(column), bun.Safe(direction))

	if opts.Limit != nil {
		page := 1
		if opts.Page != nil && *opts.Page > 1 {
			page = *opts.Page
		}
		q = q.Limit(*opts.Limit).Offset((page - 1) * *opts.Limit)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return books, total, nil
}

func (svc *Service) UpdateBook(ctx context.Context, userID string, id int, cmd UpdateBookCommand) (*models.Book, error) {
	existing, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &id, UserID: &userID})
	if err != nil {
		return nil, err
	}

	cmd.Title = strings.TrimSpace(cmd.Title)
	if cmd.Title == "" {
		return nil, errcodes.ValidationError(`"title" is required`)
	}
	if cmd.Priority == 0 {
		cmd.Priority = models.PriorityMedium
	}
	if err := validateBookFields(cmd.Status, cmd.Category, cmd.Rating, cmd.Priority); err != nil {
		return nil, err
	}

	// Any transition into FINISHED from a non-FINISHED status without an
	// explicit completion date is treated as a fresh completion and stamped
	// with the current date. Otherwise the supplied value is taken verbatim,
	// including explicit clears.
	finishedDate := cmd.FinishedDate
	if cmd.Status == models.BookStatusFinished && finishedDate == nil && existing.Status != models.BookStatusFinished {
		now := svc.now()
		finishedDate = &now
	}

	coverURL, coverPath := resolveCover(cmd.CoverURL, cmd.CoverPath)

	book := &models.Book{
		ID:                  id,
		CreatedAt:           existing.CreatedAt,
		UpdatedAt:           svc.now(),
		UserID:              userID,
		Title:               cmd.Title,
		Author:              cmd.Author,
		Publisher:           cmd.Publisher,
		ISBN:                cmd.ISBN,
		Status:              cmd.Status,
		Owned:               cmd.Owned,
		Category:            cmd.Category,
		PurchaseDate:        cmd.PurchaseDate,
		FinishedDate:        finishedDate,
		PlannedPurchaseDate: cmd.PlannedPurchaseDate,
		Rating:              cmd.Rating,
		Memo:                cmd.Memo,
		Review:              cmd.Review,
		CoverURL:            coverURL,
		CoverPath:           coverPath,
		Price:               cmd.Price,
		PurchaseURL:         cmd.PurchaseURL,
		Priority:            cmd.Priority,
	}

	// The book row and its tag-set replacement commit as one unit so a
	// failure can't leave the book with a half-written tag set.
	err = svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.
			NewUpdate().
			Model(book).
			ExcludeColumn("created_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		if cmd.TagIDs != nil {
			_, err = tx.
				NewDelete().
				Model((*models.BookTag)(nil)).
				Where("book_id = ?", id).
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
			return insertBookTags(ctx, tx, id, *cmd.TagIDs)
		}
		return nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &id, UserID: &userID})
}

// PurchaseBook moves a wishlist book to the owned, unread state and stamps the
// purchase date. It's only valid for books currently in WISHLIST.
func (svc *Service) PurchaseBook(ctx context.Context, userID string, id int) (*models.Book, error) {
	book, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &id, UserID: &userID})
	if err != nil {
		return nil, err
	}

	if book.Status != models.BookStatusWishlist {
		return nil, errcodes.InvalidState("This book is not in the wishlist.")
	}

	now := svc.now()
	book.Status = models.BookStatusUnread
	book.Owned = true
	book.PurchaseDate = &now
	book.UpdatedAt = now

	_, err = svc.db.
		NewUpdate().
		Model(book).
		Column("status", "owned", "purchase_date", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &id, UserID: &userID})
}

func (svc *Service) DeleteBook(ctx context.Context, userID string, id int) error {
	_, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &id, UserID: &userID})
	if err != nil {
		return err
	}

	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.
			NewDelete().
			Model((*models.BookTag)(nil)).
			Where("book_id = ?", id).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.
			NewDelete().
			Model((*models.Book)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		return errors.WithStack(err)
	})
}

func validateBookFields(status models.BookStatus, category *models.BookCategory, rating *int, priority models.Priority) error {
	if !status.Valid() {
		return errcodes.ValidationError(`"status" is not a valid status`)
	}
	if category != nil && !category.Valid() {
		return errcodes.ValidationError(`"category" is not a valid category`)
	}
	if rating != nil && (*rating < 1 || *rating > 5) {
		return errcodes.ValidationError(`"rating" must be between 1 and 5`)
	}
	if !priority.Valid() {
		return errcodes.ValidationError(`"priority" must be between 1 and 3`)
	}
	return nil
}

// resolveCover enforces that only one cover reference is authoritative at a
// time: a local upload clears the remote URL and vice versa.
func resolveCover(coverURL, coverPath *string) (*string, *string) {
	if coverPath != nil && *coverPath != "" {
		return nil, coverPath
	}
	if coverURL != nil && *coverURL != "" {
		return coverURL, nil
	}
	return nil, nil
}

func insertBookTags(ctx context.Context, tx bun.Tx, bookID int, tagIDs []int) error {
	if len(tagIDs) == 0 {
		return nil
	}
	bookTags := make([]*models.BookTag, 0, len(tagIDs))
	for _, tagID := range tagIDs {
		bookTags = append(bookTags, &models.BookTag{BookID: bookID, TagID: tagID})
	}
	_, err := tx.
		NewInsert().
		Model(&bookTags).
		Exec(ctx)
	return errors.WithStack(err)
}
