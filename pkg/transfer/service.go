package transfer

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/tsundokuapp/tsundoku/pkg/models"
	"github.com/tsundokuapp/tsundoku/pkg/tags"
	"github.com/uptrace/bun"
)

// Version identifies the export document format.
const Version = "1.0"

// Document is a self-contained snapshot of a user's shelf: every book with
// its tag names inlined, plus the user's full tag vocabulary.
type Document struct {
	ExportedAt time.Time    `json:"exported_at"`
	Version    string       `json:"version"`
	Books      []BookRecord `json:"books"`
	Tags       []string     `json:"tags"`
}

// BookRecord is a book as it appears in an export document. Tags are carried
// by name so documents stay portable across accounts.
type BookRecord struct {
	Title               string   `json:"title"`
	Author              *string  `json:"author,omitempty"`
	Publisher           *string  `json:"publisher,omitempty"`
	ISBN                *string  `json:"isbn,omitempty"`
	Status              string   `json:"status,omitempty"`
	Owned               bool     `json:"owned,omitempty"`
	Category            *string  `json:"category,omitempty"`
	PurchaseDate        *string  `json:"purchase_date,omitempty"`
	FinishedDate        *string  `json:"finished_date,omitempty"`
	PlannedPurchaseDate *string  `json:"planned_purchase_date,omitempty"`
	Rating              *int     `json:"rating,omitempty"`
	Memo                *string  `json:"memo,omitempty"`
	Review              *string  `json:"review,omitempty"`
	CoverURL            *string  `json:"cover_url,omitempty"`
	CoverPath           *string  `json:"cover_path,omitempty"`
	Price               *float64 `json:"price,omitempty"`
	PurchaseURL         *string  `json:"purchase_url,omitempty"`
	Priority            int      `json:"priority,omitempty"`
	Tags                []string `json:"tags,omitempty"`
}

// Result reports how much of an import made it in. Books that fail
// individually are skipped, not fatal.
type Result struct {
	Success       bool `json:"success"`
	ImportedBooks int  `json:"imported_books"`
	ImportedTags  int  `json:"imported_tags"`
}

type Service struct {
	db         *bun.DB
	tagService *tags.Service
	now        func() time.Time
}

func NewService(db *bun.DB) *Service {
	return &Service{
		db:         db,
		tagService: tags.NewService(db),
		now:        time.Now,
	}
}

// Export builds the user's export document. Books come out newest first and
// the tag vocabulary is sorted by name.
func (svc *Service) Export(ctx context.Context, userID string) (*Document, error) {
	books := []*models.Book{}
	err := svc.db.
		NewSelect().
		Model(&books).
		Relation("Tags").
		Relation("Tags.Tag").
		Where("b.user_id = ?", userID).
		Order("b.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	userTags := []*models.Tag{}
	err = svc.db.
		NewSelect().
		Model(&userTags).
		Where("t.user_id = ?", userID).
		Order("t.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	doc := &Document{
		ExportedAt: svc.now(),
		Version:    Version,
		Books:      make([]BookRecord, 0, len(books)),
		Tags:       make([]string, 0, len(userTags)),
	}
	for _, book := range books {
		doc.Books = append(doc.Books, toRecord(book))
	}
	for _, tag := range userTags {
		doc.Tags = append(doc.Tags, tag.Name)
	}

	return doc, nil
}

// Import loads a document into the user's shelf. The tag vocabulary is
// upserted first; then each book is inserted with its named tags resolved to
// the user's own tag rows. A book that fails is logged and skipped so one bad
// record can't sink the rest.
func (svc *Service) Import(ctx context.Context, userID string, doc *Document) (*Result, error) {
	log := logger.FromContext(ctx)
	result := &Result{Success: true}

	for _, name := range doc.Tags {
		if _, _, err := svc.tagService.FindOrCreateTag(ctx, userID, name); err != nil {
			log.Warn("failed to import tag", logger.Data{"tag": name, "error": err.Error()})
			continue
		}
		result.ImportedTags++
	}

	for _, record := range doc.Books {
		if err := svc.importBook(ctx, userID, record); err != nil {
			log.Warn("failed to import book", logger.Data{"title": record.Title, "error": err.Error()})
			continue
		}
		result.ImportedBooks++
	}

	return result, nil
}

func (svc *Service) importBook(ctx context.Context, userID string, record BookRecord) error {
	if record.Title == "" {
		return errors.New("missing title")
	}

	status := models.BookStatus(record.Status)
	if record.Status == "" {
		status = models.BookStatusUnread
	}
	if !status.Valid() {
		return errors.Errorf("invalid status %q", record.Status)
	}

	var category *models.BookCategory
	if record.Category != nil && *record.Category != "" {
		c := models.BookCategory(*record.Category)
		if !c.Valid() {
			return errors.Errorf("invalid category %q", *record.Category)
		}
		category = &c
	}

	priority := models.Priority(record.Priority)
	if priority == 0 {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return errors.Errorf("invalid priority %d", record.Priority)
	}

	purchaseDate, err := parseRecordDate(record.PurchaseDate)
	if err != nil {
		return err
	}
	finishedDate, err := parseRecordDate(record.FinishedDate)
	if err != nil {
		return err
	}
	plannedPurchaseDate, err := parseRecordDate(record.PlannedPurchaseDate)
	if err != nil {
		return err
	}

	tagIDs := make([]int, 0, len(record.Tags))
	for _, name := range record.Tags {
		tag, _, err := svc.tagService.FindOrCreateTag(ctx, userID, name)
		if err != nil {
			return err
		}
		tagIDs = append(tagIDs, tag.ID)
	}

	now := svc.now()
	book := &models.Book{
		CreatedAt:           now,
		UpdatedAt:           now,
		UserID:              userID,
		Title:               record.Title,
		Author:              record.Author,
		Publisher:           record.Publisher,
		ISBN:                record.ISBN,
		Status:              status,
		Owned:               record.Owned,
		Category:            category,
		PurchaseDate:        purchaseDate,
		FinishedDate:        finishedDate,
		PlannedPurchaseDate: plannedPurchaseDate,
		Rating:              record.Rating,
		Memo:                record.Memo,
		Review:              record.Review,
		CoverURL:            record.CoverURL,
		CoverPath:           record.CoverPath,
		Price:               record.Price,
		PurchaseURL:         record.PurchaseURL,
		Priority:            priority,
	}

	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.
			NewInsert().
			Model(book).
			Returning("*").
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		if len(tagIDs) == 0 {
			return nil
		}
		bookTags := make([]*models.BookTag, 0, len(tagIDs))
		for _, tagID := range tagIDs {
			bookTags = append(bookTags, &models.BookTag{BookID: book.ID, TagID: tagID})
		}
		_, err = tx.
			NewInsert().
			Model(&bookTags).
			Exec(ctx)
		return errors.WithStack(err)
	})
}

func toRecord(book *models.Book) BookRecord {
	record := BookRecord{
		Title:               book.Title,
		Author:              book.Author,
		Publisher:           book.Publisher,
		ISBN:                book.ISBN,
		Status:              string(book.Status),
		Owned:               book.Owned,
		PurchaseDate:        formatRecordDate(book.PurchaseDate),
		FinishedDate:        formatRecordDate(book.FinishedDate),
		PlannedPurchaseDate: formatRecordDate(book.PlannedPurchaseDate),
		Rating:              book.Rating,
		Memo:                book.Memo,
		Review:              book.Review,
		CoverURL:            book.CoverURL,
		CoverPath:           book.CoverPath,
		Price:               book.Price,
		PurchaseURL:         book.PurchaseURL,
		Priority:            int(book.Priority),
	}
	if book.Category != nil {
		category := string(*book.Category)
		record.Category = &category
	}
	for _, bookTag := range book.Tags {
		if bookTag.Tag != nil {
			record.Tags = append(record.Tags, bookTag.Tag.Name)
		}
	}
	return record
}

// parseRecordDate accepts either a bare date or a full RFC 3339 timestamp so
// documents from older exports stay loadable.
func parseRecordDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", *s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &t, nil
}

func formatRecordDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}
