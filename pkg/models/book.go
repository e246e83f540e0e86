package models

import (
	"time"

	"github.com/uptrace/bun"
)

// BookStatus is the lifecycle state of a book on a user's shelf.
type BookStatus string

const (
	BookStatusWishlist BookStatus = "WISHLIST"
	BookStatusUnread   BookStatus = "UNREAD"
	BookStatusReading  BookStatus = "READING"
	BookStatusFinished BookStatus = "FINISHED"
)

func (s BookStatus) Valid() bool {
	switch s {
	case BookStatusWishlist, BookStatusUnread, BookStatusReading, BookStatusFinished:
		return true
	}
	return false
}

// BookStatuses lists every valid status, in lifecycle order.
func BookStatuses() []BookStatus {
	return []BookStatus{BookStatusWishlist, BookStatusUnread, BookStatusReading, BookStatusFinished}
}

type BookCategory string

const (
	BookCategoryFiction    BookCategory = "FICTION"
	BookCategoryHumanities BookCategory = "HUMANITIES"
	BookCategoryHistory    BookCategory = "HISTORY"
	BookCategoryPolitics   BookCategory = "POLITICS"
	BookCategoryBusiness   BookCategory = "BUSINESS"
	BookCategoryScience    BookCategory = "SCIENCE"
	BookCategoryHobby      BookCategory = "HOBBY"
	BookCategoryManga      BookCategory = "MANGA"
	BookCategoryOther      BookCategory = "OTHER"
)

func (c BookCategory) Valid() bool {
	switch c {
	case BookCategoryFiction, BookCategoryHumanities, BookCategoryHistory,
		BookCategoryPolitics, BookCategoryBusiness, BookCategoryScience,
		BookCategoryHobby, BookCategoryManga, BookCategoryOther:
		return true
	}
	return false
}

// Priority orders wishlist entries. Lower is more urgent.
type Priority int

const (
	PriorityHigh   Priority = 1
	PriorityMedium Priority = 2
	PriorityLow    Priority = 3
)

func (p Priority) Valid() bool {
	return p >= PriorityHigh && p <= PriorityLow
}

type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID                  int           `bun:",pk,nullzero" json:"id"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
	UserID              string        `bun:",nullzero" json:"user_id"`
	Title               string        `bun:",nullzero" json:"title"`
	Author              *string       `json:"author"`
	Publisher           *string       `json:"publisher"`
	ISBN                *string       `bun:"isbn" json:"isbn"`
	Status              BookStatus    `bun:",nullzero" json:"status"`
	Owned               bool          `json:"owned"`
	Category            *BookCategory `json:"category"`
	PurchaseDate        *time.Time    `json:"purchase_date"`
	FinishedDate        *time.Time    `json:"finished_date"`
	PlannedPurchaseDate *time.Time    `json:"planned_purchase_date"`
	Rating              *int          `json:"rating"`
	Memo                *string       `json:"memo"`
	Review              *string       `json:"review"`
	CoverURL            *string       `bun:"cover_url" json:"cover_url"`
	CoverPath           *string       `json:"cover_path"`
	Price               *float64      `json:"price"`
	PurchaseURL         *string       `bun:"purchase_url" json:"purchase_url"`
	Priority            Priority      `bun:",nullzero" json:"priority"`

	Tags []*BookTag `bun:"rel:has-many,join:id=book_id" json:"tags"`
}
