package books

import (
	"time"

	"github.com/pkg/errors"
	"github.com/tsundokuapp/tsundoku/pkg/models"
)

const dateFormat = "2006-01-02"

type ListBooksQuery struct {
	Search   *string `query:"search"   json:"search,omitempty"   validate:"omitempty,max=200"`
	Status   string  `query:"status"   json:"status,omitempty"   default:"ALL" validate:"omitempty,oneof=ALL WISHLIST UNREAD READING FINISHED"`
	Category string  `query:"category" json:"category,omitempty" default:"ALL" validate:"omitempty,oneof=ALL FICTION HUMANITIES HISTORY POLITICS BUSINESS SCIENCE HOBBY MANGA OTHER"`
	Owned    string  `query:"owned"    json:"owned,omitempty"    default:"ALL" validate:"omitempty,oneof=ALL true false"`
	Rating   string  `query:"rating"   json:"rating,omitempty"   default:"ALL" validate:"omitempty,oneof=ALL 1 2 3 4 5"`
	TagID    *int    `query:"tag_id"   json:"tag_id,omitempty"   validate:"omitempty,min=1"`
	Sort     string  `query:"sort"     json:"sort,omitempty"`
	Order    string  `query:"order"    json:"order,omitempty"    validate:"omitempty,oneof=asc desc"`
	Page     *int    `query:"page"     json:"page,omitempty"     validate:"omitempty,min=1"`
	Limit    *int    `query:"limit"    json:"limit,omitempty"    validate:"omitempty,min=1,max=1000"`
}

type CreateBookPayload struct {
	Title               string   `json:"title"                           mod:"trim" validate:"required,max=300"`
	Author              *string  `json:"author,omitempty"                mod:"trim" validate:"omitempty,max=300"`
	Publisher           *string  `json:"publisher,omitempty"             mod:"trim" validate:"omitempty,max=300"`
	ISBN                *string  `json:"isbn,omitempty"                  mod:"trim" validate:"omitempty,max=32"`
	Status              string   `json:"status,omitempty"                default:"UNREAD" validate:"omitempty,oneof=WISHLIST UNREAD READING FINISHED"`
	Owned               bool     `json:"owned,omitempty"`
	Category            *string  `json:"category,omitempty"              validate:"omitempty,oneof=FICTION HUMANITIES HISTORY POLITICS BUSINESS SCIENCE HOBBY MANGA OTHER"`
	PurchaseDate        *string  `json:"purchase_date,omitempty"         validate:"omitempty,date"`
	FinishedDate        *string  `json:"finished_date,omitempty"         validate:"omitempty,date"`
	PlannedPurchaseDate *string  `json:"planned_purchase_date,omitempty" validate:"omitempty,date"`
	Rating              *int     `json:"rating,omitempty"                validate:"omitempty,min=1,max=5"`
	Memo                *string  `json:"memo,omitempty"                  mod:"trim" validate:"omitempty,max=5000"`
	Review              *string  `json:"review,omitempty"                mod:"trim" validate:"omitempty,max=5000"`
	CoverURL            *string  `json:"cover_url,omitempty"             mod:"trim" validate:"omitempty,url,max=2000"`
	CoverPath           *string  `json:"cover_path,omitempty"            mod:"trim" validate:"omitempty,max=2000"`
	Price               *float64 `json:"price,omitempty"                 validate:"omitempty,min=0"`
	PurchaseURL         *string  `json:"purchase_url,omitempty"          mod:"trim" validate:"omitempty,url,max=2000"`
	Priority            int      `json:"priority,omitempty"              default:"2" validate:"omitempty,min=1,max=3"`
	TagIDs              []int    `json:"tag_ids,omitempty"               validate:"omitempty,dive,min=1"`
}

// UpdateBookPayload carries a full replacement of the book's state. Status is
// required because omitting it would otherwise silently reset the book.
type UpdateBookPayload struct {
	Title               string   `json:"title"                           mod:"trim" validate:"required,max=300"`
	Author              *string  `json:"author,omitempty"                mod:"trim" validate:"omitempty,max=300"`
	Publisher           *string  `json:"publisher,omitempty"             mod:"trim" validate:"omitempty,max=300"`
	ISBN                *string  `json:"isbn,omitempty"                  mod:"trim" validate:"omitempty,max=32"`
	Status              string   `json:"status"                          validate:"required,oneof=WISHLIST UNREAD READING FINISHED"`
	Owned               bool     `json:"owned,omitempty"`
	Category            *string  `json:"category,omitempty"              validate:"omitempty,oneof=FICTION HUMANITIES HISTORY POLITICS BUSINESS SCIENCE HOBBY MANGA OTHER"`
	PurchaseDate        *string  `json:"purchase_date,omitempty"         validate:"omitempty,date"`
	FinishedDate        *string  `json:"finished_date,omitempty"         validate:"omitempty,date"`
	PlannedPurchaseDate *string  `json:"planned_purchase_date,omitempty" validate:"omitempty,date"`
	Rating              *int     `json:"rating,omitempty"                validate:"omitempty,min=1,max=5"`
	Memo                *string  `json:"memo,omitempty"                  mod:"trim" validate:"omitempty,max=5000"`
	Review              *string  `json:"review,omitempty"                mod:"trim" validate:"omitempty,max=5000"`
	CoverURL            *string  `json:"cover_url,omitempty"             mod:"trim" validate:"omitempty,url,max=2000"`
	CoverPath           *string  `json:"cover_path,omitempty"            mod:"trim" validate:"omitempty,max=2000"`
	Price               *float64 `json:"price,omitempty"                 validate:"omitempty,min=0"`
	PurchaseURL         *string  `json:"purchase_url,omitempty"          mod:"trim" validate:"omitempty,url,max=2000"`
	Priority            int      `json:"priority,omitempty"              default:"2" validate:"omitempty,min=1,max=3"`
	TagIDs              *[]int   `json:"tag_ids,omitempty"               validate:"omitempty,dive,min=1"`
}

// parseDate converts a YYYY-MM-DD payload string into a time. An empty string
// is an explicit clear.
func parseDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateFormat, *s)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &t, nil
}

// ToListOptions converts the bound query params into service-level criteria
// scoped to the given user.
func (p *ListBooksQuery) ToListOptions(userID string) ListBooksOptions {
	opts := ListBooksOptions{
		UserID: userID,
		Search: p.Search,
		TagID:  p.TagID,
		Sort:   p.Sort,
		Order:  p.Order,
		Page:   p.Page,
		Limit:  p.Limit,
	}
	if p.Status != "" && p.Status != "ALL" {
		status := models.BookStatus(p.Status)
		opts.Status = &status
	}
	if p.Category != "" && p.Category != "ALL" {
		category := models.BookCategory(p.Category)
		opts.Category = &category
	}
	if p.Owned != "" && p.Owned != "ALL" {
		owned := p.Owned == "true"
		opts.Owned = &owned
	}
	if p.Rating != "" && p.Rating != "ALL" {
		rating := int(p.Rating[0] - '0')
		opts.Rating = &rating
	}
	return opts
}

func (p *CreateBookPayload) toCommand(userID string) (CreateBookCommand, error) {
	purchaseDate, err := parseDate(p.PurchaseDate)
	if err != nil {
		return CreateBookCommand{}, err
	}
	finishedDate, err := parseDate(p.FinishedDate)
	if err != nil {
		return CreateBookCommand{}, err
	}
	plannedPurchaseDate, err := parseDate(p.PlannedPurchaseDate)
	if err != nil {
		return CreateBookCommand{}, err
	}

	return CreateBookCommand{
		UserID:              userID,
		Title:               p.Title,
		Author:              p.Author,
		Publisher:           p.Publisher,
		ISBN:                p.ISBN,
		Status:              models.BookStatus(p.Status),
		Owned:               p.Owned,
		Category:            toCategory(p.Category),
		PurchaseDate:        purchaseDate,
		FinishedDate:        finishedDate,
		PlannedPurchaseDate: plannedPurchaseDate,
		Rating:              p.Rating,
		Memo:                p.Memo,
		Review:              p.Review,
		CoverURL:            p.CoverURL,
		CoverPath:           p.CoverPath,
		Price:               p.Price,
		PurchaseURL:         p.PurchaseURL,
		Priority:            models.Priority(p.Priority),
		TagIDs:              p.TagIDs,
	}, nil
}

func (p *UpdateBookPayload) toCommand() (UpdateBookCommand, error) {
	purchaseDate, err := parseDate(p.PurchaseDate)
	if err != nil {
		return UpdateBookCommand{}, err
	}
	finishedDate, err := parseDate(p.FinishedDate)
	if err != nil {
		return UpdateBookCommand{}, err
	}
	plannedPurchaseDate, err := parseDate(p.PlannedPurchaseDate)
	if err != nil {
		return UpdateBookCommand{}, err
	}

	return UpdateBookCommand{
		Title:               p.Title,
		Author:              p.Author,
		Publisher:           p.Publisher,
		ISBN:                p.ISBN,
		Status:              models.BookStatus(p.Status),
		Owned:               p.Owned,
		Category:            toCategory(p.Category),
		PurchaseDate:        purchaseDate,
		FinishedDate:        finishedDate,
		PlannedPurchaseDate: plannedPurchaseDate,
		Rating:              p.Rating,
		Memo:                p.Memo,
		Review:              p.Review,
		CoverURL:            p.CoverURL,
		CoverPath:           p.CoverPath,
		Price:               p.Price,
		PurchaseURL:         p.PurchaseURL,
		Priority:            models.Priority(p.Priority),
		TagIDs:              p.TagIDs,
	}, nil
}

func toCategory(s *string) *models.BookCategory {
	if s == nil || *s == "" {
		return nil
	}
	category := models.BookCategory(*s)
	return &category
}
