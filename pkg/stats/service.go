package stats

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/tsundokuapp/tsundoku/pkg/models"
	"github.com/uptrace/bun"
)

// Summary is a point-in-time aggregation of a user's shelf. All counters come
// from a single scan so they are mutually consistent.
type Summary struct {
	Total                int      `json:"total"`
	Wishlist             int      `json:"wishlist"`
	Unread               int      `json:"unread"`
	Reading              int      `json:"reading"`
	Finished             int      `json:"finished"`
	HighPriorityWishlist int      `json:"high_priority_wishlist"`
	ThisMonthFinished    int      `json:"this_month_finished"`
	AverageRating        *float64 `json:"average_rating"`
}

type Service struct {
	db  *bun.DB
	now func() time.Time
}

func NewService(db *bun.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// Summarize computes the user's shelf statistics. "This month" starts at the
// first of the current calendar month in the server's local time.
func (svc *Service) Summarize(ctx context.Context, userID string) (*Summary, error) {
	rows := []struct {
		Status       models.BookStatus `bun:"status"`
		Priority     models.Priority   `bun:"priority"`
		FinishedDate *time.Time        `bun:"finished_date"`
		Rating       *int              `bun:"rating"`
	}{}

	err := svc.db.
		NewSelect().
		Model((*models.Book)(nil)).
		Column("status", "priority", "finished_date", "rating").
		Where("b.user_id = ?", userID).
		Scan(ctx, &rows)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	now := svc.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	summary := &Summary{}
	ratingSum := 0
	ratingCount := 0

	for _, row := range rows {
		summary.Total++
		switch row.Status {
		case models.BookStatusWishlist:
			summary.Wishlist++
			if row.Priority == models.PriorityHigh {
				summary.HighPriorityWishlist++
			}
		case models.BookStatusUnread:
			summary.Unread++
		case models.BookStatusReading:
			summary.Reading++
		case models.BookStatusFinished:
			summary.Finished++
			if row.FinishedDate != nil && !row.FinishedDate.Before(monthStart) {
				summary.ThisMonthFinished++
			}
		}
		if row.Rating != nil {
			ratingSum += *row.Rating
			ratingCount++
		}
	}

	if ratingCount > 0 {
		avg := math.Round(float64(ratingSum)/float64(ratingCount)*10) / 10
		summary.AverageRating = &avg
	}

	return summary, nil
}
