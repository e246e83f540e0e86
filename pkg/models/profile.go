package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Profile is the local projection of an identity-provider user. The ID is the
// opaque subject issued by the provider; rows are created lazily on a user's
// first authenticated request.
type Profile struct {
	bun.BaseModel `bun:"table:profiles,alias:p"`

	ID        string    `bun:",pk" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Email     string    `bun:",nullzero" json:"email"`
	Name      *string   `json:"name"`
	AvatarURL *string   `bun:"avatar_url" json:"avatar_url"`

	BookCount      int `bun:",scanonly" json:"book_count,omitempty"`
	FollowerCount  int `bun:",scanonly" json:"follower_count,omitempty"`
	FollowingCount int `bun:",scanonly" json:"following_count,omitempty"`
}
