package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Follow is a directed edge granting the follower read access to the followed
// user's shelf. Unique per ordered (follower, following) pair.
type Follow struct {
	bun.BaseModel `bun:"table:follows,alias:f"`

	ID          int       `bun:",pk,nullzero" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	FollowerID  string    `bun:",nullzero" json:"follower_id"`
	FollowingID string    `bun:",nullzero" json:"following_id"`

	Following *Profile `bun:"rel:belongs-to,join:following_id=id" json:"following,omitempty"`
}
