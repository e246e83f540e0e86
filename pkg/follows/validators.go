package follows

type CreateFollowPayload struct {
	FollowingID string `json:"following_id" mod:"trim" validate:"required"`
}
