package profiles

type UpdateProfilePayload struct {
	Name      *string `json:"name,omitempty"       mod:"trim" validate:"omitempty,min=2,max=30"`
	AvatarURL *string `json:"avatar_url,omitempty" mod:"trim" validate:"omitempty,url,max=2000"`
}

// SearchProfilesQuery deliberately allows empty and one-character queries;
// those answer with an empty result set rather than an error.
type SearchProfilesQuery struct {
	Query string `query:"q" json:"q" validate:"omitempty,max=100"`
}
