package tags

type CreateTagPayload struct {
	Name string `json:"name" mod:"trim" validate:"required,max=50"`
}
