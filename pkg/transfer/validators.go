package transfer

type ImportPayload struct {
	Version string       `json:"version,omitempty"`
	Books   []BookRecord `json:"books" validate:"required"`
	Tags    []string     `json:"tags,omitempty"`
}
