package catalog

type SearchQuery struct {
	Query string `query:"q" json:"q" validate:"required,min=2,max=200"`
}

type CoverQuery struct {
	ISBN string `query:"isbn" json:"isbn" validate:"required,max=32"`
}
