package dto

// RealtimeQuery selects the history window of a realtime quote
type RealtimeQuery struct {
	ID     string `param:"id" validate:"required"`
	Period string `query:"period" default:"24h"`
}
