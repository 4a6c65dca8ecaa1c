package apihandlers

// UpdatePriorityRequest is the body of PUT /tasks/:id/priority. Priority is a
// pointer so an explicit 0 survives required-field validation.
type UpdatePriorityRequest struct {
	Priority *int `json:"priority" binding:"required"`
}

// UpdateSubtitleRequest is the body of PUT /subtitles/:id.
type UpdateSubtitleRequest struct {
	Content string `json:"content" binding:"required"`
}
