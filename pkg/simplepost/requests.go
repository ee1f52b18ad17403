package simplepost

// CreatePostRequest is the create_post payload.
type CreatePostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	UserID  string `json:"userId,omitempty"`
}

// UpdatePostRequest is the partial update carried by update_post. Nil fields
// are left untouched.
type UpdatePostRequest struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}
