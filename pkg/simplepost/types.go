package simplepost

import (
	"time"
)

// Event names published after successful mutations and consumed by
// downstream services.
const (
	EventPostCreated = "post_created"
	EventPostUpdated = "post_updated"
	EventPostDeleted = "post_deleted"
)

// TitleMinLength is the minimum number of characters in a post title.
const TitleMinLength = 6

// Post is the persisted entity. The id is assigned exactly once by the
// store; the owner never changes after creation; timestamps are maintained
// by the store on write.
type Post struct {
	ID        string    `json:"id" bson:"_id"`
	Title     string    `json:"title" bson:"title"`
	Content   string    `json:"content" bson:"content"`
	OwnerID   string    `json:"ownerId" bson:"owner_id"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}

func (p *Post) DocumentID() string         { return p.ID }
func (p *Post) SetDocumentID(id string)    { p.ID = id }
func (p *Post) StampCreated(now time.Time) { p.CreatedAt = now }
func (p *Post) StampUpdated(now time.Time) { p.UpdatedAt = now }

// Clone returns a detached copy.
func (p *Post) Clone() *Post {
	cp := *p
	return &cp
}

// PostDeletedEvent is the payload of post_deleted. Deletion is physical, so
// only the id travels.
type PostDeletedEvent struct {
	ID string `json:"id"`
}
