package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post is a document in the posts collection.
type Post struct {
	ID        primitive.ObjectID   `json:"id"        bson:"_id,omitempty"`
	Author    primitive.ObjectID   `json:"author"    bson:"author"`
	Title     string               `json:"title"     bson:"title"`
	Content   string               `json:"content"   bson:"content"`
	Comments  []primitive.ObjectID `json:"comments"  bson:"comments"`
	Likes     []primitive.ObjectID `json:"likes"     bson:"likes"`
	CreatedAt time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// Comment is a document in the comments collection.
type Comment struct {
	ID        primitive.ObjectID   `json:"id"        bson:"_id,omitempty"`
	Post      primitive.ObjectID   `json:"post"      bson:"post"`
	Author    primitive.ObjectID   `json:"author"    bson:"author"`
	Content   string               `json:"content"   bson:"content"`
	Likes     []primitive.ObjectID `json:"likes"     bson:"likes"`
	CreatedAt time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// PostInput is the JSON body for creating or editing a post.
type PostInput struct {
	Title   string `json:"title"   validate:"required,min=1,max=256"`
	Content string `json:"content" validate:"required,min=1,max=40960"`
}

// CommentInput is the JSON body for POST /api/posts/{id}/comments.
type CommentInput struct {
	Content string `json:"content" validate:"required,min=1,max=1024"`
}

// PostWithAuthor is a post joined with its author's summary.
type PostWithAuthor struct {
	Post
	AuthorInfo UserSummary `json:"authorInfo"`
}

// CommentWithAuthor is a comment joined with its author's summary.
type CommentWithAuthor struct {
	Comment
	AuthorInfo UserSummary `json:"authorInfo"`
}

// PostDetail is the single-post view: the post, its author, comments with
// their authors, and the users who liked it.
type PostDetail struct {
	Post       Post                `json:"post"`
	AuthorInfo UserSummary         `json:"authorInfo"`
	Comments   []CommentWithAuthor `json:"comments"`
	Likers     []UserSummary       `json:"likers"`
}
