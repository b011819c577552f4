package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultProfileImage is shown for users who never uploaded an avatar.
const DefaultProfileImage = "https://img.freepik.com/premium-vector/user-profile-icon-flat-style-member-avatar-vector-illustration-isolated-background-human-permission-sign-business-concept_157943-15752.jpg?semt=ais_hybrid&w=740&q=80"

// User is a document in the users collection.
type User struct {
	ID           primitive.ObjectID   `json:"id"           bson:"_id,omitempty"`
	UserName     string               `json:"userName"     bson:"userName"`
	Name         string               `json:"name"         bson:"name"`
	Email        string               `json:"email"        bson:"email"`
	Password     string               `json:"-"            bson:"password"` // bcrypt digest, never serialize
	Bio          string               `json:"bio"          bson:"bio,omitempty"`
	JobTitle     string               `json:"jobTitle"     bson:"jobTitle,omitempty"`
	Location     string               `json:"location"     bson:"location,omitempty"`
	ProfileImage string               `json:"profileImage" bson:"profileImage"`
	Age          int                  `json:"age"          bson:"age"`
	Follower     []primitive.ObjectID `json:"follower"     bson:"follower"`
	Following    []primitive.ObjectID `json:"following"    bson:"following"`
	Posts        []primitive.ObjectID `json:"posts"        bson:"posts"`
	CreatedAt    time.Time            `json:"createdAt"    bson:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"    bson:"updatedAt"`
}

// Summary returns the listing projection of u.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:           u.ID,
		UserName:     u.UserName,
		Name:         u.Name,
		ProfileImage: u.ProfileImage,
	}
}

// UserSummary is the minimal projection used by listing views. Search results
// also fill the optional profile fields.
type UserSummary struct {
	ID           primitive.ObjectID `json:"id"                 bson:"_id"`
	UserName     string             `json:"userName"           bson:"userName"`
	Name         string             `json:"name"               bson:"name"`
	ProfileImage string             `json:"profileImage"       bson:"profileImage"`
	JobTitle     string             `json:"jobTitle,omitempty" bson:"jobTitle,omitempty"`
	Location     string             `json:"location,omitempty" bson:"location,omitempty"`
	Bio          string             `json:"bio,omitempty"      bson:"bio,omitempty"`
}

// ProfileUpdate carries the editable profile fields. Nil fields are left
// unchanged.
type ProfileUpdate struct {
	Name         *string `json:"name"     validate:"omitnil,min=1,max=100"`
	Bio          *string `json:"bio"      validate:"omitnil,max=350"`
	JobTitle     *string `json:"jobTitle" validate:"omitnil,max=100"`
	Location     *string `json:"location" validate:"omitnil,max=100"`
	ProfileImage *string `json:"-"`
}

// Empty reports whether the update changes nothing.
func (p ProfileUpdate) Empty() bool {
	return p.Name == nil && p.Bio == nil && p.JobTitle == nil && p.Location == nil && p.ProfileImage == nil
}

// RegisterRequest is the JSON body for POST /api/auth/register.
type RegisterRequest struct {
	UserName string `json:"userName" validate:"required,min=3,max=100"`
	Name     string `json:"name"     validate:"required,max=100"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1,max=72"`
	Age      int    `json:"age"      validate:"gte=1,lte=150"`
}

// LoginRequest is the JSON body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}
