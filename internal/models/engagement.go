package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// EngagementTally aggregates what a user's content has received.
type EngagementTally struct {
	LikesReceived   int `json:"likesReceived"`
	CommentsWritten int `json:"commentsWritten"`
	FollowerCount   int `json:"followerCount"`
}

// LikeState is returned after a like or dislike.
type LikeState struct {
	Liked bool `json:"liked"`
	Likes int  `json:"likes"`
}

// FollowState is returned after a follow or unfollow.
type FollowState struct {
	Following bool   `json:"following"`
	Message   string `json:"message"`
}

// Connections lists the users on both sides of a user's edges.
type Connections struct {
	Followers []UserSummary `json:"followers"`
	Following []UserSummary `json:"following"`
}

// FullConnections is Connections with complete user records, used for the
// owner's own views.
type FullConnections struct {
	Followers []User `json:"followers"`
	Following []User `json:"following"`
}

// RepairKind names one class of inconsistency the reconciler fixes.
type RepairKind string

const (
	RepairSelfEdge         RepairKind = "self_edge"
	RepairDanglingFollow   RepairKind = "dangling_following"
	RepairMissingFollower  RepairKind = "missing_follower"
	RepairOrphanFollower   RepairKind = "orphan_follower"
	RepairMissingPostRef   RepairKind = "missing_post_ref"
	RepairDanglingPostRef  RepairKind = "dangling_post_ref"
	RepairMissingCommentID RepairKind = "missing_comment_ref"
)

// Repair is a single inconsistency found by a sweep. Owner is the document to
// fix and Ref is the id to add or remove from it.
type Repair struct {
	Kind  RepairKind         `bson:"kind"`
	Owner primitive.ObjectID `bson:"owner"`
	Ref   primitive.ObjectID `bson:"ref"`
}
