package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ayush/nimi-blog/backend/internal/models"
	apierrors "github.com/ayush/nimi-blog/backend/internal/pkg/errors"
)

// likesSize is {$size: {$ifNull: ["$likes", []]}}.
var likesSize = bson.D{{Key: "$size", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$likes", bson.A{}}}}}}

// EngagementTally sums likes on the user's posts and comments, counts the
// comments they wrote and their followers. Everything is grouped server-side.
func (s *MongoStore) EngagementTally(ctx context.Context, user primitive.ObjectID) (*models.EngagementTally, error) {
	var follower struct {
		Count int `bson:"count"`
	}
	found, err := aggregateOne(ctx, s.users, mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "_id", Value: user}}}},
		{{Key: "$project", Value: bson.D{
			{Key: "count", Value: bson.D{{Key: "$size", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$follower", bson.A{}}}}}}},
		}}},
	}, &follower)
	if err != nil {
		return nil, translate("tally followers", "User", err)
	}
	if !found {
		return nil, apierrors.NewNotFoundError("User")
	}

	var postLikes struct {
		Count int `bson:"count"`
	}
	if _, err := aggregateOne(ctx, s.posts, mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "author", Value: user}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: likesSize}}},
		}}},
	}, &postLikes); err != nil {
		return nil, translate("tally post likes", "Post", err)
	}

	var comments struct {
		Likes   int `bson:"likes"`
		Written int `bson:"written"`
	}
	if _, err := aggregateOne(ctx, s.comments, mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "author", Value: user}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "likes", Value: bson.D{{Key: "$sum", Value: likesSize}}},
			{Key: "written", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}, &comments); err != nil {
		return nil, translate("tally comments", "Comment", err)
	}

	return &models.EngagementTally{
		LikesReceived:   postLikes.Count + comments.Likes,
		CommentsWritten: comments.Written,
		FollowerCount:   follower.Count,
	}, nil
}

// aggregateOne decodes the first result of pipeline into out. An empty result
// leaves out untouched and reports found=false.
func aggregateOne(ctx context.Context, col *mongo.Collection, pipeline mongo.Pipeline, out any) (bool, error) {
	cur, err := col.Aggregate(ctx, pipeline)
	if err != nil {
		return false, err
	}
	defer cur.Close(ctx)

	if !cur.Next(ctx) {
		return false, cur.Err()
	}
	if err := cur.Decode(out); err != nil {
		return false, err
	}
	return true, nil
}

type edgeRow struct {
	Owner    primitive.ObjectID `bson:"owner"`
	Ref      primitive.ObjectID `bson:"ref"`
	Self     bool               `bson:"self"`
	Exists   bool               `bson:"exists"`
	Mirrored bool               `bson:"mirrored"`
}

// edgePipeline unwinds field on every user, joins the referenced user and
// keeps rows where the edge is a self edge, dangles, or is not mirrored in
// the referenced user's mirror field.
func edgePipeline(field, mirror string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$project", Value: bson.D{{Key: field, Value: 1}}}},
		{{Key: "$unwind", Value: "$" + field}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: usersCollection},
			{Key: "localField", Value: field},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "peer"},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "owner", Value: "$_id"},
			{Key: "ref", Value: "$" + field},
			{Key: "self", Value: bson.D{{Key: "$eq", Value: bson.A{"$_id", "$" + field}}}},
			{Key: "exists", Value: bson.D{{Key: "$gt", Value: bson.A{bson.D{{Key: "$size", Value: "$peer"}}, 0}}}},
			{Key: "mirrored", Value: bson.D{{Key: "$in", Value: bson.A{
				"$_id",
				bson.D{{Key: "$ifNull", Value: bson.A{
					bson.D{{Key: "$arrayElemAt", Value: bson.A{"$peer." + mirror, 0}}},
					bson.A{},
				}}},
			}}}},
		}}},
		{{Key: "$match", Value: bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "self", Value: true}},
			bson.D{{Key: "exists", Value: false}},
			bson.D{{Key: "mirrored", Value: false}},
		}}}}},
	}
}

// refPipeline finds child documents whose parent exists but does not list
// them in listField.
func refPipeline(parentField, parentCollection, listField string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$project", Value: bson.D{{Key: parentField, Value: 1}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: parentCollection},
			{Key: "localField", Value: parentField},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "parent"},
		}}},
		{{Key: "$unwind", Value: "$parent"}},
		{{Key: "$match", Value: bson.D{{Key: "$expr", Value: bson.D{{Key: "$not", Value: bson.A{
			bson.D{{Key: "$in", Value: bson.A{"$_id", bson.D{{Key: "$ifNull", Value: bson.A{"$parent." + listField, bson.A{}}}}}}},
		}}}}}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "owner", Value: "$" + parentField},
			{Key: "ref", Value: "$_id"},
		}}},
	}
}

// danglingListPipeline finds entries of listField on parent documents that
// name no existing document in childCollection.
func danglingListPipeline(listField, childCollection string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$project", Value: bson.D{{Key: listField, Value: 1}}}},
		{{Key: "$unwind", Value: "$" + listField}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: childCollection},
			{Key: "localField", Value: listField},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "child"},
		}}},
		{{Key: "$match", Value: bson.D{{Key: "child", Value: bson.D{{Key: "$size", Value: 0}}}}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "owner", Value: "$_id"},
			{Key: "ref", Value: "$" + listField},
		}}},
	}
}

// FindRepairs lists every inconsistency left behind by interrupted dual
// writes. Each Repair names the document to fix (Owner) and the id to add to
// or remove from it (Ref).
func (s *MongoStore) FindRepairs(ctx context.Context) ([]models.Repair, error) {
	var repairs []models.Repair

	following, err := collectEdges(ctx, s.users, edgePipeline("following", "follower"))
	if err != nil {
		return nil, translate("scan following", "User", err)
	}
	for _, row := range following {
		switch {
		case row.Self:
			repairs = append(repairs, models.Repair{Kind: models.RepairSelfEdge, Owner: row.Owner, Ref: row.Ref})
		case !row.Exists:
			repairs = append(repairs, models.Repair{Kind: models.RepairDanglingFollow, Owner: row.Owner, Ref: row.Ref})
		case !row.Mirrored:
			// following is authoritative: add the missing follower entry.
			repairs = append(repairs, models.Repair{Kind: models.RepairMissingFollower, Owner: row.Ref, Ref: row.Owner})
		}
	}

	followers, err := collectEdges(ctx, s.users, edgePipeline("follower", "following"))
	if err != nil {
		return nil, translate("scan followers", "User", err)
	}
	for _, row := range followers {
		if row.Self {
			repairs = append(repairs, models.Repair{Kind: models.RepairSelfEdge, Owner: row.Owner, Ref: row.Ref})
			continue
		}
		repairs = append(repairs, models.Repair{Kind: models.RepairOrphanFollower, Owner: row.Owner, Ref: row.Ref})
	}

	postRefs, err := collectRefs(ctx, s.posts, refPipeline("author", usersCollection, "posts"), models.RepairMissingPostRef)
	if err != nil {
		return nil, translate("scan post refs", "Post", err)
	}
	repairs = append(repairs, postRefs...)

	danglingPosts, err := collectRefs(ctx, s.users, danglingListPipeline("posts", postsCollection), models.RepairDanglingPostRef)
	if err != nil {
		return nil, translate("scan user posts", "User", err)
	}
	repairs = append(repairs, danglingPosts...)

	commentRefs, err := collectRefs(ctx, s.comments, refPipeline("post", postsCollection, "comments"), models.RepairMissingCommentID)
	if err != nil {
		return nil, translate("scan comment refs", "Comment", err)
	}
	repairs = append(repairs, commentRefs...)

	return dedupe(repairs), nil
}

func collectEdges(ctx context.Context, col *mongo.Collection, pipeline mongo.Pipeline) ([]edgeRow, error) {
	cur, err := col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []edgeRow
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func collectRefs(ctx context.Context, col *mongo.Collection, pipeline mongo.Pipeline, kind models.RepairKind) ([]models.Repair, error) {
	cur, err := col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Repair
	for cur.Next(ctx) {
		var r models.Repair
		if err := cur.Decode(&r); err != nil {
			return nil, err
		}
		r.Kind = kind
		out = append(out, r)
	}
	return out, cur.Err()
}

func dedupe(in []models.Repair) []models.Repair {
	seen := make(map[models.Repair]struct{}, len(in))
	out := make([]models.Repair, 0, len(in))
	for _, r := range in {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
