package store

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/nimi-blog/backend/internal/models"
	apierrors "github.com/ayush/nimi-blog/backend/internal/pkg/errors"
)

const (
	usersCollection    = "users"
	postsCollection    = "posts"
	commentsCollection = "comments"
)

var (
	summaryProjection = bson.M{"_id": 1, "userName": 1, "name": 1, "profileImage": 1}
	searchProjection  = bson.M{"_id": 1, "userName": 1, "name": 1, "profileImage": 1, "jobTitle": 1, "location": 1, "bio": 1}
)

// MongoStore holds users, posts and comments in MongoDB. MongoDB has no
// cross-document transaction here, so every array mutation is written with
// $addToSet or $pull and can be repeated safely.
type MongoStore struct {
	users    *mongo.Collection
	posts    *mongo.Collection
	comments *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		users:    db.Collection(usersCollection),
		posts:    db.Collection(postsCollection),
		comments: db.Collection(commentsCollection),
	}
}

// EnsureIndexes creates the unique and lookup indexes the store relies on.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	if _, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "userName", Value: 1}}, Options: options.Index().SetUnique(true)},
	}); err != nil {
		return apierrors.StoreUnavailable("users indexes", err)
	}
	if _, err := s.posts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "author", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}); err != nil {
		return apierrors.StoreUnavailable("posts indexes", err)
	}
	if _, err := s.comments.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "post", Value: 1}}},
		{Keys: bson.D{{Key: "author", Value: 1}}},
	}); err != nil {
		return apierrors.StoreUnavailable("comments indexes", err)
	}
	return nil
}

// translate maps driver errors onto the error kinds callers handle.
func translate(op, resource string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return apierrors.NewNotFoundError(resource)
	case mongo.IsDuplicateKeyError(err):
		return apierrors.ErrConflict.WithMessage("User already exists").WithCause(err)
	default:
		return apierrors.StoreUnavailable(op, err)
	}
}

// ── Users ────────────────────────────────────────────────

func (s *MongoStore) CreateUser(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	// nil slices encode as BSON null, which $addToSet refuses.
	if u.Follower == nil {
		u.Follower = []primitive.ObjectID{}
	}
	if u.Following == nil {
		u.Following = []primitive.ObjectID{}
	}
	if u.Posts == nil {
		u.Posts = []primitive.ObjectID{}
	}
	res, err := s.users.InsertOne(ctx, u)
	if err != nil {
		return translate("create user", "User", err)
	}
	u.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *MongoStore) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, translate("get user", "User", err)
	}
	return &u, nil
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		return nil, translate("get user by email", "User", err)
	}
	return &u, nil
}

// UserTaken reports whether email or userName is already registered.
func (s *MongoStore) UserTaken(ctx context.Context, email, userName string) (bool, error) {
	n, err := s.users.CountDocuments(ctx, bson.M{"$or": bson.A{
		bson.M{"email": email},
		bson.M{"userName": userName},
	}}, options.Count().SetLimit(1))
	if err != nil {
		return false, translate("check user", "User", err)
	}
	return n > 0, nil
}

func (s *MongoStore) UpdateProfile(ctx context.Context, id primitive.ObjectID, p models.ProfileUpdate) error {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Bio != nil {
		set["bio"] = *p.Bio
	}
	if p.JobTitle != nil {
		set["jobTitle"] = *p.JobTitle
	}
	if p.Location != nil {
		set["location"] = *p.Location
	}
	if p.ProfileImage != nil {
		set["profileImage"] = *p.ProfileImage
	}
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return translate("update profile", "User", err)
	}
	if res.MatchedCount == 0 {
		return apierrors.NewNotFoundError("User")
	}
	return nil
}

func (s *MongoStore) AddFollowing(ctx context.Context, actor, target primitive.ObjectID) error {
	return s.setOp(ctx, s.users, "User", actor, "$addToSet", "following", target)
}

func (s *MongoStore) AddFollower(ctx context.Context, user, follower primitive.ObjectID) error {
	return s.setOp(ctx, s.users, "User", user, "$addToSet", "follower", follower)
}

func (s *MongoStore) RemoveFollowing(ctx context.Context, actor, target primitive.ObjectID) error {
	return s.setOp(ctx, s.users, "User", actor, "$pull", "following", target)
}

func (s *MongoStore) RemoveFollower(ctx context.Context, user, follower primitive.ObjectID) error {
	return s.setOp(ctx, s.users, "User", user, "$pull", "follower", follower)
}

func (s *MongoStore) AppendUserPost(ctx context.Context, user, post primitive.ObjectID) error {
	return s.setOp(ctx, s.users, "User", user, "$addToSet", "posts", post)
}

func (s *MongoStore) RemoveUserPost(ctx context.Context, user, post primitive.ObjectID) error {
	return s.setOp(ctx, s.users, "User", user, "$pull", "posts", post)
}

// setOp applies a single-element array operator to one document and reports
// a missing document as not found.
func (s *MongoStore) setOp(ctx context.Context, col *mongo.Collection, resource string, id primitive.ObjectID, op, field string, value primitive.ObjectID) error {
	res, err := col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{op: bson.M{field: value}},
	)
	if err != nil {
		return translate(op+" "+field, resource, err)
	}
	if res.MatchedCount == 0 {
		return apierrors.NewNotFoundError(resource)
	}
	return nil
}

// ListUserSummaries returns the listing projection of ids in the order given.
// Ids without a user are skipped.
func (s *MongoStore) ListUserSummaries(ctx context.Context, ids []primitive.ObjectID) ([]models.UserSummary, error) {
	if len(ids) == 0 {
		return []models.UserSummary{}, nil
	}
	cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetProjection(summaryProjection))
	if err != nil {
		return nil, translate("list users", "User", err)
	}
	defer cur.Close(ctx)

	var found []models.UserSummary
	if err := cur.All(ctx, &found); err != nil {
		return nil, translate("list users", "User", err)
	}
	byID := make(map[primitive.ObjectID]models.UserSummary, len(found))
	for _, u := range found {
		byID[u.ID] = u
	}
	out := make([]models.UserSummary, 0, len(found))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// ListUsers returns the full records of ids in the order given, without
// password digests.
func (s *MongoStore) ListUsers(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetProjection(bson.M{"password": 0}))
	if err != nil {
		return nil, translate("list users", "User", err)
	}
	defer cur.Close(ctx)

	var found []models.User
	if err := cur.All(ctx, &found); err != nil {
		return nil, translate("list users", "User", err)
	}
	byID := make(map[primitive.ObjectID]models.User, len(found))
	for _, u := range found {
		byID[u.ID] = u
	}
	out := make([]models.User, 0, len(found))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// SearchUsers matches q case-insensitively against userName, name, location
// and jobTitle. q is matched literally.
func (s *MongoStore) SearchUsers(ctx context.Context, q string, limit int64) ([]models.UserSummary, error) {
	re := primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
	filter := bson.M{"$or": bson.A{
		bson.M{"userName": re},
		bson.M{"name": re},
		bson.M{"location": re},
		bson.M{"jobTitle": re},
	}}
	opts := options.Find().
		SetProjection(searchProjection).
		SetSort(bson.D{{Key: "userName", Value: 1}}).
		SetLimit(limit)
	cur, err := s.users.Find(ctx, filter, opts)
	if err != nil {
		return nil, translate("search users", "User", err)
	}
	defer cur.Close(ctx)

	out := []models.UserSummary{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, translate("search users", "User", err)
	}
	return out, nil
}

// ── Posts ────────────────────────────────────────────────

func (s *MongoStore) InsertPost(ctx context.Context, p *models.Post) error {
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	if p.Comments == nil {
		p.Comments = []primitive.ObjectID{}
	}
	if p.Likes == nil {
		p.Likes = []primitive.ObjectID{}
	}
	res, err := s.posts.InsertOne(ctx, p)
	if err != nil {
		return translate("insert post", "Post", err)
	}
	p.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *MongoStore) GetPost(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var p models.Post
	if err := s.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, translate("get post", "Post", err)
	}
	return &p, nil
}

func (s *MongoStore) UpdatePost(ctx context.Context, id primitive.ObjectID, title, content string) error {
	res, err := s.posts.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"title":     title,
		"content":   content,
		"updatedAt": time.Now().UTC(),
	}})
	if err != nil {
		return translate("update post", "Post", err)
	}
	if res.MatchedCount == 0 {
		return apierrors.NewNotFoundError("Post")
	}
	return nil
}

func (s *MongoStore) DeletePost(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.posts.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate("delete post", "Post", err)
	}
	if res.DeletedCount == 0 {
		return apierrors.NewNotFoundError("Post")
	}
	return nil
}

func (s *MongoStore) ListPostsByAuthor(ctx context.Context, author primitive.ObjectID) ([]models.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return s.findPosts(ctx, bson.M{"author": author}, opts)
}

func (s *MongoStore) ListRecentPosts(ctx context.Context, limit int64) ([]models.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(limit)
	return s.findPosts(ctx, bson.M{}, opts)
}

func (s *MongoStore) findPosts(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Post, error) {
	cur, err := s.posts.Find(ctx, filter, opts)
	if err != nil {
		return nil, translate("list posts", "Post", err)
	}
	defer cur.Close(ctx)

	out := []models.Post{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, translate("list posts", "Post", err)
	}
	return out, nil
}

func (s *MongoStore) AddPostLike(ctx context.Context, post, user primitive.ObjectID) (int, error) {
	return s.likeOp(ctx, s.posts, "Post", post, "$addToSet", user)
}

func (s *MongoStore) RemovePostLike(ctx context.Context, post, user primitive.ObjectID) (int, error) {
	return s.likeOp(ctx, s.posts, "Post", post, "$pull", user)
}

func (s *MongoStore) AppendPostComment(ctx context.Context, post, comment primitive.ObjectID) error {
	return s.setOp(ctx, s.posts, "Post", post, "$addToSet", "comments", comment)
}

// likeOp updates a likes set and returns its size afterwards.
func (s *MongoStore) likeOp(ctx context.Context, col *mongo.Collection, resource string, id primitive.ObjectID, op string, user primitive.ObjectID) (int, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"likes": 1})
	var doc struct {
		Likes []primitive.ObjectID `bson:"likes"`
	}
	err := col.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{op: bson.M{"likes": user}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, translate(op+" like", resource, err)
	}
	return len(doc.Likes), nil
}

// ── Comments ─────────────────────────────────────────────

func (s *MongoStore) InsertComment(ctx context.Context, c *models.Comment) error {
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	if c.Likes == nil {
		c.Likes = []primitive.ObjectID{}
	}
	res, err := s.comments.InsertOne(ctx, c)
	if err != nil {
		return translate("insert comment", "Comment", err)
	}
	c.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *MongoStore) GetComment(ctx context.Context, id primitive.ObjectID) (*models.Comment, error) {
	var c models.Comment
	if err := s.comments.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, translate("get comment", "Comment", err)
	}
	return &c, nil
}

// ListComments returns the comments with the given ids in that order.
func (s *MongoStore) ListComments(ctx context.Context, ids []primitive.ObjectID) ([]models.Comment, error) {
	if len(ids) == 0 {
		return []models.Comment{}, nil
	}
	cur, err := s.comments.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, translate("list comments", "Comment", err)
	}
	defer cur.Close(ctx)

	var found []models.Comment
	if err := cur.All(ctx, &found); err != nil {
		return nil, translate("list comments", "Comment", err)
	}
	byID := make(map[primitive.ObjectID]models.Comment, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}
	out := make([]models.Comment, 0, len(found))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *MongoStore) AddCommentLike(ctx context.Context, comment, user primitive.ObjectID) (int, error) {
	return s.likeOp(ctx, s.comments, "Comment", comment, "$addToSet", user)
}

func (s *MongoStore) RemoveCommentLike(ctx context.Context, comment, user primitive.ObjectID) (int, error) {
	return s.likeOp(ctx, s.comments, "Comment", comment, "$pull", user)
}
