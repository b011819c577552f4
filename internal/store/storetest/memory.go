// Package storetest provides an in-memory store with the same contracts as
// store.MongoStore, for service and handler tests.
package storetest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/nimi-blog/backend/internal/models"
	apierrors "github.com/ayush/nimi-blog/backend/internal/pkg/errors"
)

// Memory is a goroutine-safe in-memory store. Returned documents are copies.
//
// FailOn makes the named method return ErrInjected, which lets tests exercise
// half-applied dual writes.
type Memory struct {
	mu       sync.Mutex
	users    map[primitive.ObjectID]*models.User
	posts    map[primitive.ObjectID]*models.Post
	comments map[primitive.ObjectID]*models.Comment
	failOn   map[string]bool
	clock    time.Time
}

// ErrInjected is returned by methods named in FailOn.
var ErrInjected = apierrors.StoreUnavailable("injected", errors.New("injected failure"))

func NewMemory() *Memory {
	return &Memory{
		users:    make(map[primitive.ObjectID]*models.User),
		posts:    make(map[primitive.ObjectID]*models.Post),
		comments: make(map[primitive.ObjectID]*models.Comment),
		failOn:   make(map[string]bool),
		clock:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// FailOn makes method fail until cleared with FailOn(method, false).
func (m *Memory) FailOn(method string, fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn[method] = fail
}

func (m *Memory) fail(method string) error {
	if m.failOn[method] {
		return ErrInjected
	}
	return nil
}

// now returns a strictly increasing timestamp so ordering by createdAt is
// deterministic.
func (m *Memory) now() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func copyIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	return append([]primitive.ObjectID{}, ids...)
}

func copyUser(u *models.User) *models.User {
	c := *u
	c.Follower = copyIDs(u.Follower)
	c.Following = copyIDs(u.Following)
	c.Posts = copyIDs(u.Posts)
	return &c
}

func copyPost(p *models.Post) *models.Post {
	c := *p
	c.Comments = copyIDs(p.Comments)
	c.Likes = copyIDs(p.Likes)
	return &c
}

func copyComment(cm *models.Comment) *models.Comment {
	c := *cm
	c.Likes = copyIDs(cm.Likes)
	return &c
}

func addToSet(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	if models.ContainsID(ids, id) {
		return ids
	}
	return append(ids, id)
}

func pull(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// ── Users ────────────────────────────────────────────────

func (m *Memory) CreateUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateUser"); err != nil {
		return err
	}
	for _, existing := range m.users {
		if existing.Email == u.Email || existing.UserName == u.UserName {
			return apierrors.ErrConflict.WithMessage("User already exists")
		}
	}
	now := m.now()
	u.ID = primitive.NewObjectID()
	u.CreatedAt, u.UpdatedAt = now, now
	if u.Follower == nil {
		u.Follower = []primitive.ObjectID{}
	}
	if u.Following == nil {
		u.Following = []primitive.ObjectID{}
	}
	if u.Posts == nil {
		u.Posts = []primitive.ObjectID{}
	}
	m.users[u.ID] = copyUser(u)
	return nil
}

// PutUser stores u as-is, for seeding inconsistent states in tests.
func (m *Memory) PutUser(u *models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	m.users[u.ID] = copyUser(u)
}

// MustUser creates a consistent user named userName with email
// userName@example.com and returns the stored record.
func (m *Memory) MustUser(userName string) *models.User {
	u := &models.User{
		UserName:     userName,
		Name:         userName,
		Email:        userName + "@example.com",
		Age:          30,
		ProfileImage: models.DefaultProfileImage,
	}
	if err := m.CreateUser(context.Background(), u); err != nil {
		panic(err)
	}
	return u
}

func (m *Memory) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetUserByID"); err != nil {
		return nil, err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, apierrors.NewNotFoundError("User")
	}
	return copyUser(u), nil
}

func (m *Memory) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, apierrors.NewNotFoundError("User")
}

func (m *Memory) UserTaken(ctx context.Context, email, userName string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email || u.UserName == userName {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) UpdateProfile(ctx context.Context, id primitive.ObjectID, p models.ProfileUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateProfile"); err != nil {
		return err
	}
	u, ok := m.users[id]
	if !ok {
		return apierrors.NewNotFoundError("User")
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.JobTitle != nil {
		u.JobTitle = *p.JobTitle
	}
	if p.Location != nil {
		u.Location = *p.Location
	}
	if p.ProfileImage != nil {
		u.ProfileImage = *p.ProfileImage
	}
	u.UpdatedAt = m.now()
	return nil
}

func (m *Memory) userSet(method string, id primitive.ObjectID, apply func(u *models.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(method); err != nil {
		return err
	}
	u, ok := m.users[id]
	if !ok {
		return apierrors.NewNotFoundError("User")
	}
	apply(u)
	return nil
}

func (m *Memory) AddFollowing(ctx context.Context, actor, target primitive.ObjectID) error {
	return m.userSet("AddFollowing", actor, func(u *models.User) { u.Following = addToSet(u.Following, target) })
}

func (m *Memory) AddFollower(ctx context.Context, user, follower primitive.ObjectID) error {
	return m.userSet("AddFollower", user, func(u *models.User) { u.Follower = addToSet(u.Follower, follower) })
}

func (m *Memory) RemoveFollowing(ctx context.Context, actor, target primitive.ObjectID) error {
	return m.userSet("RemoveFollowing", actor, func(u *models.User) { u.Following = pull(u.Following, target) })
}

func (m *Memory) RemoveFollower(ctx context.Context, user, follower primitive.ObjectID) error {
	return m.userSet("RemoveFollower", user, func(u *models.User) { u.Follower = pull(u.Follower, follower) })
}

func (m *Memory) AppendUserPost(ctx context.Context, user, post primitive.ObjectID) error {
	return m.userSet("AppendUserPost", user, func(u *models.User) { u.Posts = addToSet(u.Posts, post) })
}

func (m *Memory) RemoveUserPost(ctx context.Context, user, post primitive.ObjectID) error {
	return m.userSet("RemoveUserPost", user, func(u *models.User) { u.Posts = pull(u.Posts, post) })
}

func (m *Memory) ListUserSummaries(ctx context.Context, ids []primitive.ObjectID) ([]models.UserSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.UserSummary{}
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, u.Summary())
		}
	}
	return out, nil
}

func (m *Memory) ListUsers(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.User{}
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			c := copyUser(u)
			c.Password = ""
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *Memory) SearchUsers(ctx context.Context, q string, limit int64) ([]models.UserSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q = strings.ToLower(q)
	out := []models.UserSummary{}
	for _, u := range m.users {
		for _, field := range []string{u.UserName, u.Name, u.Location, u.JobTitle} {
			if strings.Contains(strings.ToLower(field), q) {
				s := u.Summary()
				s.JobTitle, s.Location, s.Bio = u.JobTitle, u.Location, u.Bio
				out = append(out, s)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserName < out[j].UserName })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ── Posts ────────────────────────────────────────────────

func (m *Memory) InsertPost(ctx context.Context, p *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("InsertPost"); err != nil {
		return err
	}
	now := m.now()
	p.ID = primitive.NewObjectID()
	p.CreatedAt, p.UpdatedAt = now, now
	if p.Comments == nil {
		p.Comments = []primitive.ObjectID{}
	}
	if p.Likes == nil {
		p.Likes = []primitive.ObjectID{}
	}
	m.posts[p.ID] = copyPost(p)
	return nil
}

func (m *Memory) GetPost(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, apierrors.NewNotFoundError("Post")
	}
	return copyPost(p), nil
}

func (m *Memory) UpdatePost(ctx context.Context, id primitive.ObjectID, title, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return apierrors.NewNotFoundError("Post")
	}
	p.Title, p.Content = title, content
	p.UpdatedAt = m.now()
	return nil
}

func (m *Memory) DeletePost(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return apierrors.NewNotFoundError("Post")
	}
	delete(m.posts, id)
	return nil
}

func (m *Memory) ListPostsByAuthor(ctx context.Context, author primitive.ObjectID) ([]models.Post, error) {
	return m.listPosts(func(p *models.Post) bool { return p.Author == author }, 0), nil
}

func (m *Memory) ListRecentPosts(ctx context.Context, limit int64) ([]models.Post, error) {
	return m.listPosts(func(*models.Post) bool { return true }, limit), nil
}

func (m *Memory) listPosts(keep func(*models.Post) bool, limit int64) []models.Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Post{}
	for _, p := range m.posts {
		if keep(p) {
			out = append(out, *copyPost(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out
}

func (m *Memory) AddPostLike(ctx context.Context, post, user primitive.ObjectID) (int, error) {
	return m.postLikes("AddPostLike", post, func(ids []primitive.ObjectID) []primitive.ObjectID { return addToSet(ids, user) })
}

func (m *Memory) RemovePostLike(ctx context.Context, post, user primitive.ObjectID) (int, error) {
	return m.postLikes("RemovePostLike", post, func(ids []primitive.ObjectID) []primitive.ObjectID { return pull(ids, user) })
}

func (m *Memory) postLikes(method string, id primitive.ObjectID, apply func([]primitive.ObjectID) []primitive.ObjectID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(method); err != nil {
		return 0, err
	}
	p, ok := m.posts[id]
	if !ok {
		return 0, apierrors.NewNotFoundError("Post")
	}
	p.Likes = apply(p.Likes)
	return len(p.Likes), nil
}

func (m *Memory) AppendPostComment(ctx context.Context, post, comment primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("AppendPostComment"); err != nil {
		return err
	}
	p, ok := m.posts[post]
	if !ok {
		return apierrors.NewNotFoundError("Post")
	}
	p.Comments = addToSet(p.Comments, comment)
	return nil
}

// ── Comments ─────────────────────────────────────────────

func (m *Memory) InsertComment(ctx context.Context, c *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("InsertComment"); err != nil {
		return err
	}
	now := m.now()
	c.ID = primitive.NewObjectID()
	c.CreatedAt, c.UpdatedAt = now, now
	if c.Likes == nil {
		c.Likes = []primitive.ObjectID{}
	}
	m.comments[c.ID] = copyComment(c)
	return nil
}

func (m *Memory) GetComment(ctx context.Context, id primitive.ObjectID) (*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok {
		return nil, apierrors.NewNotFoundError("Comment")
	}
	return copyComment(c), nil
}

func (m *Memory) ListComments(ctx context.Context, ids []primitive.ObjectID) ([]models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Comment{}
	for _, id := range ids {
		if c, ok := m.comments[id]; ok {
			out = append(out, *copyComment(c))
		}
	}
	return out, nil
}

func (m *Memory) AddCommentLike(ctx context.Context, comment, user primitive.ObjectID) (int, error) {
	return m.commentLikes(comment, func(ids []primitive.ObjectID) []primitive.ObjectID { return addToSet(ids, user) })
}

func (m *Memory) RemoveCommentLike(ctx context.Context, comment, user primitive.ObjectID) (int, error) {
	return m.commentLikes(comment, func(ids []primitive.ObjectID) []primitive.ObjectID { return pull(ids, user) })
}

func (m *Memory) commentLikes(id primitive.ObjectID, apply func([]primitive.ObjectID) []primitive.ObjectID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok {
		return 0, apierrors.NewNotFoundError("Comment")
	}
	c.Likes = apply(c.Likes)
	return len(c.Likes), nil
}

// ── Aggregates ───────────────────────────────────────────

func (m *Memory) EngagementTally(ctx context.Context, user primitive.ObjectID) (*models.EngagementTally, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("EngagementTally"); err != nil {
		return nil, err
	}
	u, ok := m.users[user]
	if !ok {
		return nil, apierrors.NewNotFoundError("User")
	}
	t := &models.EngagementTally{FollowerCount: len(u.Follower)}
	for _, p := range m.posts {
		if p.Author == user {
			t.LikesReceived += len(p.Likes)
		}
	}
	for _, c := range m.comments {
		if c.Author == user {
			t.LikesReceived += len(c.Likes)
			t.CommentsWritten++
		}
	}
	return t, nil
}

func (m *Memory) FindRepairs(ctx context.Context) ([]models.Repair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("FindRepairs"); err != nil {
		return nil, err
	}
	seen := map[models.Repair]bool{}
	var out []models.Repair
	add := func(r models.Repair) {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}

	for _, u := range m.users {
		for _, t := range u.Following {
			peer, exists := m.users[t]
			switch {
			case t == u.ID:
				add(models.Repair{Kind: models.RepairSelfEdge, Owner: u.ID, Ref: t})
			case !exists:
				add(models.Repair{Kind: models.RepairDanglingFollow, Owner: u.ID, Ref: t})
			case !models.ContainsID(peer.Follower, u.ID):
				add(models.Repair{Kind: models.RepairMissingFollower, Owner: t, Ref: u.ID})
			}
		}
		for _, f := range u.Follower {
			peer, exists := m.users[f]
			switch {
			case f == u.ID:
				add(models.Repair{Kind: models.RepairSelfEdge, Owner: u.ID, Ref: f})
			case !exists || !models.ContainsID(peer.Following, u.ID):
				add(models.Repair{Kind: models.RepairOrphanFollower, Owner: u.ID, Ref: f})
			}
		}
	}
	for _, p := range m.posts {
		if author, ok := m.users[p.Author]; ok && !models.ContainsID(author.Posts, p.ID) {
			add(models.Repair{Kind: models.RepairMissingPostRef, Owner: p.Author, Ref: p.ID})
		}
	}
	for _, u := range m.users {
		for _, id := range u.Posts {
			if _, ok := m.posts[id]; !ok {
				add(models.Repair{Kind: models.RepairDanglingPostRef, Owner: u.ID, Ref: id})
			}
		}
	}
	for _, c := range m.comments {
		if post, ok := m.posts[c.Post]; ok && !models.ContainsID(post.Comments, c.ID) {
			add(models.Repair{Kind: models.RepairMissingCommentID, Owner: c.Post, Ref: c.ID})
		}
	}
	return out, nil
}
