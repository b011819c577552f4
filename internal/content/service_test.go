package content

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/nimi-blog/backend/internal/models"
	apierrors "github.com/ayush/nimi-blog/backend/internal/pkg/errors"
	"github.com/ayush/nimi-blog/backend/internal/store/storetest"
)

type recordingInvalidator struct {
	users []primitive.ObjectID
}

func (r *recordingInvalidator) Invalidate(_ context.Context, users ...primitive.ObjectID) {
	r.users = append(r.users, users...)
}

func newTestService() (*Service, *storetest.Memory, *recordingInvalidator) {
	mem := storetest.NewMemory()
	inv := &recordingInvalidator{}
	return NewService(mem, inv, slog.New(slog.NewTextHandler(io.Discard, nil))), mem, inv
}

func TestService_CreatePost(t *testing.T) {
	svc, mem, _ := newTestService()
	ctx := context.Background()
	alice := mem.MustUser("alice")

	post, err := svc.CreatePost(ctx, alice.ID, models.PostInput{Title: "  Hello  ", Content: "World"})
	require.NoError(t, err)
	assert.Equal(t, "Hello", post.Title)
	assert.Equal(t, alice.ID, post.Author)
	assert.Empty(t, post.Likes)
	assert.Empty(t, post.Comments)

	u, err := mem.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{post.ID}, u.Posts)
}

func TestService_CreatePost_Bounds(t *testing.T) {
	svc, mem, _ := newTestService()
	ctx := context.Background()
	alice := mem.MustUser("alice")

	tests := []struct {
		name    string
		in      models.PostInput
		wantErr bool
	}{
		{"min lengths", models.PostInput{Title: "a", Content: "b"}, false},
		{"max lengths", models.PostInput{Title: strings.Repeat("t", 256), Content: strings.Repeat("c", 40960)}, false},
		{"multibyte title counts runes", models.PostInput{Title: strings.Repeat("é", 256), Content: "c"}, false},
		{"empty title", models.PostInput{Title: "", Content: "c"}, true},
		{"blank title", models.PostInput{Title: "   ", Content: "c"}, true},
		{"title too long", models.PostInput{Title: strings.Repeat("t", 257), Content: "c"}, true},
		{"empty content", models.PostInput{Title: "t", Content: ""}, true},
		{"content too long", models.PostInput{Title: "t", Content: strings.Repeat("c", 40961)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreatePost(ctx, alice.ID, tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, apierrors.ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestService_CreatePost_UnknownAuthor(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.CreatePost(context.Background(), primitive.NewObjectID(), models.PostInput{Title: "t", Content: "c"})
	assert.ErrorIs(t, err, apierrors.ErrNotFound)
}

func TestService_CreatePost_LinkFails(t *testing.T) {
	svc, mem, _ := newTestService()
	ctx := context.Background()
	alice := mem.MustUser("alice")

	mem.FailOn("AppendUserPost", true)
	_, err := svc.CreatePost(ctx, alice.ID, models.PostInput{Title: "t", Content: "c"})
	require.ErrorIs(t, err, apierrors.ErrStoreUnavailable)

	// The post exists without a back-reference until the reconciler runs.
	repairs, err := mem.FindRepairs(ctx)
	require.NoError(t, err)
	require.Len(t, repairs, 1)
	assert.Equal(t, models.RepairMissingPostRef, repairs[0].Kind)
	assert.Equal(t, alice.ID, repairs[0].Owner)
}

func TestService_AddComment(t *testing.T) {
	svc, mem, inv := newTestService()
	ctx := context.Background()
	alice, bob := mem.MustUser("alice"), mem.MustUser("bob")
	post, err := svc.CreatePost(ctx, alice.ID, models.PostInput{Title: "t", Content: "c"})
	require.NoError(t, err)

	c, err := svc.AddComment(ctx, bob.ID, post.ID, models.CommentInput{Content: "  great post  "})
	require.NoError(t, err)
	assert.Equal(t, "great post", c.Content)
	assert.Equal(t, []primitive.ObjectID{bob.ID}, inv.users)

	p, err := mem.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{c.ID}, p.Comments)

	_, err = svc.AddComment(ctx, bob.ID, post.ID, models.CommentInput{Content: "   "})
	assert.ErrorIs(t, err, apierrors.ErrValidation)
	_, err = svc.AddComment(ctx, bob.ID, post.ID, models.CommentInput{Content: strings.Repeat("x", 1025)})
	assert.ErrorIs(t, err, apierrors.ErrValidation)
	_, err = svc.AddComment(ctx, bob.ID, primitive.NewObjectID(), models.CommentInput{Content: "hi"})
	assert.ErrorIs(t, err, apierrors.ErrNotFound)
	_, err = svc.AddComment(ctx, primitive.NewObjectID(), post.ID, models.CommentInput{Content: "hi"})
	assert.ErrorIs(t, err, apierrors.ErrNotFound)
}

func TestService_UpdatePost(t *testing.T) {
	svc, mem, _ := newTestService()
	ctx := context.Background()
	alice, bob := mem.MustUser("alice"), mem.MustUser("bob")
	post, err := svc.CreatePost(ctx, alice.ID, models.PostInput{Title: "t", Content: "c"})
	require.NoError(t, err)

	_, err = svc.UpdatePost(ctx, bob.ID, post.ID, models.PostInput{Title: "hijack", Content: "c"})
	assert.ErrorIs(t, err, apierrors.ErrForbidden)

	updated, err := svc.UpdatePost(ctx, alice.ID, post.ID, models.PostInput{Title: "new", Content: "body"})
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Title)
	assert.Equal(t, "body", updated.Content)
	assert.True(t, updated.UpdatedAt.After(post.UpdatedAt))
}

func TestService_DeletePost(t *testing.T) {
	svc, mem, inv := newTestService()
	ctx := context.Background()
	alice, bob := mem.MustUser("alice"), mem.MustUser("bob")
	post, err := svc.CreatePost(ctx, alice.ID, models.PostInput{Title: "t", Content: "c"})
	require.NoError(t, err)

	err = svc.DeletePost(ctx, bob.ID, post.ID)
	require.ErrorIs(t, err, apierrors.ErrForbidden)
	_, err = mem.GetPost(ctx, post.ID)
	require.NoError(t, err)

	require.NoError(t, svc.DeletePost(ctx, alice.ID, post.ID))
	_, err = mem.GetPost(ctx, post.ID)
	assert.ErrorIs(t, err, apierrors.ErrNotFound)
	u, err := mem.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, u.Posts)
	assert.Contains(t, inv.users, alice.ID)

	err = svc.DeletePost(ctx, alice.ID, post.ID)
	assert.ErrorIs(t, err, apierrors.ErrNotFound)
}

func TestService_DeletePost_UnlinkFails(t *testing.T) {
	svc, mem, _ := newTestService()
	ctx := context.Background()
	alice := mem.MustUser("alice")
	post, err := svc.CreatePost(ctx, alice.ID, models.PostInput{Title: "t", Content: "c"})
	require.NoError(t, err)

	mem.FailOn("RemoveUserPost", true)
	err = svc.DeletePost(ctx, alice.ID, post.ID)
	assert.ErrorIs(t, err, apierrors.ErrStoreUnavailable)

	// The post is gone while the author still lists it; a sweep repairs it.
	_, err = mem.GetPost(ctx, post.ID)
	assert.ErrorIs(t, err, apierrors.ErrNotFound)
	repairs, err := mem.FindRepairs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Repair{{Kind: models.RepairDanglingPostRef, Owner: alice.ID, Ref: post.ID}}, repairs)
}

func TestService_Get(t *testing.T) {
	svc, mem, _ := newTestService()
	ctx := context.Background()
	alice, bob := mem.MustUser("alice"), mem.MustUser("bob")
	post, err := svc.CreatePost(ctx, alice.ID, models.PostInput{Title: "t", Content: "c"})
	require.NoError(t, err)

	_, err = svc.AddComment(ctx, bob.ID, post.ID, models.CommentInput{Content: "first"})
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, alice.ID, post.ID, models.CommentInput{Content: "second"})
	require.NoError(t, err)
	_, err = mem.AddPostLike(ctx, post.ID, bob.ID)
	require.NoError(t, err)

	detail, err := svc.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", detail.AuthorInfo.UserName)
	require.Len(t, detail.Comments, 2)
	assert.Equal(t, "first", detail.Comments[0].Content)
	assert.Equal(t, "bob", detail.Comments[0].AuthorInfo.UserName)
	assert.Equal(t, "second", detail.Comments[1].Content)
	assert.Equal(t, "alice", detail.Comments[1].AuthorInfo.UserName)
	require.Len(t, detail.Likers, 1)
	assert.Equal(t, bob.ID, detail.Likers[0].ID)

	_, err = svc.Get(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, apierrors.ErrNotFound)
}

func TestService_RecentAndByAuthor(t *testing.T) {
	svc, mem, _ := newTestService()
	ctx := context.Background()
	alice, bob := mem.MustUser("alice"), mem.MustUser("bob")

	for i, author := range []primitive.ObjectID{alice.ID, bob.ID, alice.ID, bob.ID, alice.ID} {
		title := string(rune('a' + i))
		_, err := svc.CreatePost(ctx, author, models.PostInput{Title: title, Content: "c"})
		require.NoError(t, err)
	}

	recent, err := svc.Recent(ctx, RecentLimit)
	require.NoError(t, err)
	require.Len(t, recent, RecentLimit)
	assert.Equal(t, "e", recent[0].Title)
	assert.Equal(t, "alice", recent[0].AuthorInfo.UserName)
	assert.Equal(t, "b", recent[3].Title)
	assert.Equal(t, "bob", recent[3].AuthorInfo.UserName)

	mine, err := svc.ByAuthor(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, mine, 3)
	assert.Equal(t, []string{"e", "c", "a"}, []string{mine[0].Title, mine[1].Title, mine[2].Title})

	_, err = svc.ByAuthor(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, apierrors.ErrNotFound)
}
