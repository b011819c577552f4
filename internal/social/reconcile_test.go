package social

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/nimi-blog/backend/internal/models"
	apierrors "github.com/ayush/nimi-blog/backend/internal/pkg/errors"
	"github.com/ayush/nimi-blog/backend/internal/store/storetest"
)

func TestReconciler_Sweep_FollowEdges(t *testing.T) {
	mem := storetest.NewMemory()
	ctx := context.Background()
	ghost := primitive.NewObjectID()

	alice := &models.User{ID: primitive.NewObjectID(), UserName: "alice", Email: "alice@example.com"}
	bob := &models.User{ID: primitive.NewObjectID(), UserName: "bob", Email: "bob@example.com"}
	carol := &models.User{ID: primitive.NewObjectID(), UserName: "carol", Email: "carol@example.com"}

	// alice -> bob is missing bob's follower entry.
	alice.Following = []primitive.ObjectID{bob.ID, ghost, alice.ID}
	alice.Follower = []primitive.ObjectID{alice.ID}
	// carol claims bob follows her, but bob's following set disagrees.
	carol.Follower = []primitive.ObjectID{bob.ID}
	bob.Following = []primitive.ObjectID{}
	bob.Follower = []primitive.ObjectID{}
	carol.Following = []primitive.ObjectID{}
	mem.PutUser(alice)
	mem.PutUser(bob)
	mem.PutUser(carol)

	rec := NewReconciler(mem, discardLogger())
	res, err := rec.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Found)
	assert.Equal(t, 4, res.Repaired)
	assert.Zero(t, res.Failed)

	a, b, c := reload(t, mem, alice.ID), reload(t, mem, bob.ID), reload(t, mem, carol.ID)
	assert.Equal(t, []primitive.ObjectID{bob.ID}, a.Following)
	assert.Empty(t, a.Follower)
	assert.Equal(t, []primitive.ObjectID{alice.ID}, b.Follower)
	assert.Empty(t, c.Follower)

	// A consistent store yields nothing further.
	res, err = rec.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Found)
}

func TestReconciler_Sweep_CompletesInterruptedFollow(t *testing.T) {
	mem := storetest.NewMemory()
	svc := NewService(mem, nil, discardLogger())
	ctx := context.Background()
	alice, bob := mem.MustUser("alice"), mem.MustUser("bob")

	mem.FailOn("AddFollower", true)
	require.Error(t, svc.Follow(ctx, alice.ID, bob.ID))
	mem.FailOn("AddFollower", false)

	res, err := NewReconciler(mem, discardLogger()).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Repaired)
	assert.Equal(t, []primitive.ObjectID{alice.ID}, reload(t, mem, bob.ID).Follower)
}

func TestReconciler_Sweep_ContentRefs(t *testing.T) {
	mem := storetest.NewMemory()
	ctx := context.Background()
	alice := mem.MustUser("alice")

	post := &models.Post{Author: alice.ID, Title: "t", Content: "c"}
	require.NoError(t, mem.InsertPost(ctx, post))
	comment := &models.Comment{Post: post.ID, Author: alice.ID, Content: "hi"}
	require.NoError(t, mem.InsertComment(ctx, comment))

	res, err := NewReconciler(mem, discardLogger()).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Repaired)

	assert.Equal(t, []primitive.ObjectID{post.ID}, reload(t, mem, alice.ID).Posts)
	p, err := mem.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{comment.ID}, p.Comments)
}

func TestReconciler_Sweep_DanglingPostRef(t *testing.T) {
	mem := storetest.NewMemory()
	ctx := context.Background()
	alice := mem.MustUser("alice")

	post := &models.Post{Author: alice.ID, Title: "t", Content: "c"}
	require.NoError(t, mem.InsertPost(ctx, post))
	require.NoError(t, mem.AppendUserPost(ctx, alice.ID, post.ID))
	// Post removed but the author's list was never updated.
	require.NoError(t, mem.DeletePost(ctx, post.ID))

	res, err := NewReconciler(mem, discardLogger()).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Found: 1, Repaired: 1}, res)
	assert.Empty(t, reload(t, mem, alice.ID).Posts)
}

func TestReconciler_Sweep_StoreFailure(t *testing.T) {
	mem := storetest.NewMemory()
	mem.FailOn("FindRepairs", true)

	_, err := NewReconciler(mem, discardLogger()).Sweep(context.Background())
	assert.ErrorIs(t, err, apierrors.ErrStoreUnavailable)
}

func TestReconciler_Sweep_RepairFailureIsCounted(t *testing.T) {
	mem := storetest.NewMemory()
	svc := NewService(mem, nil, discardLogger())
	ctx := context.Background()
	alice, bob := mem.MustUser("alice"), mem.MustUser("bob")

	mem.FailOn("AddFollower", true)
	require.Error(t, svc.Follow(ctx, alice.ID, bob.ID))

	res, err := NewReconciler(mem, discardLogger()).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Found)
	assert.Equal(t, 1, res.Failed)
	assert.Zero(t, res.Repaired)
}

func TestReconciler_Run_StopsOnCancel(t *testing.T) {
	mem := storetest.NewMemory()
	rec := NewReconciler(mem, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		rec.Run(ctx, time.Millisecond)
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
