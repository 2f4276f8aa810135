package typed_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/aretw0/odm/pkg/adapters/memory"
	"github.com/aretw0/odm/pkg/core"
	"github.com/aretw0/odm/pkg/mapper"
	"github.com/aretw0/odm/pkg/typed"
)

type UserProfile struct {
	ID    primitive.ObjectID `odm:"_id"`
	Name  string             `odm:""`
	Email string             `odm:""`
	Age   int                `odm:""`
}

func setupRepo(t *testing.T) (*typed.Repository[UserProfile], *memory.Collection) {
	t.Helper()
	coll := memory.NewCollection("users")
	return typed.NewRepository[UserProfile](coll, mapper.New(mapper.Config{})), coll
}

func TestTypedRepository(t *testing.T) {
	repo, coll := setupRepo(t)
	ctx := context.Background()

	// 1. Insert without identifier
	id, err := repo.Save(ctx, UserProfile{Name: "Alice", Email: "alice@example.com", Age: 30})
	require.NoError(t, err)
	oid, ok := id.(primitive.ObjectID)
	require.True(t, ok)
	assert.False(t, oid.IsZero())

	// 2. Get
	alice, err := repo.Get(ctx, oid)
	require.NoError(t, err)
	assert.Equal(t, UserProfile{ID: oid, Name: "Alice", Email: "alice@example.com", Age: 30}, alice)

	// 3. Update through upsert on _id
	alice.Age = 31
	_, err = repo.Save(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, coll.Len())

	alice, err = repo.Get(ctx, oid)
	require.NoError(t, err)
	assert.Equal(t, 31, alice.Age)

	// 4. Save with a fresh identifier inserts
	bob := UserProfile{ID: primitive.NewObjectID(), Name: "Bob"}
	_, err = repo.Save(ctx, bob)
	require.NoError(t, err)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	found, err := repo.Find(ctx, bson.D{{Key: "name", Value: "Bob"}})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, bob, found[0])

	// 5. Delete
	require.NoError(t, repo.Delete(ctx, bob.ID))
	err = repo.Delete(ctx, bob.ID)
	assert.True(t, errors.Is(err, core.ErrNotFound))

	_, err = repo.Get(ctx, bob.ID)
	assert.True(t, errors.Is(err, core.ErrNotFound))

	state := repo.State().(typed.RepositoryState)
	assert.Equal(t, "typed_test.UserProfile", state.Type)
	assert.Equal(t, memory.CollectionState{Name: "users", Documents: 1}, state.Collection)
	assert.Equal(t, "repository", repo.ComponentType())
}

func TestTypedRepository_Unmappable(t *testing.T) {
	repo := typed.NewRepository[map[string]chan int](memory.NewCollection("x"), mapper.New(mapper.Config{}))
	_, err := repo.Save(context.Background(), map[string]chan int{"c": make(chan int)})
	assert.True(t, errors.Is(err, core.ErrUnsupportedValue))
}

type Attachment struct {
	ID      string `odm:"_id"`
	Content []byte `odm:""`
}

func TestTypedRepository_BinaryFields(t *testing.T) {
	ctx := context.Background()
	repo := typed.NewRepository[Attachment](memory.NewCollection("files"), mapper.New(mapper.Config{}))

	_, err := repo.Save(ctx, Attachment{ID: "a", Content: []byte{0, 1, 2}})
	require.NoError(t, err)

	got, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2}, got.Content)
}
