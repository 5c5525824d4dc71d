package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/BigBr41n/Dz-Stores-Finder/internal/domain/store"
	"github.com/BigBr41n/Dz-Stores-Finder/internal/domain/user"
	"github.com/BigBr41n/Dz-Stores-Finder/internal/platform/password"
)

func newRepos(t *testing.T) (*UserRepo, *StoreRepo) {
	t.Helper()
	db := NewDB()
	db.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return NewUserRepo(db, password.NewHasher(bcrypt.MinCost)), NewStoreRepo(db)
}

func createUser(t *testing.T, repo *UserRepo, email string) *user.User {
	t.Helper()
	u := &user.User{Name: "Tester", Email: email}
	u.SetPassword("secret42")
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestUserRepoHashesAndKeepsRatedSet(t *testing.T) {
	users, stores := newRepos(t)
	ctx := context.Background()

	u := createUser(t, users, " Ana@X.com ")
	assert.Equal(t, "ana@x.com", u.Email)
	assert.NotEqual(t, "secret42", u.PasswordHash)
	assert.False(t, u.HasPendingPassword())
	require.NotNil(t, u.PasswordChangedAt)

	dup := &user.User{Name: "Dup", Email: "ana@x.com"}
	dup.SetPassword("secret42")
	assert.ErrorIs(t, users.Create(ctx, dup), user.ErrEmailTaken)

	s := &store.Store{OwnerID: u.ID, Name: "Amel", City: "Oran"}
	require.NoError(t, stores.Create(ctx, s))
	require.NoError(t, stores.Rate(ctx, s.ID, u.ID, 3))

	// A stale copy must not wipe the rated set on save.
	u.Name = "Ana B"
	require.NoError(t, users.Save(ctx, u))
	got, err := users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana B", got.Name)
	assert.Equal(t, []string{s.ID}, got.RatedStores)

	_, err = users.FindByActivationToken(ctx, "", time.Now())
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestStoreRepoUpdateKeepsProtectedFields(t *testing.T) {
	users, stores := newRepos(t)
	ctx := context.Background()
	owner := createUser(t, users, "owner@x.com")
	rater := createUser(t, users, "rater@x.com")

	s := &store.Store{OwnerID: owner.ID, Name: "Amel", City: "Oran", Wilaya: "Oran"}
	require.NoError(t, stores.Create(ctx, s))
	require.NoError(t, stores.SetLogo(ctx, s.ID, "storeLogo-1.png"))
	require.NoError(t, stores.Rate(ctx, s.ID, rater.ID, 5))
	assert.ErrorIs(t, stores.Rate(ctx, s.ID, rater.ID, 1), store.ErrAlreadyRated)
	assert.ErrorIs(t, stores.Rate(ctx, s.ID, "ghost", 1), user.ErrNotFound)

	require.NoError(t, stores.Update(ctx, &store.Store{ID: s.ID, OwnerID: rater.ID, Name: "Amel 2", City: "Oran"}))

	got, err := stores.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Amel 2", got.Name)
	assert.Equal(t, owner.ID, got.OwnerID)
	assert.Equal(t, "storeLogo-1.png", got.Logo)
	assert.Equal(t, 1, got.Rating)
	assert.Equal(t, 5, got.RatingSum)
}

func TestStoreRepoDeleteForgetsRatings(t *testing.T) {
	users, stores := newRepos(t)
	ctx := context.Background()
	rater := createUser(t, users, "rater@x.com")

	s := &store.Store{OwnerID: rater.ID, Name: "Amel", City: "Oran"}
	require.NoError(t, stores.Create(ctx, s))
	require.NoError(t, stores.Rate(ctx, s.ID, rater.ID, 4))
	require.NoError(t, stores.Delete(ctx, s.ID))
	assert.ErrorIs(t, stores.Delete(ctx, s.ID), store.ErrNotFound)

	got, err := users.FindByID(ctx, rater.ID)
	require.NoError(t, err)
	assert.Empty(t, got.RatedStores)

	found, err := stores.Find(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Empty(t, found)
}
