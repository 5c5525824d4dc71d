package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/BigBr41n/Dz-Stores-Finder/internal/domain/user"
	"github.com/BigBr41n/Dz-Stores-Finder/internal/platform/password"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

var userCols = []string{
	"id", "name", "email", "password_hash", "role", "verified",
	"activation_token", "active_expires", "change_pass_token", "change_pass_token_expires",
	"password_changed_at", "created_at", "updated_at",
}

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "pgx"), mock
}

func newUserRepoWithMock(t *testing.T) (*UserRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	repo := NewUserRepo(db, password.NewHasher(bcrypt.MinCost))
	repo.now = func() time.Time { return fixedNow }
	return repo, mock
}

func TestUserCreateHashesPassword(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)

	mock.ExpectExec(`INSERT INTO users`).WillReturnResult(sqlmock.NewResult(0, 1))

	u := &user.User{Name: "Ana", Email: "ANA@x.com"}
	u.SetPassword("secret1")
	require.NoError(t, repo.Create(context.Background(), u))

	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "ana@x.com", u.Email)
	assert.Equal(t, user.RoleUser, u.Role)
	assert.NotEmpty(t, u.PasswordHash)
	assert.NotEqual(t, "secret1", u.PasswordHash)
	assert.False(t, u.HasPendingPassword())
	require.NotNil(t, u.PasswordChangedAt)
	assert.Equal(t, fixedNow, *u.PasswordChangedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)

	mock.ExpectExec(`INSERT INTO users`).WillReturnError(&pgconn.PgError{Code: "23505"})

	u := &user.User{Name: "Ana", Email: "ana@x.com"}
	u.SetPassword("secret1")
	err := repo.Create(context.Background(), u)
	assert.ErrorIs(t, err, user.ErrEmailTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserFindByIDLoadsRatedStores(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)

	mock.ExpectQuery(`SELECT .* FROM users WHERE id = \$1`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(
			"u-1", "Ana", "ana@x.com", "hash", "user", true,
			"", int64(0), "", int64(0),
			nil, fixedNow, fixedNow,
		))
	mock.ExpectQuery(`SELECT store_id FROM store_ratings WHERE user_id = \$1`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"store_id"}).AddRow("s-1").AddRow("s-2"))

	u, err := repo.FindByID(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "ana@x.com", u.Email)
	assert.True(t, u.Verified)
	assert.Nil(t, u.PasswordChangedAt)
	assert.Equal(t, []string{"s-1", "s-2"}, u.RatedStores)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserFindByEmailNotFound(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)

	mock.ExpectQuery(`SELECT .* FROM users WHERE email = \$1`).
		WithArgs("ana@x.com").
		WillReturnRows(sqlmock.NewRows(userCols))

	_, err := repo.FindByEmail(context.Background(), " Ana@X.com")
	assert.ErrorIs(t, err, user.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserFindByActivationTokenFiltersOnExpiry(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)

	mock.ExpectQuery(`FROM users WHERE activation_token = \$1 AND active_expires > \$2`).
		WithArgs("tok", fixedNow.UnixMilli()).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByActivationToken(context.Background(), "tok", fixedNow)
	assert.ErrorIs(t, err, user.ErrNotFound)

	_, err = repo.FindByActivationToken(context.Background(), "", fixedNow)
	assert.ErrorIs(t, err, user.ErrNotFound)
	_, err = repo.FindByResetToken(context.Background(), "")
	assert.ErrorIs(t, err, user.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserSaveMissingRow(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)

	mock.ExpectExec(`UPDATE users SET`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Save(context.Background(), &user.User{ID: "ghost", Email: "ghost@x.com"})
	assert.ErrorIs(t, err, user.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserUpdateRoleAndDelete(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)

	mock.ExpectExec(`UPDATE users SET role = \$1, updated_at = \$2 WHERE id = \$3`).
		WithArgs("editor", fixedNow, "u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM users WHERE email = \$1`).
		WithArgs("ana@x.com").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdateRole(context.Background(), "u-1", "editor"))
	assert.ErrorIs(t, repo.DeleteByEmail(context.Background(), "ana@x.com"), user.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateUsesEmbeddedSchema(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	var called bool
	gooseUpContext = func(ctx context.Context, got *sql.DB, dir string, _ ...goose.OptionsFunc) error {
		called = true
		assert.Same(t, db, got)
		assert.Equal(t, ".", dir)
		return nil
	}

	require.NoError(t, Migrate(context.Background(), db))
	assert.True(t, called)
}
