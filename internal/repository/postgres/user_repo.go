package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/BigBr41n/Dz-Stores-Finder/internal/domain/user"
)

const userColumns = `id, name, email, password_hash, role, verified,
        activation_token, active_expires, change_pass_token, change_pass_token_expires,
        password_changed_at, created_at, updated_at`

type UserRepo struct {
	db     *sqlx.DB
	hasher user.PasswordHasher
	now    func() time.Time
}

func NewUserRepo(db *sqlx.DB, hasher user.PasswordHasher) *UserRepo {
	return &UserRepo{db: db, hasher: hasher, now: time.Now}
}

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	now := r.now().UTC()
	if err := user.PreparePassword(u, r.hasher, now); err != nil {
		return err
	}
	u.ID = uuid.NewString()
	u.Email = user.NormalizeEmail(u.Email)
	if u.Role == "" {
		u.Role = user.RoleUser
	}
	u.RatedStores = []string{}
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := r.db.NamedExecContext(ctx, `
        INSERT INTO users (`+userColumns+`)
        VALUES (:id, :name, :email, :password_hash, :role, :verified,
                :activation_token, :active_expires, :change_pass_token, :change_pass_token_expires,
                :password_changed_at, :created_at, :updated_at)
    `, u)
	if err != nil {
		if isUniqueViolation(err) {
			return user.ErrEmailTaken
		}
		return err
	}
	return nil
}

// Save writes every column of a loaded record. Ratings live in store_ratings
// and are not touched here.
func (r *UserRepo) Save(ctx context.Context, u *user.User) error {
	now := r.now().UTC()
	if err := user.PreparePassword(u, r.hasher, now); err != nil {
		return err
	}
	u.UpdatedAt = now

	res, err := r.db.NamedExecContext(ctx, `
        UPDATE users SET
            name = :name,
            email = :email,
            password_hash = :password_hash,
            role = :role,
            verified = :verified,
            activation_token = :activation_token,
            active_expires = :active_expires,
            change_pass_token = :change_pass_token,
            change_pass_token_expires = :change_pass_token_expires,
            password_changed_at = :password_changed_at,
            updated_at = :updated_at
        WHERE id = :id
    `, u)
	if err != nil {
		if isUniqueViolation(err) {
			return user.ErrEmailTaken
		}
		return err
	}
	return expectAffected(res, user.ErrNotFound)
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, user.NormalizeEmail(email))
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*user.User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepo) FindByActivationToken(ctx context.Context, token string, now time.Time) (*user.User, error) {
	if token == "" {
		return nil, user.ErrNotFound
	}
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE activation_token = $1 AND active_expires > $2`,
		token, now.UnixMilli())
}

func (r *UserRepo) FindByResetToken(ctx context.Context, token string) (*user.User, error) {
	if token == "" {
		return nil, user.ErrNotFound
	}
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE change_pass_token = $1`, token)
}

func (r *UserRepo) DeleteByEmail(ctx context.Context, email string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE email = $1`, user.NormalizeEmail(email))
	if err != nil {
		return err
	}
	return expectAffected(res, user.ErrNotFound)
}

func (r *UserRepo) List(ctx context.Context) ([]user.User, error) {
	var users []user.User
	if err := r.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY created_at`); err != nil {
		return nil, err
	}
	for i := range users {
		users[i].RatedStores = []string{}
	}
	return users, nil
}

func (r *UserRepo) UpdateRole(ctx context.Context, id, role string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET role = $1, updated_at = $2 WHERE id = $3`,
		role, r.now().UTC(), id)
	if err != nil {
		return err
	}
	return expectAffected(res, user.ErrNotFound)
}

func (r *UserRepo) one(ctx context.Context, query string, args ...any) (*user.User, error) {
	u := &user.User{}
	if err := r.db.GetContext(ctx, u, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}

	u.RatedStores = []string{}
	if err := r.db.SelectContext(ctx, &u.RatedStores,
		`SELECT store_id FROM store_ratings WHERE user_id = $1 ORDER BY created_at`, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

func expectAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
