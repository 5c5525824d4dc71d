package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/BigBr41n/Dz-Stores-Finder/internal/domain/user"
)

type UserRepo struct {
	db     *DB
	hasher user.PasswordHasher
}

func NewUserRepo(db *DB, hasher user.PasswordHasher) *UserRepo {
	return &UserRepo{db: db, hasher: hasher}
}

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u.Email = user.NormalizeEmail(u.Email)
	if _, ok := r.db.byMail[u.Email]; ok {
		return user.ErrEmailTaken
	}
	now := r.db.now().UTC()
	if err := user.PreparePassword(u, r.hasher, now); err != nil {
		return err
	}
	u.ID = uuid.NewString()
	if u.Role == "" {
		u.Role = user.RoleUser
	}
	if u.RatedStores == nil {
		u.RatedStores = []string{}
	}
	u.CreatedAt = now
	u.UpdatedAt = now

	r.db.users[u.ID] = cloneUser(u)
	r.db.byMail[u.Email] = u.ID
	return nil
}

// Save overwrites the stored record. The rated set is owned by StoreRepo.Rate
// and is not taken from u.
func (r *UserRepo) Save(ctx context.Context, u *user.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	current, ok := r.db.users[u.ID]
	if !ok {
		return user.ErrNotFound
	}
	now := r.db.now().UTC()
	if err := user.PreparePassword(u, r.hasher, now); err != nil {
		return err
	}
	u.UpdatedAt = now
	u.RatedStores = append([]string(nil), current.RatedStores...)

	if current.Email != u.Email {
		delete(r.db.byMail, current.Email)
		r.db.byMail[u.Email] = u.ID
	}
	r.db.users[u.ID] = cloneUser(u)
	return nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	id, ok := r.db.byMail[user.NormalizeEmail(email)]
	if !ok {
		return nil, user.ErrNotFound
	}
	return cloneUser(r.db.users[id]), nil
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*user.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	u, ok := r.db.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepo) FindByActivationToken(ctx context.Context, token string, now time.Time) (*user.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, u := range r.db.users {
		if token != "" && u.ActivationToken == token && u.ActiveExpires > now.UnixMilli() {
			return cloneUser(u), nil
		}
	}
	return nil, user.ErrNotFound
}

func (r *UserRepo) FindByResetToken(ctx context.Context, token string) (*user.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, u := range r.db.users {
		if token != "" && u.ChangePassToken == token {
			return cloneUser(u), nil
		}
	}
	return nil, user.ErrNotFound
}

func (r *UserRepo) DeleteByEmail(ctx context.Context, email string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	email = user.NormalizeEmail(email)
	id, ok := r.db.byMail[email]
	if !ok {
		return user.ErrNotFound
	}
	delete(r.db.users, id)
	delete(r.db.byMail, email)
	return nil
}

func (r *UserRepo) List(ctx context.Context) ([]user.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	res := make([]user.User, 0, len(r.db.users))
	for _, u := range r.db.users {
		res = append(res, *cloneUser(u))
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

func (r *UserRepo) UpdateRole(ctx context.Context, id, role string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[id]
	if !ok {
		return user.ErrNotFound
	}
	u.Role = role
	u.UpdatedAt = r.db.now().UTC()
	return nil
}
