package memory

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/BigBr41n/Dz-Stores-Finder/internal/domain/store"
	"github.com/BigBr41n/Dz-Stores-Finder/internal/domain/user"
)

type StoreRepo struct {
	db *DB
}

func NewStoreRepo(db *DB) *StoreRepo {
	return &StoreRepo{db: db}
}

func (r *StoreRepo) Create(ctx context.Context, s *store.Store) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	now := r.db.now().UTC()
	s.ID = uuid.NewString()
	s.CreatedAt = now
	s.UpdatedAt = now
	r.db.stores[s.ID] = cloneStore(s)
	r.db.order = append(r.db.order, s.ID)
	return nil
}

func (r *StoreRepo) GetByID(ctx context.Context, id string) (*store.Store, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	s, ok := r.db.stores[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneStore(s), nil
}

func (r *StoreRepo) Find(ctx context.Context, f store.Filter) ([]store.Store, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	res := make([]store.Store, 0)
	for _, id := range r.db.order {
		s, ok := r.db.stores[id]
		if !ok || !matches(s, f) {
			continue
		}
		res = append(res, *cloneStore(s))
	}
	return res, nil
}

func matches(s *store.Store, f store.Filter) bool {
	if f.OwnerID != "" && s.OwnerID != f.OwnerID {
		return false
	}
	if f.Wilaya != "" && !strings.EqualFold(s.Wilaya, f.Wilaya) {
		return false
	}
	if f.Name != "" && !containsFold(s.Name, f.Name) {
		return false
	}
	if len(f.Terms) == 0 {
		return true
	}
	for _, term := range f.Terms {
		if containsFold(s.Description, term) {
			return true
		}
		for _, k := range s.Keywords {
			if containsFold(k, term) {
				return true
			}
		}
	}
	return false
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// Update replaces the owner-editable fields. Owner, counters, logo and
// verification are kept.
func (r *StoreRepo) Update(ctx context.Context, s *store.Store) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	current, ok := r.db.stores[s.ID]
	if !ok {
		return store.ErrNotFound
	}
	next := cloneStore(s)
	next.OwnerID = current.OwnerID
	next.Rating = current.Rating
	next.RatingSum = current.RatingSum
	next.Logo = current.Logo
	next.Verified = current.Verified
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = r.db.now().UTC()
	r.db.stores[s.ID] = next
	s.UpdatedAt = next.UpdatedAt
	return nil
}

// Delete removes the store and forgets it in every rater's set.
func (r *StoreRepo) Delete(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.stores[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.db.stores, id)
	r.db.order = slices.DeleteFunc(r.db.order, func(sid string) bool { return sid == id })
	for _, u := range r.db.users {
		u.RatedStores = slices.DeleteFunc(u.RatedStores, func(sid string) bool { return sid == id })
	}
	return nil
}

func (r *StoreRepo) SetLogo(ctx context.Context, id, filename string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	s, ok := r.db.stores[id]
	if !ok {
		return store.ErrNotFound
	}
	s.Logo = filename
	s.UpdatedAt = r.db.now().UTC()
	return nil
}

func (r *StoreRepo) SetVerified(ctx context.Context, id string, verified bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	s, ok := r.db.stores[id]
	if !ok {
		return store.ErrNotFound
	}
	s.Verified = verified
	s.UpdatedAt = r.db.now().UTC()
	return nil
}

// Rate checks the rater's set and applies both writes under the shared lock.
func (r *StoreRepo) Rate(ctx context.Context, storeID, userID string, value int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	s, ok := r.db.stores[storeID]
	if !ok {
		return store.ErrNotFound
	}
	u, ok := r.db.users[userID]
	if !ok {
		return user.ErrNotFound
	}
	if u.HasRated(storeID) {
		return store.ErrAlreadyRated
	}

	u.RatedStores = append(u.RatedStores, storeID)
	s.Rating++
	s.RatingSum += value
	s.UpdatedAt = r.db.now().UTC()
	return nil
}
