package store

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/BigBr41n/Dz-Stores-Finder/internal/domain/user"
	"github.com/BigBr41n/Dz-Stores-Finder/internal/platform/apperr"
)

var (
	ErrForbidden     = errors.New("not the store owner")
	ErrInvalidInput  = errors.New("store name and city are required")
	ErrInvalidType   = errors.New("store type must be real or virtual")
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	ErrMissingTerm   = errors.New("search term is required")
)

const (
	MinRating = 1
	MaxRating = 5
)

// UserFinder resolves raters against the credential store.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*user.User, error)
}

// LogoRemover deletes a stored logo by file name.
type LogoRemover interface {
	Delete(ctx context.Context, name string) error
}

type Service struct {
	repo  Repository
	users UserFinder
	logos LogoRemover
	log   *zap.Logger
}

func NewService(repo Repository, users UserFinder, logos LogoRemover, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, users: users, logos: logos, log: log.Named("listing")}
}

func (s *Service) Create(ctx context.Context, ownerID string, in Input) (*Store, error) {
	if err := in.normalize(); err != nil {
		return nil, apperr.BadRequest("validation_error", err.Error(), err)
	}

	st := &Store{OwnerID: ownerID}
	in.applyTo(st)
	if err := s.repo.Create(ctx, st); err != nil {
		return nil, s.internal("create store", err)
	}
	if st.ID == "" {
		return nil, apperr.Internal("store_not_created", "store could not be created", nil)
	}

	s.log.Info("store created", zap.String("store_id", st.ID), zap.String("owner_id", ownerID))
	st.computeAverage()
	return st, nil
}

func (s *Service) Update(ctx context.Context, ownerID, storeID string, in Input) (*Store, error) {
	if err := in.normalize(); err != nil {
		return nil, apperr.BadRequest("validation_error", err.Error(), err)
	}

	st, err := s.owned(ctx, ownerID, storeID)
	if err != nil {
		return nil, err
	}

	in.applyTo(st)
	if err := s.repo.Update(ctx, st); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("store_not_found", "store not found", err)
		}
		return nil, s.internal("update store", err)
	}
	st.computeAverage()
	return st, nil
}

func (s *Service) Delete(ctx context.Context, ownerID, storeID string) error {
	st, err := s.owned(ctx, ownerID, storeID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, storeID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFound("store_not_found", "store not found", err)
		}
		return s.internal("delete store", err)
	}

	if st.Logo != "" {
		if err := s.logos.Delete(ctx, st.Logo); err != nil {
			s.log.Warn("orphaned logo left in storage", zap.String("logo", st.Logo), zap.Error(err))
		}
	}
	s.log.Info("store deleted", zap.String("store_id", storeID))
	return nil
}

func (s *Service) List(ctx context.Context) ([]Store, error) {
	return s.find(ctx, Filter{})
}

func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]Store, error) {
	return s.find(ctx, Filter{OwnerID: ownerID})
}

func (s *Service) Get(ctx context.Context, storeID string) (*Store, error) {
	st, err := s.repo.GetByID(ctx, storeID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("store_not_found", "store not found", err)
		}
		return nil, s.internal("get store", err)
	}
	st.computeAverage()
	return st, nil
}

// Rate records a single rating per user and store.
func (s *Service) Rate(ctx context.Context, storeID, userID string, value int) (*Store, error) {
	if value < MinRating || value > MaxRating {
		return nil, apperr.BadRequest("invalid_rating", ErrInvalidRating.Error(), ErrInvalidRating)
	}

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, apperr.NotFound("user_not_found", "user not found", err)
		}
		return nil, s.internal("rate lookup user", err)
	}
	if _, err := s.Get(ctx, storeID); err != nil {
		return nil, err
	}
	if u.HasRated(storeID) {
		return nil, apperr.Conflict("already_rated", "you already rated this store", ErrAlreadyRated)
	}

	if err := s.repo.Rate(ctx, storeID, userID, value); err != nil {
		switch {
		case errors.Is(err, ErrAlreadyRated):
			return nil, apperr.Conflict("already_rated", "you already rated this store", err)
		case errors.Is(err, ErrNotFound):
			return nil, apperr.NotFound("store_not_found", "store not found", err)
		case errors.Is(err, user.ErrNotFound):
			return nil, apperr.NotFound("user_not_found", "user not found", err)
		}
		return nil, s.internal("rate store", err)
	}

	s.log.Info("store rated", zap.String("store_id", storeID), zap.String("user_id", userID), zap.Int("value", value))
	return s.Get(ctx, storeID)
}

func (s *Service) FilterByWilaya(ctx context.Context, wilaya string) ([]Store, error) {
	wilaya = strings.TrimSpace(wilaya)
	if wilaya == "" {
		return nil, apperr.BadRequest("missing_wilaya", "wilaya is required", nil)
	}
	return s.find(ctx, Filter{Wilaya: wilaya})
}

// Search matches any of terms against keywords or description.
func (s *Service) Search(ctx context.Context, terms []string) ([]Store, error) {
	cleaned := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	if len(cleaned) == 0 {
		return nil, apperr.BadRequest("missing_search_term", ErrMissingTerm.Error(), ErrMissingTerm)
	}
	return s.find(ctx, Filter{Terms: cleaned})
}

func (s *Service) SearchByName(ctx context.Context, name string) ([]Store, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.BadRequest("missing_search_term", "store name is required", ErrMissingTerm)
	}
	return s.find(ctx, Filter{Name: name})
}

// CheckOwner fails unless userID owns the store.
func (s *Service) CheckOwner(ctx context.Context, userID, storeID string) error {
	_, err := s.owned(ctx, userID, storeID)
	return err
}

// SetLogo records filename as the store logo. The previous file is removed
// first; if that fails the new name is not recorded.
func (s *Service) SetLogo(ctx context.Context, storeID, userID, filename string) (*Store, error) {
	st, err := s.owned(ctx, userID, storeID)
	if err != nil {
		return nil, err
	}

	if st.Logo != "" && st.Logo != filename {
		if err := s.logos.Delete(ctx, st.Logo); err != nil {
			return nil, s.internal("delete previous logo", err)
		}
	}

	if err := s.repo.SetLogo(ctx, storeID, filename); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("store_not_found", "store not found", err)
		}
		return nil, s.internal("set logo", err)
	}
	st.Logo = filename
	st.computeAverage()
	return st, nil
}

func (s *Service) SetVerified(ctx context.Context, storeID string, verified bool) (*Store, error) {
	if err := s.repo.SetVerified(ctx, storeID, verified); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("store_not_found", "store not found", err)
		}
		return nil, s.internal("verify store", err)
	}
	s.log.Info("store verification changed", zap.String("store_id", storeID), zap.Bool("verified", verified))
	return s.Get(ctx, storeID)
}

func (s *Service) owned(ctx context.Context, ownerID, storeID string) (*Store, error) {
	st, err := s.repo.GetByID(ctx, storeID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("store_not_found", "store not found", err)
		}
		return nil, s.internal("load store", err)
	}
	if st.OwnerID != ownerID {
		return nil, apperr.Forbidden("not_owner", "you are not the owner of this store", ErrForbidden)
	}
	return st, nil
}

func (s *Service) find(ctx context.Context, f Filter) ([]Store, error) {
	stores, err := s.repo.Find(ctx, f)
	if err != nil {
		return nil, s.internal("find stores", err)
	}
	if stores == nil {
		stores = []Store{}
	}
	for i := range stores {
		stores[i].computeAverage()
	}
	return stores, nil
}

func (s *Service) internal(op string, err error) error {
	s.log.Error(op, zap.Error(err))
	return apperr.Internal("internal_error", "internal server error", err)
}
