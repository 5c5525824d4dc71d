package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/BigBr41n/Dz-Stores-Finder/internal/domain/store"
)

const storeColumns = `id, owner_id, store_name, verified, store_type, wilaya, city,
        longitude, latitude, phone, email, website, social_media_links, description,
        keywords, store_logo, rating, rating_sum, created_at, updated_at`

type storeRow struct {
	ID               string    `db:"id"`
	OwnerID          string    `db:"owner_id"`
	Name             string    `db:"store_name"`
	Verified         bool      `db:"verified"`
	Type             string    `db:"store_type"`
	Wilaya           string    `db:"wilaya"`
	City             string    `db:"city"`
	Longitude        float64   `db:"longitude"`
	Latitude         float64   `db:"latitude"`
	Phone            string    `db:"phone"`
	Email            string    `db:"email"`
	Website          string    `db:"website"`
	SocialMediaLinks []byte    `db:"social_media_links"`
	Description      string    `db:"description"`
	Keywords         []byte    `db:"keywords"`
	Logo             string    `db:"store_logo"`
	Rating           int       `db:"rating"`
	RatingSum        int       `db:"rating_sum"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (row storeRow) toDomain() (store.Store, error) {
	s := store.Store{
		ID:               row.ID,
		OwnerID:          row.OwnerID,
		Name:             row.Name,
		Verified:         row.Verified,
		Type:             row.Type,
		Wilaya:           row.Wilaya,
		City:             row.City,
		Longitude:        row.Longitude,
		Latitude:         row.Latitude,
		Phone:            row.Phone,
		Email:            row.Email,
		Website:          row.Website,
		Description:      row.Description,
		Logo:             row.Logo,
		Rating:           row.Rating,
		RatingSum:        row.RatingSum,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
		Keywords:         []string{},
		SocialMediaLinks: []store.SocialLink{},
	}
	if len(row.Keywords) > 0 {
		if err := json.Unmarshal(row.Keywords, &s.Keywords); err != nil {
			return store.Store{}, fmt.Errorf("decode keywords: %w", err)
		}
	}
	if len(row.SocialMediaLinks) > 0 {
		if err := json.Unmarshal(row.SocialMediaLinks, &s.SocialMediaLinks); err != nil {
			return store.Store{}, fmt.Errorf("decode social links: %w", err)
		}
	}
	return s, nil
}

func encodeLists(s *store.Store) (keywords, links string, err error) {
	kw := s.Keywords
	if kw == nil {
		kw = []string{}
	}
	sl := s.SocialMediaLinks
	if sl == nil {
		sl = []store.SocialLink{}
	}
	kb, err := json.Marshal(kw)
	if err != nil {
		return "", "", err
	}
	lb, err := json.Marshal(sl)
	if err != nil {
		return "", "", err
	}
	return string(kb), string(lb), nil
}

type StoreRepo struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewStoreRepo(db *sqlx.DB) *StoreRepo {
	return &StoreRepo{db: db, now: time.Now}
}

func (r *StoreRepo) Create(ctx context.Context, s *store.Store) error {
	keywords, links, err := encodeLists(s)
	if err != nil {
		return err
	}
	now := r.now().UTC()
	id := uuid.NewString()

	_, err = r.db.ExecContext(ctx, `
        INSERT INTO stores (id, owner_id, store_name, verified, store_type, wilaya, city,
            longitude, latitude, phone, email, website, social_media_links, description,
            keywords, store_logo, rating, rating_sum, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, 0, 0, $17, $17)
    `, id, s.OwnerID, s.Name, s.Verified, s.Type, s.Wilaya, s.City,
		s.Longitude, s.Latitude, s.Phone, s.Email, s.Website, links, s.Description,
		keywords, s.Logo, now)
	if err != nil {
		return err
	}
	s.ID = id
	s.CreatedAt = now
	s.UpdatedAt = now
	return nil
}

func (r *StoreRepo) GetByID(ctx context.Context, id string) (*store.Store, error) {
	var row storeRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+storeColumns+` FROM stores WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	s, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Find ANDs the filter fields together. Terms are ORed across description
// and keywords.
func (r *StoreRepo) Find(ctx context.Context, f store.Filter) ([]store.Store, error) {
	var (
		conds []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.OwnerID != "" {
		conds = append(conds, "owner_id = "+next(f.OwnerID))
	}
	if f.Wilaya != "" {
		conds = append(conds, "lower(wilaya) = lower("+next(f.Wilaya)+")")
	}
	if f.Name != "" {
		conds = append(conds, "store_name ILIKE "+next(containsPattern(f.Name)))
	}
	if len(f.Terms) > 0 {
		ors := make([]string, 0, len(f.Terms))
		for _, term := range f.Terms {
			p := next(containsPattern(term))
			ors = append(ors, fmt.Sprintf(
				"description ILIKE %s OR EXISTS (SELECT 1 FROM jsonb_array_elements_text(keywords) AS k WHERE k ILIKE %s)", p, p))
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
	}

	query := `SELECT ` + storeColumns + ` FROM stores`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at"

	var rows []storeRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	res := make([]store.Store, 0, len(rows))
	for _, row := range rows {
		s, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, nil
}

// Update writes the owner-editable columns only.
func (r *StoreRepo) Update(ctx context.Context, s *store.Store) error {
	keywords, links, err := encodeLists(s)
	if err != nil {
		return err
	}
	now := r.now().UTC()

	res, err := r.db.ExecContext(ctx, `
        UPDATE stores SET
            store_name = $1, store_type = $2, wilaya = $3, city = $4,
            longitude = $5, latitude = $6, phone = $7, email = $8, website = $9,
            social_media_links = $10, description = $11, keywords = $12, updated_at = $13
        WHERE id = $14
    `, s.Name, s.Type, s.Wilaya, s.City, s.Longitude, s.Latitude, s.Phone, s.Email, s.Website,
		links, s.Description, keywords, now, s.ID)
	if err != nil {
		return err
	}
	if err := expectAffected(res, store.ErrNotFound); err != nil {
		return err
	}
	s.UpdatedAt = now
	return nil
}

func (r *StoreRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM stores WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res, store.ErrNotFound)
}

func (r *StoreRepo) SetLogo(ctx context.Context, id, filename string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE stores SET store_logo = $1, updated_at = $2 WHERE id = $3`,
		filename, r.now().UTC(), id)
	if err != nil {
		return err
	}
	return expectAffected(res, store.ErrNotFound)
}

func (r *StoreRepo) SetVerified(ctx context.Context, id string, verified bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE stores SET verified = $1, updated_at = $2 WHERE id = $3`,
		verified, r.now().UTC(), id)
	if err != nil {
		return err
	}
	return expectAffected(res, store.ErrNotFound)
}

// Rate inserts the (user, store) pair and bumps the counters in one
// transaction. The primary key on store_ratings rejects a second rating.
func (r *StoreRepo) Rate(ctx context.Context, storeID, userID string, value int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO store_ratings (user_id, store_id, value) VALUES ($1, $2, $3)`,
		userID, storeID, value); err != nil {
		switch {
		case isUniqueViolation(err):
			return store.ErrAlreadyRated
		case isForeignKeyViolation(err):
			return store.ErrNotFound
		}
		return err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE stores SET rating = rating + 1, rating_sum = rating_sum + $1, updated_at = $2 WHERE id = $3`,
		value, r.now().UTC(), storeID)
	if err != nil {
		return err
	}
	if err := expectAffected(res, store.ErrNotFound); err != nil {
		return err
	}
	return tx.Commit()
}
