package store

import (
	"context"
	"errors"
	"strings"
	"time"
)

const (
	TypeReal    = "real"
	TypeVirtual = "virtual"
)

type SocialLink struct {
	Name string `json:"name" bson:"name"`
	Link string `json:"link" bson:"link"`
}

type Store struct {
	ID               string       `json:"id" bson:"_id"`
	OwnerID          string       `json:"storeOwner" bson:"storeOwner"`
	Name             string       `json:"storeName" bson:"storeName"`
	Verified         bool         `json:"verified" bson:"verified"`
	Type             string       `json:"storeType" bson:"storeType"`
	Wilaya           string       `json:"wilaya,omitempty" bson:"wilaya"`
	City             string       `json:"city" bson:"city"`
	Longitude        float64      `json:"longitude,omitempty" bson:"longitude"`
	Latitude         float64      `json:"latitude,omitempty" bson:"latitude"`
	Phone            string       `json:"phone,omitempty" bson:"phone"`
	Email            string       `json:"email,omitempty" bson:"email"`
	Website          string       `json:"website,omitempty" bson:"website"`
	SocialMediaLinks []SocialLink `json:"socialMediaLinks" bson:"socialMediaLinks"`
	Description      string       `json:"description,omitempty" bson:"description"`
	Keywords         []string     `json:"keywords" bson:"keywords"`
	Logo             string       `json:"storeLogo,omitempty" bson:"storeLogo,omitempty"`

	// Rating counts distinct raters; RatingSum totals their submitted values.
	Rating        int     `json:"rating" bson:"rating"`
	RatingSum     int     `json:"ratingSum" bson:"ratingSum"`
	AverageRating float64 `json:"averageRating" bson:"-"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

func (s *Store) computeAverage() {
	if s.Rating == 0 {
		s.AverageRating = 0
		return
	}
	s.AverageRating = float64(s.RatingSum) / float64(s.Rating)
}

// Input holds the owner-editable attributes of a store.
type Input struct {
	Name             string
	Type             string
	Wilaya           string
	City             string
	Longitude        float64
	Latitude         float64
	Phone            string
	Email            string
	Website          string
	SocialMediaLinks []SocialLink
	Description      string
	Keywords         []string
}

func (in *Input) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.City = strings.TrimSpace(in.City)
	in.Wilaya = strings.TrimSpace(in.Wilaya)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Name == "" || in.City == "" {
		return ErrInvalidInput
	}
	switch in.Type {
	case "":
		in.Type = TypeReal
	case TypeReal, TypeVirtual:
	default:
		return ErrInvalidType
	}
	keywords := make([]string, 0, len(in.Keywords))
	seen := make(map[string]bool, len(in.Keywords))
	for _, k := range in.Keywords {
		k = strings.TrimSpace(k)
		if k == "" || seen[strings.ToLower(k)] {
			continue
		}
		seen[strings.ToLower(k)] = true
		keywords = append(keywords, k)
	}
	in.Keywords = keywords
	if in.SocialMediaLinks == nil {
		in.SocialMediaLinks = []SocialLink{}
	}
	return nil
}

func (in Input) applyTo(s *Store) {
	s.Name = in.Name
	s.Type = in.Type
	s.Wilaya = in.Wilaya
	s.City = in.City
	s.Longitude = in.Longitude
	s.Latitude = in.Latitude
	s.Phone = in.Phone
	s.Email = in.Email
	s.Website = in.Website
	s.SocialMediaLinks = in.SocialMediaLinks
	s.Description = in.Description
	s.Keywords = in.Keywords
}

// Filter narrows Find. Empty fields match everything; Terms match keywords
// or description, Name matches the store name. Both are case-insensitive
// substring matches.
type Filter struct {
	OwnerID string
	Wilaya  string
	Name    string
	Terms   []string
}

var (
	ErrNotFound     = errors.New("store not found")
	ErrAlreadyRated = errors.New("store already rated by this user")
)

// Repository is the listing store. Rate must record the rater and bump the
// counters atomically, returning ErrAlreadyRated when the pair exists.
type Repository interface {
	Create(ctx context.Context, s *Store) error
	GetByID(ctx context.Context, id string) (*Store, error)
	Find(ctx context.Context, f Filter) ([]Store, error)
	Update(ctx context.Context, s *Store) error
	Delete(ctx context.Context, id string) error
	SetLogo(ctx context.Context, id, filename string) error
	SetVerified(ctx context.Context, id string, verified bool) error
	Rate(ctx context.Context, storeID, userID string, value int) error
}
