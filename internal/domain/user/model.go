package user

import (
	"context"
	"errors"
	"strings"
	"time"
)

const (
	RoleAdmin  = "admin"
	RoleUser   = "user"
	RoleEditor = "editor"
)

// ValidRole reports whether role is one of the enumerated roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleUser, RoleEditor:
		return true
	}
	return false
}

// NormalizeEmail is the canonical form used for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type User struct {
	ID           string `json:"id" db:"id" bson:"_id"`
	Name         string `json:"name" db:"name" bson:"name"`
	Email        string `json:"email" db:"email" bson:"email"`
	PasswordHash string `json:"-" db:"password_hash" bson:"password"`
	Role         string `json:"role" db:"role" bson:"role"`
	Verified     bool   `json:"verified" db:"verified" bson:"verified"`

	// Activation window, epoch milliseconds. Empty once verified.
	ActivationToken string `json:"-" db:"activation_token" bson:"activationToken"`
	ActiveExpires   int64  `json:"-" db:"active_expires" bson:"activeExpires"`

	// Password reset window, epoch milliseconds.
	ChangePassToken        string `json:"-" db:"change_pass_token" bson:"changePassToken"`
	ChangePassTokenExpires int64  `json:"-" db:"change_pass_token_expires" bson:"changePassTokenExpires"`

	PasswordChangedAt *time.Time `json:"passwordChangedAt,omitempty" db:"password_changed_at" bson:"passwordChangedAt,omitempty"`
	RatedStores       []string   `json:"ratedStores" db:"-" bson:"ratedStores"`
	CreatedAt         time.Time  `json:"createdAt" db:"created_at" bson:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt" db:"updated_at" bson:"updatedAt"`

	pendingPassword string
}

// SetPassword stages a new plaintext password. It is hashed by the
// credential store on the next Create or Save.
func (u *User) SetPassword(plain string) {
	u.pendingPassword = plain
}

func (u *User) HasPendingPassword() bool {
	return u.pendingPassword != ""
}

// HasRated reports whether storeID is in the user's rated set.
func (u *User) HasRated(storeID string) bool {
	for _, id := range u.RatedStores {
		if id == storeID {
			return true
		}
	}
	return false
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) bool
}

// PreparePassword replaces a staged plaintext password with its salted hash.
// Every credential store write path calls it before persisting.
func PreparePassword(u *User, h PasswordHasher, now time.Time) error {
	if u.pendingPassword == "" {
		return nil
	}
	hash, err := h.Hash(u.pendingPassword)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.pendingPassword = ""
	changed := now.UTC()
	u.PasswordChangedAt = &changed
	return nil
}

var ErrNotFound = errors.New("user not found")

// Repository is the credential store. Lookups return ErrNotFound when nothing
// matches; Create returns ErrEmailTaken on a duplicate email.
type Repository interface {
	Create(ctx context.Context, u *User) error
	Save(ctx context.Context, u *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	FindByActivationToken(ctx context.Context, token string, now time.Time) (*User, error)
	FindByResetToken(ctx context.Context, token string) (*User, error)
	DeleteByEmail(ctx context.Context, email string) error
	List(ctx context.Context) ([]User, error)
	UpdateRole(ctx context.Context, id, role string) error
}
