// Package mongodb implements the credential and listing stores on MongoDB.
package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/BigBr41n/Dz-Stores-Finder/internal/domain/user"
)

const (
	usersCollection  = "users"
	storesCollection = "stores"
)

type UserRepo struct {
	c      *mongo.Collection
	hasher user.PasswordHasher
	now    func() time.Time
}

func NewUserRepo(db *mongo.Database, hasher user.PasswordHasher) *UserRepo {
	return &UserRepo{c: db.Collection(usersCollection), hasher: hasher, now: time.Now}
}

// EnsureIndexes creates the unique email index and the token lookup indexes.
func (r *UserRepo) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("idx_users_email").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "activationToken", Value: 1}},
			Options: options.Index().SetName("idx_users_activation_token"),
		},
		{
			Keys:    bson.D{{Key: "changePassToken", Value: 1}},
			Options: options.Index().SetName("idx_users_change_pass_token"),
		},
	}
	_, err := r.c.Indexes().CreateMany(ctx, indexes)
	return err
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
	if u.RatedStores == nil {
		u.RatedStores = []string{}
	}
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := r.c.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user.ErrEmailTaken
		}
		return err
	}
	return nil
}

// Save sets every field except ratedStores, which only Rate appends to.
func (r *UserRepo) Save(ctx context.Context, u *user.User) error {
	now := r.now().UTC()
	if err := user.PreparePassword(u, r.hasher, now); err != nil {
		return err
	}
	u.UpdatedAt = now

	set := bson.M{
		"name":                   u.Name,
		"email":                  user.NormalizeEmail(u.Email),
		"password":               u.PasswordHash,
		"role":                   u.Role,
		"verified":               u.Verified,
		"activationToken":        u.ActivationToken,
		"activeExpires":          u.ActiveExpires,
		"changePassToken":        u.ChangePassToken,
		"changePassTokenExpires": u.ChangePassTokenExpires,
		"updatedAt":              u.UpdatedAt,
	}
	if u.PasswordChangedAt != nil {
		set["passwordChangedAt"] = *u.PasswordChangedAt
	}

	res, err := r.c.UpdateOne(ctx, bson.M{"_id": u.ID}, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user.ErrEmailTaken
		}
		return err
	}
	if res.MatchedCount == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.one(ctx, bson.M{"email": user.NormalizeEmail(email)})
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*user.User, error) {
	return r.one(ctx, bson.M{"_id": id})
}

func (r *UserRepo) FindByActivationToken(ctx context.Context, token string, now time.Time) (*user.User, error) {
	if token == "" {
		return nil, user.ErrNotFound
	}
	return r.one(ctx, bson.M{
		"activationToken": token,
		"activeExpires":   bson.M{"$gt": now.UnixMilli()},
	})
}

func (r *UserRepo) FindByResetToken(ctx context.Context, token string) (*user.User, error) {
	if token == "" {
		return nil, user.ErrNotFound
	}
	return r.one(ctx, bson.M{"changePassToken": token})
}

func (r *UserRepo) DeleteByEmail(ctx context.Context, email string) error {
	res, err := r.c.DeleteOne(ctx, bson.M{"email": user.NormalizeEmail(email)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UserRepo) List(ctx context.Context) ([]user.User, error) {
	cur, err := r.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	users := []user.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepo) UpdateRole(ctx context.Context, id, role string) error {
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"role":      role,
		"updatedAt": r.now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UserRepo) one(ctx context.Context, filter bson.M) (*user.User, error) {
	var u user.User
	if err := r.c.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}
	if u.RatedStores == nil {
		u.RatedStores = []string{}
	}
	return &u, nil
}
