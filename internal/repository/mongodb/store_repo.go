package mongodb

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/BigBr41n/Dz-Stores-Finder/internal/domain/store"
	"github.com/BigBr41n/Dz-Stores-Finder/internal/domain/user"
)

type StoreRepo struct {
	c     *mongo.Collection
	users *mongo.Collection
	now   func() time.Time
}

func NewStoreRepo(db *mongo.Database) *StoreRepo {
	return &StoreRepo{
		c:     db.Collection(storesCollection),
		users: db.Collection(usersCollection),
		now:   time.Now,
	}
}

func (r *StoreRepo) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "storeOwner", Value: 1}},
			Options: options.Index().SetName("idx_stores_owner"),
		},
		{
			Keys:    bson.D{{Key: "wilaya", Value: 1}},
			Options: options.Index().SetName("idx_stores_wilaya"),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: 1}},
			Options: options.Index().SetName("idx_stores_created"),
		},
	}
	_, err := r.c.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *StoreRepo) Create(ctx context.Context, s *store.Store) error {
	now := r.now().UTC()
	s.ID = uuid.NewString()
	s.CreatedAt = now
	s.UpdatedAt = now
	if s.Keywords == nil {
		s.Keywords = []string{}
	}
	if s.SocialMediaLinks == nil {
		s.SocialMediaLinks = []store.SocialLink{}
	}
	if _, err := r.c.InsertOne(ctx, s); err != nil {
		s.ID = ""
		return err
	}
	return nil
}

func (r *StoreRepo) GetByID(ctx context.Context, id string) (*store.Store, error) {
	var s store.Store
	if err := r.c.FindOne(ctx, bson.M{"_id": id}).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func containsRegex(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

func buildFilter(f store.Filter) bson.M {
	filter := bson.M{}
	if f.OwnerID != "" {
		filter["storeOwner"] = f.OwnerID
	}
	if f.Wilaya != "" {
		filter["wilaya"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(f.Wilaya) + "$", Options: "i"}
	}
	if f.Name != "" {
		filter["storeName"] = containsRegex(f.Name)
	}
	if len(f.Terms) > 0 {
		or := bson.A{}
		for _, term := range f.Terms {
			re := containsRegex(term)
			or = append(or, bson.M{"keywords": re}, bson.M{"description": re})
		}
		filter["$or"] = or
	}
	return filter
}

func (r *StoreRepo) Find(ctx context.Context, f store.Filter) ([]store.Store, error) {
	cur, err := r.c.Find(ctx, buildFilter(f), options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	stores := []store.Store{}
	if err := cur.All(ctx, &stores); err != nil {
		return nil, err
	}
	return stores, nil
}

func (r *StoreRepo) Update(ctx context.Context, s *store.Store) error {
	now := r.now().UTC()
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": s.ID}, bson.M{"$set": bson.M{
		"storeName":        s.Name,
		"storeType":        s.Type,
		"wilaya":           s.Wilaya,
		"city":             s.City,
		"longitude":        s.Longitude,
		"latitude":         s.Latitude,
		"phone":            s.Phone,
		"email":            s.Email,
		"website":          s.Website,
		"socialMediaLinks": s.SocialMediaLinks,
		"description":      s.Description,
		"keywords":         s.Keywords,
		"updatedAt":        now,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	s.UpdatedAt = now
	return nil
}

// Delete removes the store and drops it from every rater's set.
func (r *StoreRepo) Delete(ctx context.Context, id string) error {
	res, err := r.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	_, err = r.users.UpdateMany(ctx, bson.M{"ratedStores": id}, bson.M{"$pull": bson.M{"ratedStores": id}})
	return err
}

func (r *StoreRepo) SetLogo(ctx context.Context, id, filename string) error {
	return r.set(ctx, id, bson.M{"storeLogo": filename})
}

func (r *StoreRepo) SetVerified(ctx context.Context, id string, verified bool) error {
	return r.set(ctx, id, bson.M{"verified": verified})
}

func (r *StoreRepo) set(ctx context.Context, id string, fields bson.M) error {
	fields["updatedAt"] = r.now().UTC()
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Rate claims the (user, store) pair with a conditional $addToSet on the
// user document, then bumps the store counters. The claim is released if
// the store update fails.
func (r *StoreRepo) Rate(ctx context.Context, storeID, userID string, value int) error {
	claim, err := r.users.UpdateOne(ctx,
		bson.M{"_id": userID, "ratedStores": bson.M{"$ne": storeID}},
		bson.M{"$addToSet": bson.M{"ratedStores": storeID}},
	)
	if err != nil {
		return err
	}
	if claim.MatchedCount == 0 {
		n, err := r.users.CountDocuments(ctx, bson.M{"_id": userID})
		if err != nil {
			return err
		}
		if n == 0 {
			return user.ErrNotFound
		}
		return store.ErrAlreadyRated
	}

	res, err := r.c.UpdateOne(ctx, bson.M{"_id": storeID}, bson.M{
		"$inc": bson.M{"rating": 1, "ratingSum": value},
		"$set": bson.M{"updatedAt": r.now().UTC()},
	})
	if err == nil && res.MatchedCount == 0 {
		err = store.ErrNotFound
	}
	if err != nil {
		if _, undoErr := r.users.UpdateOne(ctx, bson.M{"_id": userID},
			bson.M{"$pull": bson.M{"ratedStores": storeID}}); undoErr != nil {
			return errors.Join(err, undoErr)
		}
		return err
	}
	return nil
}
