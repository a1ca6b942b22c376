package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	domain "user-crud-service/internal/domain/user"
	"user-crud-service/internal/usecase/user"
)

// CollectionName is the collection holding user documents.
const CollectionName = "users"

// UserRepoMongo implements the Repository interface on a MongoDB collection.
type UserRepoMongo struct {
	coll *mongo.Collection
	log  *zap.Logger
	now  func() time.Time
}

// NewUserRepoMongo creates a repository over coll.
func NewUserRepoMongo(coll *mongo.Collection, log *zap.Logger) *UserRepoMongo {
	return &UserRepoMongo{
		coll: coll,
		log:  log,
		now: func() time.Time {
			// BSON dates carry millisecond precision
			return time.Now().UTC().Truncate(time.Millisecond)
		},
	}
}

var _ user.Repository = (*UserRepoMongo)(nil)

// userDocument is the stored shape of a user.
type userDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Role      string             `bson:"role"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d *userDocument) toDomain() *domain.User {
	return &domain.User{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Email:     d.Email,
		Role:      d.Role,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// EnsureIndexes creates the unique index on email.
func (r *UserRepoMongo) EnsureIndexes(ctx context.Context) error {
	name, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_1"),
	})
	if err != nil {
		return fmt.Errorf("failed to create email index: %w", err)
	}
	r.log.Info("mongo index ready", zap.String("collection", r.coll.Name()), zap.String("index", name))
	return nil
}

// Create inserts a new user document.
func (r *UserRepoMongo) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	if u == nil {
		return nil, errors.New("user cannot be nil")
	}

	now := r.now()
	doc := userDocument{
		ID:        primitive.NewObjectID(),
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if doc.Role == "" {
		doc.Role = domain.DefaultRole
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			r.log.Warn("duplicate email rejected by mongo", zap.String("email", u.Email))
			return nil, user.ErrDuplicateEmail
		}
		r.log.Error("failed to insert user", zap.Error(err), zap.String("email", u.Email))
		return nil, err
	}

	r.log.Info("user created in mongo", zap.String("id", doc.ID.Hex()))
	return doc.toDomain(), nil
}

// GetByID retrieves a user document by id.
func (r *UserRepoMongo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("cast to ObjectId failed for value %q: %w", id, err)
	}

	var doc userDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			r.log.Debug("user not found", zap.String("id", id))
			return nil, nil
		}
		r.log.Error("failed to find user", zap.Error(err), zap.String("id", id))
		return nil, err
	}

	return doc.toDomain(), nil
}

// GetByEmail retrieves every user document with the given email.
func (r *UserRepoMongo) GetByEmail(ctx context.Context, email string) ([]domain.User, error) {
	cur, err := r.coll.Find(ctx, bson.M{"email": email})
	if err != nil {
		r.log.Error("failed to find users by email", zap.Error(err), zap.String("email", email))
		return nil, err
	}

	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		r.log.Error("failed to decode users by email", zap.Error(err), zap.String("email", email))
		return nil, err
	}

	users := make([]domain.User, len(docs))
	for i := range docs {
		users[i] = *docs[i].toDomain()
	}
	return users, nil
}

// Update applies patch with $set and returns the post-update document.
func (r *UserRepoMongo) Update(ctx context.Context, id string, patch domain.Patch) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("cast to ObjectId failed for value %q: %w", id, err)
	}

	set := bson.D{{Key: "updatedAt", Value: r.now()}}
	if patch.Name != nil {
		set = append(set, bson.E{Key: "name", Value: *patch.Name})
	}
	if patch.Email != nil {
		set = append(set, bson.E{Key: "email", Value: *patch.Email})
	}
	if patch.Role != nil {
		set = append(set, bson.E{Key: "role", Value: *patch.Role})
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc userDocument
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.D{{Key: "$set", Value: set}}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			r.log.Debug("user not found for update", zap.String("id", id))
			return nil, nil
		}
		if mongo.IsDuplicateKeyError(err) {
			r.log.Warn("duplicate email rejected by mongo", zap.String("id", id))
			return nil, user.ErrDuplicateEmail
		}
		r.log.Error("failed to update user", zap.Error(err), zap.String("id", id))
		return nil, err
	}

	r.log.Info("user updated in mongo", zap.String("id", id))
	return doc.toDomain(), nil
}

// Delete removes a user document and returns its prior state.
func (r *UserRepoMongo) Delete(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("cast to ObjectId failed for value %q: %w", id, err)
	}

	var doc userDocument
	if err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			r.log.Debug("user not found for delete", zap.String("id", id))
			return nil, nil
		}
		r.log.Error("failed to delete user", zap.Error(err), zap.String("id", id))
		return nil, err
	}

	r.log.Info("user deleted in mongo", zap.String("id", id))
	return doc.toDomain(), nil
}
