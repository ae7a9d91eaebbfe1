// internal/store/mongo.go
//
// MongoDB implementation of Store.
// Documents keep the field names of the original mongoose collections
// (users, posts with a "user" ObjectID reference) so existing data loads as-is.
//
// Notes:
//   - Usernames are unique case-insensitively via a strength-2 collation index.
//   - Update/delete use FindOneAndUpdate/FindOneAndDelete on {_id, user}.
//   - Identifiers that are not valid ObjectIDs can never match and yield ErrNotFound.
//   - CreatePost checks the owner exists first; there is no foreign key to do it.

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/edpaging/paging-log/internal/model"
)

var usernameCollation = &options.Collation{Locale: "en", Strength: 2}

type userDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Username  string             `bson:"username"`
	Password  string             `bson:"password"`
	FirstName string             `bson:"firstName,omitempty"`
	LastName  string             `bson:"lastName,omitempty"`
	Location  string             `bson:"location,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"`
}

type postDoc struct {
	ID            primitive.ObjectID `bson:"_id"`
	BedNumber     string             `bson:"bedNumber"`
	ForEdProvider string             `bson:"forEdProvider"`
	ProviderName  string             `bson:"providerName"`
	ProviderGroup string             `bson:"providerGroup"`
	Status        string             `bson:"status"`
	Notes         string             `bson:"notes,omitempty"`
	User          primitive.ObjectID `bson:"user"`
	CreatedAt     time.Time          `bson:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt"`

	// Filled by $lookup on list only.
	Owner []struct {
		Username string `bson:"username"`
	} `bson:"owner,omitempty"`
}

type mongoStore struct {
	client *mongo.Client
	users  *mongo.Collection
	posts  *mongo.Collection
}

// OpenMongo connects to uri, selects database db and ensures indexes.
func OpenMongo(ctx context.Context, uri, db string) (Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	s := &mongoStore{
		client: client,
		users:  client.Database(db).Collection("users"),
		posts:  client.Database(db).Collection("posts"),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *mongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true).SetCollation(usernameCollation).SetName("username_ci"),
	})
	if err != nil {
		return fmt.Errorf("create users index: %w", err)
	}
	_, err = s.posts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}, {Key: "_id", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create posts index: %w", err)
	}
	return nil
}

// ------------------------------- users --------------------------------------

func (s *mongoStore) CreateUser(ctx context.Context, u *model.User) error {
	oid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return fmt.Errorf("user id: %w", err)
	}
	_, err = s.users.InsertOne(ctx, userDoc{
		ID:        oid,
		Username:  u.Username,
		Password:  u.PasswordHash,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Location:  string(u.Location),
		CreatedAt: u.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *mongoStore) UserByID(ctx context.Context, id string) (*model.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.findUser(ctx, bson.D{{Key: "_id", Value: oid}}, options.FindOne())
}

func (s *mongoStore) UserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.findUser(ctx, bson.D{{Key: "username", Value: username}},
		options.FindOne().SetCollation(usernameCollation))
}

func (s *mongoStore) findUser(ctx context.Context, filter bson.D, opts *options.FindOneOptions) (*model.User, error) {
	var d userDoc
	if err := s.users.FindOne(ctx, filter, opts).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &model.User{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		PasswordHash: d.Password,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		Location:     model.Location(d.Location),
		CreatedAt:    d.CreatedAt.UTC(),
	}, nil
}

// ------------------------------- posts --------------------------------------

func (s *mongoStore) ListPosts(ctx context.Context, ownerID string) ([]model.Post, error) {
	out := []model.Post{}
	owner, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return out, nil
	}
	cur, err := s.posts.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "user", Value: owner}}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: -1}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: s.users.Name()},
			{Key: "localField", Value: "user"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "owner"},
		}}},
	})
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	var docs []postDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}

func (s *mongoStore) CreatePost(ctx context.Context, p *model.Post) error {
	oid, err := primitive.ObjectIDFromHex(p.ID)
	if err != nil {
		return fmt.Errorf("post id: %w", err)
	}
	owner, err := primitive.ObjectIDFromHex(p.User.ID)
	if err != nil {
		return ErrUnknownOwner
	}
	n, err := s.users.CountDocuments(ctx, bson.D{{Key: "_id", Value: owner}}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("check owner: %w", err)
	}
	if n == 0 {
		return ErrUnknownOwner
	}
	_, err = s.posts.InsertOne(ctx, postDoc{
		ID:            oid,
		BedNumber:     p.BedNumber,
		ForEdProvider: p.ForEdProvider,
		ProviderName:  p.ProviderName,
		ProviderGroup: p.ProviderGroup,
		Status:        string(p.Status),
		Notes:         p.Notes,
		User:          owner,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (s *mongoStore) UpdatePost(ctx context.Context, id, ownerID string, in model.PostInput) (*model.Post, error) {
	filter, ok := ownerFilter(id, ownerID)
	if !ok {
		return nil, ErrNotFound
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "bedNumber", Value: in.BedNumber},
		{Key: "forEdProvider", Value: in.ForEdProvider},
		{Key: "providerName", Value: in.ProviderName},
		{Key: "providerGroup", Value: in.ProviderGroup},
		{Key: "status", Value: string(in.Status)},
		{Key: "notes", Value: in.Notes},
		{Key: "updatedAt", Value: model.Now()},
	}}}
	var d postDoc
	err := s.posts.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&d)
	return decodedPost(d, err)
}

func (s *mongoStore) DeletePost(ctx context.Context, id, ownerID string) (*model.Post, error) {
	filter, ok := ownerFilter(id, ownerID)
	if !ok {
		return nil, ErrNotFound
	}
	var d postDoc
	err := s.posts.FindOneAndDelete(ctx, filter).Decode(&d)
	return decodedPost(d, err)
}

func (s *mongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *mongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// ownerFilter builds {_id, user}; ok is false when either id is malformed.
func ownerFilter(id, ownerID string) (bson.D, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, false
	}
	owner, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return nil, false
	}
	return bson.D{{Key: "_id", Value: oid}, {Key: "user", Value: owner}}, true
}

func decodedPost(d postDoc, err error) (*model.Post, error) {
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find post: %w", err)
	}
	p := d.toModel()
	return &p, nil
}

func (d postDoc) toModel() model.Post {
	p := model.Post{
		ID:            d.ID.Hex(),
		BedNumber:     d.BedNumber,
		ForEdProvider: d.ForEdProvider,
		ProviderName:  d.ProviderName,
		ProviderGroup: d.ProviderGroup,
		Status:        model.Status(d.Status),
		Notes:         d.Notes,
		User:          model.Owner{ID: d.User.Hex()},
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}
	if len(d.Owner) > 0 {
		p.User.Username = d.Owner[0].Username
	}
	return p
}
