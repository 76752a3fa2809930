// Package mongo implementa AccountRepository sobre MongoDB, el store nativo
// de GigLink.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/oscarho2/giglink-identity/internal/store"
)

const accountCollection = "accounts"

type accountDoc struct {
	ID              bson.ObjectID `bson:"_id,omitempty"`
	Email           string        `bson:"email"`
	PasswordHash    *string       `bson:"password_hash,omitempty"`
	LinkedProviders []string      `bson:"linked_providers"`
	DisplayName     string        `bson:"display_name,omitempty"`
	EmailVerified   bool          `bson:"email_verified"`
	CreatedAt       time.Time     `bson:"created_at"`
}

func (d *accountDoc) toAccount() *store.Account {
	return &store.Account{
		ID:              d.ID.Hex(),
		Email:           d.Email,
		PasswordHash:    d.PasswordHash,
		LinkedProviders: append([]string{}, d.LinkedProviders...),
		DisplayName:     d.DisplayName,
		EmailVerified:   d.EmailVerified,
		CreatedAt:       d.CreatedAt,
	}
}

type Repo struct {
	client *mongo.Client
	db     *mongo.Database
}

// New conecta al deployment y asegura el índice único de email.
// El email se guarda siempre lowercased, así el índice único plano alcanza
// para la unicidad case-insensitive.
func New(ctx context.Context, uri, database string) (*Repo, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	db := client.Database(database)

	_, err = db.Collection(accountCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ensure indexes: %w", err)
	}
	return &Repo{client: client, db: db}, nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*store.Account, error) {
	var doc accountDoc
	err := r.db.Collection(accountCollection).
		FindOne(ctx, bson.M{"email": store.NormalizeEmail(email)}).
		Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return doc.toAccount(), nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*store.Account, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, store.ErrNotFound
	}
	var doc accountDoc
	err = r.db.Collection(accountCollection).
		FindOne(ctx, bson.M{"_id": oid}).
		Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return doc.toAccount(), nil
}

func (r *Repo) Create(ctx context.Context, in store.CreateAccountInput) (*store.Account, error) {
	doc := accountDoc{
		Email:           store.NormalizeEmail(in.Email),
		LinkedProviders: in.Providers,
		DisplayName:     in.DisplayName,
		EmailVerified:   in.EmailVerified,
		CreatedAt:       time.Now().UTC(),
	}
	if doc.LinkedProviders == nil {
		doc.LinkedProviders = []string{}
	}
	if in.PasswordHash != "" {
		phc := in.PasswordHash
		doc.PasswordHash = &phc
	}
	res, err := r.db.Collection(accountCollection).InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	oid, ok := res.InsertedID.(bson.ObjectID)
	if !ok {
		return nil, errors.New("mongo: unexpected inserted id type")
	}
	doc.ID = oid
	return doc.toAccount(), nil
}

func (r *Repo) AddProvider(ctx context.Context, accountID, provider string) error {
	oid, err := bson.ObjectIDFromHex(accountID)
	if err != nil {
		return store.ErrNotFound
	}
	res, err := r.db.Collection(accountCollection).UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$addToSet": bson.M{"linked_providers": provider}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *Repo) SetPasswordHash(ctx context.Context, accountID, phc string) error {
	oid, err := bson.ObjectIDFromHex(accountID)
	if err != nil {
		return store.ErrNotFound
	}
	res, err := r.db.Collection(accountCollection).UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"password_hash": phc}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *Repo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

func (r *Repo) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func init() {
	store.Register("mongo", func(ctx context.Context, cfg store.Config) (store.AccountRepository, error) {
		return New(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	})
}
