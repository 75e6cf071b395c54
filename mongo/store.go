package mongo

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/troydota/api.opinion.komodohype.dev/models"
	"github.com/troydota/api.opinion.komodohype.dev/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	log "github.com/sirupsen/logrus"
)

var (
	_ store.Store    = (*Store)(nil)
	_ store.Archiver = (*Store)(nil)
)

// Store is the MongoDB store.Store. Inside Transaction the same value is
// handed to the callback; the session travels in the context, so every call
// made with that context joins the transaction.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time
}

func (s *Store) col(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// Transaction runs fn once inside a multi-document transaction. It does not
// retry: a transient failure is reported as store.ErrConflict.
func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context, tx store.Repository) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		// already inside a unit of work
		return fn(ctx, s)
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(context.Background())

	return mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sess.StartTransaction(); err != nil {
			return err
		}
		if err := fn(sc, s); err != nil {
			if abortErr := sess.AbortTransaction(context.Background()); abortErr != nil {
				log.Errorf("mongo, abort=%v", abortErr)
			}
			return translate(err)
		}
		return translate(sess.CommitTransaction(sc))
	})
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func live(filter bson.M) bson.M {
	filter["archivedAt"] = nil
	return filter
}

type document interface {
	GetBase() *models.Base
}

func (s *Store) insert(ctx context.Context, col string, doc document) error {
	doc.GetBase().Touch(s.now())
	_, err := s.col(col).InsertOne(ctx, doc)
	return translate(err)
}

func findOne[T any](ctx context.Context, c *mongo.Collection, filter bson.M, what string, id primitive.ObjectID) (*T, error) {
	doc := new(T)
	err := c.FindOne(ctx, filter).Decode(doc)
	if err == mongo.ErrNoDocuments {
		return nil, notFound(what, id)
	}
	if err != nil {
		return nil, translate(err)
	}
	return doc, nil
}

func findMany[T any](ctx context.Context, c *mongo.Collection, filter bson.M, opts ...*options.FindOptions) ([]*T, error) {
	cur, err := c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, translate(err)
	}
	var out []*T
	if err = cur.All(ctx, &out); err != nil {
		return nil, translate(err)
	}
	return out, nil
}

// updateOne applies update to the document matching filter and returns it as
// it is after the update.
func updateOne[T any](ctx context.Context, c *mongo.Collection, filter, update bson.M, what string, id primitive.ObjectID) (*T, error) {
	doc := new(T)
	err := c.FindOneAndUpdate(ctx, filter, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(doc)
	if err == mongo.ErrNoDocuments {
		return nil, notFound(what, id)
	}
	if err != nil {
		return nil, translate(err)
	}
	return doc, nil
}

type idDoc struct {
	ID primitive.ObjectID `bson:"_id"`
}

func (s *Store) ids(ctx context.Context, col string, filter bson.M, opts ...*options.FindOptions) ([]primitive.ObjectID, error) {
	opts = append(opts, options.Find().SetProjection(bson.M{"_id": 1}))
	docs, err := findMany[idDoc](ctx, s.col(col), filter, opts...)
	if err != nil {
		return nil, err
	}
	out := make([]primitive.ObjectID, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out, nil
}

type countDoc struct {
	ID    primitive.ObjectID `bson:"_id"`
	Count int64              `bson:"count"`
}

// countBy groups the live documents matching match by field and counts them.
func (s *Store) countBy(ctx context.Context, col string, match bson.M, field string) (map[primitive.ObjectID]int64, error) {
	cur, err := s.col(col).Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: live(match)}},
		{{Key: "$group", Value: bson.M{"_id": "$" + field, "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, translate(err)
	}
	var docs []countDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, translate(err)
	}
	out := make(map[primitive.ObjectID]int64, len(docs))
	for _, d := range docs {
		out[d.ID] = d.Count
	}
	return out, nil
}

func nonNil(ids []primitive.ObjectID) []primitive.ObjectID {
	if ids == nil {
		return []primitive.ObjectID{}
	}
	return ids
}

func notFound(what string, id primitive.ObjectID) error {
	return errors.Wrapf(store.ErrNotFound, "%s %s", what, id.Hex())
}

func (s *Store) Lookup(ctx context.Context, entity store.Entity, id primitive.ObjectID) (bool, bool, error) {
	col, ok := collections[entity]
	if !ok {
		return false, false, errors.Errorf("mongo, unknown entity %q", entity)
	}
	doc := models.Base{}
	err := s.col(col).FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(bson.M{"archivedAt": 1})).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return false, false, nil
	}
	if err != nil {
		return false, false, translate(err)
	}
	return true, doc.Live(), nil
}

func (s *Store) Referencing(ctx context.Context, entity store.Entity, field string, id primitive.ObjectID) ([]primitive.ObjectID, error) {
	col, ok := collections[entity]
	if !ok {
		return nil, errors.Errorf("mongo, unknown entity %q", entity)
	}
	return s.ids(ctx, col, live(bson.M{field: id}))
}

func (s *Store) Archive(ctx context.Context, entity store.Entity, id primitive.ObjectID, at time.Time) error {
	col, ok := collections[entity]
	if !ok {
		return errors.Errorf("mongo, unknown entity %q", entity)
	}
	_, err := s.col(col).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"archivedAt": at, "updatedAt": at}})
	return translate(err)
}

// SoftDelete walks the dependency graph inside a transaction, joining the
// caller's if there is one.
func (s *Store) SoftDelete(ctx context.Context, entity store.Entity, id primitive.ObjectID) error {
	return s.Transaction(ctx, func(ctx context.Context, _ store.Repository) error {
		return store.SoftDelete(ctx, s, entity, id, s.now())
	})
}
