package mongo

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/troydota/api.opinion.komodohype.dev/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	log "github.com/sirupsen/logrus"
)

const (
	colUsers            = "users"
	colPolls            = "polls"
	colOptions          = "options"
	colShifts           = "optionopinionshifts"
	colOpinions         = "opinions"
	colInteractions     = "interactions"
	colKeywords         = "keywords"
	colPollKeywords     = "pollkeywords"
	colWeights          = "userkeywordfamilyweights"
	colProposals        = "userproposedpolls"
	colComments         = "comments"
	colCommentResponses = "commentresponses"
	colEnergyPackages   = "energypackages"
	colTransactions     = "transactions"
)

var collections = map[store.Entity]string{
	store.EntityUser:                    colUsers,
	store.EntityPoll:                    colPolls,
	store.EntityOption:                  colOptions,
	store.EntityOptionOpinionShift:      colShifts,
	store.EntityOpinion:                 colOpinions,
	store.EntityInteraction:             colInteractions,
	store.EntityKeyword:                 colKeywords,
	store.EntityPollKeyword:             colPollKeywords,
	store.EntityUserKeywordFamilyWeight: colWeights,
	store.EntityUserProposedPoll:        colProposals,
	store.EntityComment:                 colComments,
	store.EntityCommentResponse:         colCommentResponses,
	store.EntityEnergyPackage:           colEnergyPackages,
	store.EntityTransaction:             colTransactions,
}

// liveOnly restricts a unique index to documents that are not archived, so an
// archived row never blocks a new one.
var liveOnly = bson.M{"archivedAt": bson.M{"$type": "null"}}

func uniqueLive(keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{
		Keys:    keys,
		Options: options.Index().SetUnique(true).SetPartialFilterExpression(liveOnly),
	}
}

var indexes = map[string][]mongo.IndexModel{
	colUsers: {
		uniqueLive(bson.D{{Key: "name", Value: 1}}),
		uniqueLive(bson.D{{Key: "email", Value: 1}}),
	},
	colPolls: {
		{Keys: bson.D{{Key: "archivedAt", Value: 1}}},
	},
	colOptions: {
		uniqueLive(bson.D{{Key: "_poll_id", Value: 1}, {Key: "value", Value: 1}}),
	},
	colShifts: {
		uniqueLive(bson.D{{Key: "option_id", Value: 1}, {Key: "opinion_id", Value: 1}}),
		{Keys: bson.D{{Key: "opinion_id", Value: 1}}},
	},
	colInteractions: {
		uniqueLive(bson.D{{Key: "user_id", Value: 1}, {Key: "poll_id", Value: 1}}),
		{Keys: bson.D{{Key: "poll_id", Value: 1}}},
		{Keys: bson.D{{Key: "option_id", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: 1}}},
	},
	colKeywords: {
		uniqueLive(bson.D{{Key: "keywordFamily_id", Value: 1}, {Key: "value", Value: 1}}),
	},
	colPollKeywords: {
		uniqueLive(bson.D{{Key: "poll_id", Value: 1}, {Key: "keyword_id", Value: 1}}),
		{Keys: bson.D{{Key: "keyword_id", Value: 1}}},
	},
	colWeights: {
		uniqueLive(bson.D{{Key: "user_id", Value: 1}, {Key: "keyword_family_id", Value: 1}}),
	},
	colProposals: {
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
	},
	colComments: {
		{Keys: bson.D{{Key: "poll_id", Value: 1}, {Key: "createdAt", Value: -1}}},
	},
	colCommentResponses: {
		uniqueLive(bson.D{{Key: "comment_id", Value: 1}, {Key: "user_id", Value: 1}}),
	},
	colTransactions: {
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "resource.package", Value: 1}}},
	},
}

// Connect dials the server, checks it answers and makes sure the indexes
// exist.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	db := client.Database(database)
	for name, models := range indexes {
		if _, err = db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			log.Errorf("mongodb, collection=%s err=%v", name, err)
			_ = client.Disconnect(ctx)
			return nil, err
		}
	}

	return &Store{client: client, db: db, now: time.Now}, nil
}

// translate maps driver errors onto the store sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return errors.Wrap(store.ErrNotFound, err.Error())
	}
	if mongo.IsDuplicateKeyError(err) {
		return errors.Wrap(store.ErrDuplicate, err.Error())
	}
	var se mongo.ServerError
	if errors.As(err, &se) && (se.HasErrorLabel("TransientTransactionError") || se.HasErrorLabel("UnknownTransactionCommitResult")) {
		return errors.Wrap(store.ErrConflict, err.Error())
	}
	return err
}
