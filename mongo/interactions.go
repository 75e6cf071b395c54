package mongo

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/troydota/api.opinion.komodohype.dev/models"
	"github.com/troydota/api.opinion.komodohype.dev/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) InsertInteraction(ctx context.Context, interaction *models.Interaction) error {
	return s.insert(ctx, colInteractions, interaction)
}

func (s *Store) FindInteraction(ctx context.Context, userID, pollID primitive.ObjectID) (*models.Interaction, error) {
	filter := live(bson.M{"user_id": userID, "poll_id": pollID})
	return findOne[models.Interaction](ctx, s.col(colInteractions), filter, "interaction on poll", pollID)
}

func (s *Store) AnswerInteraction(ctx context.Context, id, optionID primitive.ObjectID, coins, energy int) (*models.Interaction, error) {
	filter := live(bson.M{"_id": id, "option_id": nil})
	update := bson.M{
		"$set": bson.M{"option_id": optionID, "updatedAt": s.now()},
		"$inc": bson.M{"coinsGained": coins, "energySpent": energy},
	}
	i, err := updateOne[models.Interaction](ctx, s.col(colInteractions), filter, update, "interaction", id)
	if !errors.Is(err, store.ErrNotFound) {
		return i, err
	}

	found, isLive, lerr := s.Lookup(ctx, store.EntityInteraction, id)
	if lerr != nil {
		return nil, lerr
	}
	if found && isLive {
		return nil, errors.Wrapf(store.ErrConflict, "interaction %s already answered", id.Hex())
	}
	return nil, err
}

func (s *Store) InteractedPollIDs(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	opts := options.Find().SetProjection(bson.M{"poll_id": 1})
	interactions, err := findMany[models.Interaction](ctx, s.col(colInteractions), live(bson.M{"user_id": userID}), opts)
	if err != nil {
		return nil, err
	}
	out := make([]primitive.ObjectID, len(interactions))
	for i, in := range interactions {
		out[i] = in.PollID
	}
	return out, nil
}

func (s *Store) CountAnswersByOption(ctx context.Context, optionIDs []primitive.ObjectID, userID *primitive.ObjectID) (map[primitive.ObjectID]int64, error) {
	match := bson.M{"option_id": bson.M{"$in": nonNil(optionIDs)}}
	if userID != nil {
		match["user_id"] = *userID
	}
	return s.countBy(ctx, colInteractions, match, "option_id")
}

func (s *Store) CountSkipsByPoll(ctx context.Context, userID *primitive.ObjectID) (map[primitive.ObjectID]int64, error) {
	match := bson.M{"option_id": nil}
	if userID != nil {
		match["user_id"] = *userID
	}
	return s.countBy(ctx, colInteractions, match, "poll_id")
}

func (s *Store) CountSkipsBetween(ctx context.Context, from, to time.Time) (int64, error) {
	n, err := s.col(colInteractions).CountDocuments(ctx, live(bson.M{
		"option_id": nil,
		"createdAt": bson.M{"$gte": from, "$lte": to},
	}))
	return n, translate(err)
}

// upsertWeight applies update to the live (user, family) weight, creating it
// at zero first when there is none.
func (s *Store) upsertWeight(ctx context.Context, userID, familyID primitive.ObjectID, update bson.M) (*models.UserKeywordFamilyWeight, error) {
	now := s.now()
	set, _ := update["$set"].(bson.M)
	if set == nil {
		set = bson.M{}
	}
	set["updatedAt"] = now
	update["$set"] = set
	update["$setOnInsert"] = bson.M{"createdAt": now}

	filter := live(bson.M{"user_id": userID, "keyword_family_id": familyID})
	doc := &models.UserKeywordFamilyWeight{}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	if err := s.col(colWeights).FindOneAndUpdate(ctx, filter, update, opts).Decode(doc); err != nil {
		return nil, translate(err)
	}
	return doc, nil
}

func (s *Store) IncrementWeight(ctx context.Context, userID, familyID primitive.ObjectID, by int) (*models.UserKeywordFamilyWeight, error) {
	return s.upsertWeight(ctx, userID, familyID, bson.M{"$inc": bson.M{"weight": by}})
}

func (s *Store) SetWeight(ctx context.Context, userID, familyID primitive.ObjectID, weight int) (*models.UserKeywordFamilyWeight, error) {
	return s.upsertWeight(ctx, userID, familyID, bson.M{"$set": bson.M{"weight": weight}})
}

func (s *Store) FindWeight(ctx context.Context, userID, familyID primitive.ObjectID) (*models.UserKeywordFamilyWeight, error) {
	filter := live(bson.M{"user_id": userID, "keyword_family_id": familyID})
	return findOne[models.UserKeywordFamilyWeight](ctx, s.col(colWeights), filter, "weight for keyword family", familyID)
}

func (s *Store) ListWeights(ctx context.Context, userID primitive.ObjectID) ([]*models.UserKeywordFamilyWeight, error) {
	return findMany[models.UserKeywordFamilyWeight](ctx, s.col(colWeights), live(bson.M{"user_id": userID}))
}
