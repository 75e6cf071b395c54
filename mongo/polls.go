package mongo

import (
	"context"

	"github.com/troydota/api.opinion.komodohype.dev/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) InsertPoll(ctx context.Context, poll *models.Poll) error {
	if poll.KeywordFamilies == nil {
		poll.KeywordFamilies = []primitive.ObjectID{}
	}
	return s.insert(ctx, colPolls, poll)
}

func (s *Store) FindPoll(ctx context.Context, id primitive.ObjectID) (*models.Poll, error) {
	return findOne[models.Poll](ctx, s.col(colPolls), live(bson.M{"_id": id}), "poll", id)
}

func (s *Store) FindPolls(ctx context.Context, ids []primitive.ObjectID) ([]*models.Poll, error) {
	return findMany[models.Poll](ctx, s.col(colPolls), live(bson.M{"_id": bson.M{"$in": nonNil(ids)}}))
}

func (s *Store) ListPolls(ctx context.Context) ([]*models.Poll, error) {
	return findMany[models.Poll](ctx, s.col(colPolls), live(bson.M{}))
}

func (s *Store) CountPolls(ctx context.Context) (int64, error) {
	n, err := s.col(colPolls).CountDocuments(ctx, live(bson.M{}))
	return n, translate(err)
}

func (s *Store) CandidatePollIDs(ctx context.Context, exclude []primitive.ObjectID, limit int) ([]primitive.ObjectID, error) {
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return s.ids(ctx, colPolls, live(bson.M{"_id": bson.M{"$nin": nonNil(exclude)}}), opts)
}

func (s *Store) DeductPollCoins(ctx context.Context, id primitive.ObjectID, amount int) (*models.Poll, error) {
	filter := live(bson.M{"_id": id, "coins_remaining": bson.M{"$gte": amount}})
	update := bson.M{
		"$inc": bson.M{"coins_remaining": -amount},
		"$set": bson.M{"updatedAt": s.now()},
	}
	return updateOne[models.Poll](ctx, s.col(colPolls), filter, update, "poll with enough coins remaining", id)
}

func (s *Store) SetPollKeywordFamilies(ctx context.Context, id primitive.ObjectID, families []primitive.ObjectID) error {
	res, err := s.col(colPolls).UpdateOne(ctx, live(bson.M{"_id": id}), bson.M{
		"$set": bson.M{"keywordFamilies": nonNil(families), "updatedAt": s.now()},
	})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return notFound("poll", id)
	}
	return nil
}

func (s *Store) InsertOption(ctx context.Context, option *models.Option) error {
	return s.insert(ctx, colOptions, option)
}

func (s *Store) FindOption(ctx context.Context, id primitive.ObjectID) (*models.Option, error) {
	return findOne[models.Option](ctx, s.col(colOptions), live(bson.M{"_id": id}), "option", id)
}

func (s *Store) FindOptions(ctx context.Context, ids []primitive.ObjectID) ([]*models.Option, error) {
	return findMany[models.Option](ctx, s.col(colOptions), live(bson.M{"_id": bson.M{"$in": nonNil(ids)}}))
}

func (s *Store) ListOptions(ctx context.Context, pollID primitive.ObjectID) ([]*models.Option, error) {
	return findMany[models.Option](ctx, s.col(colOptions), live(bson.M{"_poll_id": pollID}))
}

func (s *Store) InsertOpinionShift(ctx context.Context, shift *models.OptionOpinionShift) error {
	return s.insert(ctx, colShifts, shift)
}

func (s *Store) ListOpinionShifts(ctx context.Context, opinionID primitive.ObjectID) ([]*models.OptionOpinionShift, error) {
	return findMany[models.OptionOpinionShift](ctx, s.col(colShifts), live(bson.M{"opinion_id": opinionID}))
}

func (s *Store) InsertOpinion(ctx context.Context, opinion *models.Opinion) error {
	return s.insert(ctx, colOpinions, opinion)
}

func (s *Store) FindOpinion(ctx context.Context, id primitive.ObjectID) (*models.Opinion, error) {
	return findOne[models.Opinion](ctx, s.col(colOpinions), live(bson.M{"_id": id}), "opinion", id)
}

func (s *Store) InsertKeyword(ctx context.Context, keyword *models.Keyword) error {
	return s.insert(ctx, colKeywords, keyword)
}

func (s *Store) FindKeywords(ctx context.Context, ids []primitive.ObjectID) ([]*models.Keyword, error) {
	return findMany[models.Keyword](ctx, s.col(colKeywords), live(bson.M{"_id": bson.M{"$in": nonNil(ids)}}))
}

func (s *Store) InsertPollKeyword(ctx context.Context, link *models.PollKeyword) error {
	return s.insert(ctx, colPollKeywords, link)
}

func (s *Store) FindPollKeyword(ctx context.Context, pollID, keywordID primitive.ObjectID) (*models.PollKeyword, error) {
	filter := live(bson.M{"poll_id": pollID, "keyword_id": keywordID})
	return findOne[models.PollKeyword](ctx, s.col(colPollKeywords), filter, "poll keyword for poll", pollID)
}

func (s *Store) ListPollKeywords(ctx context.Context, pollID primitive.ObjectID) ([]*models.PollKeyword, error) {
	return findMany[models.PollKeyword](ctx, s.col(colPollKeywords), live(bson.M{"poll_id": pollID}))
}

func (s *Store) PollIDsForKeyword(ctx context.Context, keywordID primitive.ObjectID) ([]primitive.ObjectID, error) {
	links, err := findMany[models.PollKeyword](ctx, s.col(colPollKeywords), live(bson.M{"keyword_id": keywordID}))
	if err != nil {
		return nil, err
	}
	out := make([]primitive.ObjectID, len(links))
	for i, l := range links {
		out[i] = l.PollID
	}
	return out, nil
}
