package mongo

import (
	"context"

	"github.com/troydota/api.opinion.komodohype.dev/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func (s *Store) InsertUser(ctx context.Context, user *models.User) error {
	return s.insert(ctx, colUsers, user)
}

func (s *Store) FindUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return findOne[models.User](ctx, s.col(colUsers), live(bson.M{"_id": id}), "user", id)
}

func (s *Store) FindUserAny(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return findOne[models.User](ctx, s.col(colUsers), bson.M{"_id": id}, "user", id)
}

func (s *Store) FindUsers(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error) {
	users, err := findMany[models.User](ctx, s.col(colUsers), live(bson.M{"_id": bson.M{"$in": nonNil(ids)}}))
	if err != nil {
		return nil, err
	}
	out := make(map[primitive.ObjectID]*models.User, len(users))
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (s *Store) LiveUserIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	return s.ids(ctx, colUsers, live(bson.M{}))
}

func (s *Store) AdjustUserBalance(ctx context.Context, id primitive.ObjectID, coins, energy int) (*models.User, error) {
	filter := live(bson.M{
		"_id":    id,
		"coins":  bson.M{"$gte": -coins},
		"energy": bson.M{"$gte": -energy},
	})
	update := bson.M{
		"$inc": bson.M{"coins": coins, "energy": energy},
		"$set": bson.M{"updatedAt": s.now()},
	}
	return updateOne[models.User](ctx, s.col(colUsers), filter, update, "user with sufficient balance", id)
}

func (s *Store) UserStats(ctx context.Context) (*models.UserStats, error) {
	cur, err := s.col(colUsers).Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: live(bson.M{})}},
		{{Key: "$group", Value: bson.M{
			"_id":    "$level",
			"count":  bson.M{"$sum": 1},
			"coins":  bson.M{"$sum": "$coins"},
			"energy": bson.M{"$sum": "$energy"},
		}}},
	})
	if err != nil {
		return nil, translate(err)
	}

	var groups []struct {
		Level  int   `bson:"_id"`
		Count  int64 `bson:"count"`
		Coins  int64 `bson:"coins"`
		Energy int64 `bson:"energy"`
	}
	if err = cur.All(ctx, &groups); err != nil {
		return nil, translate(err)
	}

	stats := &models.UserStats{LevelCounts: map[int]int64{}}
	for _, g := range groups {
		stats.Count += g.Count
		stats.LevelCounts[g.Level] = g.Count
		stats.TotalCoins += g.Coins
		stats.TotalEnergy += g.Energy
	}
	return stats, nil
}
