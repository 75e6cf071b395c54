package mongo

import (
	"context"

	"github.com/troydota/api.opinion.komodohype.dev/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) InsertProposal(ctx context.Context, proposal *models.UserProposedPoll) error {
	return s.insert(ctx, colProposals, proposal)
}

func (s *Store) FindProposal(ctx context.Context, id primitive.ObjectID) (*models.UserProposedPoll, error) {
	return findOne[models.UserProposedPoll](ctx, s.col(colProposals), live(bson.M{"_id": id}), "proposal", id)
}

func (s *Store) ListProposals(ctx context.Context, userID primitive.ObjectID) ([]*models.UserProposedPoll, error) {
	return findMany[models.UserProposedPoll](ctx, s.col(colProposals), live(bson.M{"user_id": userID}))
}

func (s *Store) ApproveProposal(ctx context.Context, id primitive.ObjectID) (*models.UserProposedPoll, error) {
	filter := live(bson.M{"_id": id, "approvalStatus": bson.M{"$ne": models.ApprovalRejected}})
	update := bson.M{"$set": bson.M{"approvalStatus": models.ApprovalApproved, "updatedAt": s.now()}}
	return updateOne[models.UserProposedPoll](ctx, s.col(colProposals), filter, update, "approvable proposal", id)
}

func (s *Store) InsertComment(ctx context.Context, comment *models.Comment) error {
	return s.insert(ctx, colComments, comment)
}

func (s *Store) FindComment(ctx context.Context, id primitive.ObjectID) (*models.Comment, error) {
	return findOne[models.Comment](ctx, s.col(colComments), live(bson.M{"_id": id}), "comment", id)
}

func (s *Store) ListComments(ctx context.Context, pollID primitive.ObjectID) ([]*models.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	return findMany[models.Comment](ctx, s.col(colComments), live(bson.M{"poll_id": pollID}), opts)
}

func (s *Store) FindCommentResponse(ctx context.Context, commentID, userID primitive.ObjectID) (*models.CommentResponse, error) {
	filter := live(bson.M{"comment_id": commentID, "user_id": userID})
	return findOne[models.CommentResponse](ctx, s.col(colCommentResponses), filter, "response on comment", commentID)
}

func (s *Store) InsertCommentResponse(ctx context.Context, response *models.CommentResponse) error {
	return s.insert(ctx, colCommentResponses, response)
}

func (s *Store) SetCommentResponse(ctx context.Context, id primitive.ObjectID, reaction models.Reaction) error {
	res, err := s.col(colCommentResponses).UpdateOne(ctx, live(bson.M{"_id": id}), bson.M{
		"$set": bson.M{"response": reaction, "updatedAt": s.now()},
	})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return notFound("comment response", id)
	}
	return nil
}

func (s *Store) RemoveCommentResponse(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.col(colCommentResponses).DeleteOne(ctx, bson.M{"_id": id})
	return translate(err)
}

func (s *Store) CountCommentResponses(ctx context.Context, commentID primitive.ObjectID) (int64, int64, error) {
	cur, err := s.col(colCommentResponses).Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: live(bson.M{"comment_id": commentID})}},
		{{Key: "$group", Value: bson.M{"_id": "$response", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return 0, 0, translate(err)
	}
	var groups []struct {
		Response models.Reaction `bson:"_id"`
		Count    int64           `bson:"count"`
	}
	if err = cur.All(ctx, &groups); err != nil {
		return 0, 0, translate(err)
	}

	var likes, dislikes int64
	for _, g := range groups {
		switch g.Response {
		case models.ReactionLike:
			likes = g.Count
		case models.ReactionDislike:
			dislikes = g.Count
		}
	}
	return likes, dislikes, nil
}

func (s *Store) InsertEnergyPackage(ctx context.Context, pkg *models.EnergyPackage) error {
	return s.insert(ctx, colEnergyPackages, pkg)
}

func (s *Store) FindEnergyPackage(ctx context.Context, id primitive.ObjectID) (*models.EnergyPackage, error) {
	return findOne[models.EnergyPackage](ctx, s.col(colEnergyPackages), live(bson.M{"_id": id}), "energy package", id)
}

func (s *Store) ListEnergyPackages(ctx context.Context, activeOnly bool) ([]*models.EnergyPackage, error) {
	filter := live(bson.M{})
	if activeOnly {
		filter["isActive"] = true
	}
	return findMany[models.EnergyPackage](ctx, s.col(colEnergyPackages), filter)
}

func (s *Store) SetEnergyPackageActive(ctx context.Context, id primitive.ObjectID, active bool) (*models.EnergyPackage, error) {
	update := bson.M{"$set": bson.M{"isActive": active, "updatedAt": s.now()}}
	return updateOne[models.EnergyPackage](ctx, s.col(colEnergyPackages), live(bson.M{"_id": id}), update, "energy package", id)
}

func (s *Store) InsertTransaction(ctx context.Context, tx *models.Transaction) error {
	return s.insert(ctx, colTransactions, tx)
}
