package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type Comment struct {
	Base    `bson:",inline"`
	PollID  primitive.ObjectID `json:"poll_id" bson:"poll_id"`
	UserID  primitive.ObjectID `json:"user_id" bson:"user_id"`
	Comment *string            `json:"comment" bson:"comment"`
	GifURL  *string            `json:"gif_url" bson:"gifUrl"`
}

type Reaction string

const (
	ReactionLike    Reaction = "like"
	ReactionDislike Reaction = "dislike"
)

type CommentResponse struct {
	Base      `bson:",inline"`
	CommentID primitive.ObjectID `json:"comment_id" bson:"comment_id"`
	UserID    primitive.ObjectID `json:"user_id" bson:"user_id"`
	Response  Reaction           `json:"response" bson:"response"`
}
