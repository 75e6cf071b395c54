package services

import (
	"context"
	"strings"

	"github.com/troydota/api.opinion.komodohype.dev/models"
	"github.com/troydota/api.opinion.komodohype.dev/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CommentInput struct {
	PollID primitive.ObjectID
	Text   *string
	GifURL *string
}

type CommentView struct {
	*models.Comment
	User     *models.PublicProfile `json:"user"`
	Likes    int64                 `json:"likes"`
	Dislikes int64                 `json:"dislikes"`
}

func present(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

func (s *Service) CreateComment(ctx context.Context, userID primitive.ObjectID, in CommentInput) (*models.Comment, error) {
	if present(in.Text) == present(in.GifURL) {
		return nil, invalid("a comment needs exactly one of text or gif url")
	}
	if present(in.Text) {
		if err := checkText("comment", *in.Text); err != nil {
			return nil, err
		}
	}

	comment := &models.Comment{PollID: in.PollID, UserID: userID, Comment: in.Text, GifURL: in.GifURL}
	err := s.transaction(ctx, "create_comment", func(ctx context.Context, tx store.Repository) error {
		if _, err := tx.FindPoll(ctx, in.PollID); err != nil {
			if isStoreNotFound(err) {
				return notFound("poll %s not found", in.PollID.Hex())
			}
			return err
		}
		if _, err := tx.FindUser(ctx, userID); err != nil {
			if isStoreNotFound(err) {
				return notFound("user %s not found", userID.Hex())
			}
			return err
		}
		return tx.InsertComment(ctx, comment)
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// DeleteComment archives one of the user's own comments with its responses.
func (s *Service) DeleteComment(ctx context.Context, userID, commentID primitive.ObjectID) error {
	return s.transaction(ctx, "delete_comment", func(ctx context.Context, tx store.Repository) error {
		comment, err := tx.FindComment(ctx, commentID)
		if err != nil && !isStoreNotFound(err) {
			return err
		}
		if comment == nil || comment.UserID != userID {
			return notFound("comment %s not found or already archived", commentID.Hex())
		}
		return tx.SoftDelete(ctx, store.EntityComment, commentID)
	})
}

func (s *Service) CommentsByPoll(ctx context.Context, pollID primitive.ObjectID) ([]*CommentView, error) {
	comments, err := s.store.ListComments(ctx, pollID)
	if err != nil {
		return nil, wrap(err)
	}

	authorIDs := make([]primitive.ObjectID, 0, len(comments))
	for _, c := range comments {
		authorIDs = append(authorIDs, c.UserID)
	}
	authors, err := s.store.FindUsers(ctx, authorIDs)
	if err != nil {
		return nil, wrap(err)
	}

	out := make([]*CommentView, 0, len(comments))
	for _, c := range comments {
		view := &CommentView{Comment: c}
		if u, ok := authors[c.UserID]; ok {
			view.User = u.Profile()
		}
		if view.Likes, view.Dislikes, err = s.store.CountCommentResponses(ctx, c.ID); err != nil {
			return nil, wrap(err)
		}
		out = append(out, view)
	}
	return out, nil
}

func (s *Service) ToggleLike(ctx context.Context, userID, commentID primitive.ObjectID) error {
	return s.toggleReaction(ctx, userID, commentID, models.ReactionLike)
}

func (s *Service) ToggleDislike(ctx context.Context, userID, commentID primitive.ObjectID) error {
	return s.toggleReaction(ctx, userID, commentID, models.ReactionDislike)
}

// toggleReaction removes the user's reaction when it already is r, flips it
// when it is the opposite one and records r otherwise.
func (s *Service) toggleReaction(ctx context.Context, userID, commentID primitive.ObjectID, r models.Reaction) error {
	return s.transaction(ctx, "toggle_"+string(r), func(ctx context.Context, tx store.Repository) error {
		if _, err := tx.FindComment(ctx, commentID); err != nil {
			if isStoreNotFound(err) {
				return notFound("comment %s not found", commentID.Hex())
			}
			return err
		}

		existing, err := tx.FindCommentResponse(ctx, commentID, userID)
		switch {
		case err == nil && existing.Response == r:
			return tx.RemoveCommentResponse(ctx, existing.ID)
		case err == nil:
			return tx.SetCommentResponse(ctx, existing.ID, r)
		case isStoreNotFound(err):
			return tx.InsertCommentResponse(ctx, &models.CommentResponse{CommentID: commentID, UserID: userID, Response: r})
		default:
			return err
		}
	})
}
