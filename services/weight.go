package services

import (
	"context"

	"github.com/troydota/api.opinion.komodohype.dev/models"
	"github.com/troydota/api.opinion.komodohype.dev/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (s *Service) Weights(ctx context.Context, userID primitive.ObjectID) ([]*models.UserKeywordFamilyWeight, error) {
	weights, err := s.store.ListWeights(ctx, userID)
	return weights, wrap(err)
}

func (s *Service) IncrementWeight(ctx context.Context, userID, familyID primitive.ObjectID, by int) (*models.UserKeywordFamilyWeight, error) {
	if by < 1 {
		return nil, invalid("increment must be at least 1")
	}
	w, err := s.store.IncrementWeight(ctx, userID, familyID, by)
	return w, wrap(err)
}

// decrementWeight lowers the weight by by, never below zero, creating it at
// zero when missing.
func decrementWeight(ctx context.Context, tx store.Repository, userID, familyID primitive.ObjectID, by int) (*models.UserKeywordFamilyWeight, error) {
	current := 0
	w, err := tx.FindWeight(ctx, userID, familyID)
	switch {
	case err == nil:
		current = w.Weight
	case !isStoreNotFound(err):
		return nil, err
	}
	next := current - by
	if next < 0 {
		next = 0
	}
	return tx.SetWeight(ctx, userID, familyID, next)
}

func (s *Service) DecrementWeight(ctx context.Context, userID, familyID primitive.ObjectID, by int) (*models.UserKeywordFamilyWeight, error) {
	if by < 1 {
		return nil, invalid("decrement must be at least 1")
	}
	var w *models.UserKeywordFamilyWeight
	err := s.transaction(ctx, "decrement_weight", func(ctx context.Context, tx store.Repository) error {
		var err error
		w, err = decrementWeight(ctx, tx, userID, familyID, by)
		return err
	})
	return w, err
}

func (s *Service) SetWeight(ctx context.Context, userID, familyID primitive.ObjectID, weight int) (*models.UserKeywordFamilyWeight, error) {
	if weight < 0 {
		return nil, invalid("weight must be greater than or equal to 0")
	}
	w, err := s.store.SetWeight(ctx, userID, familyID, weight)
	return w, wrap(err)
}

// forAllUsers applies fn to every live user in one unit of work.
func (s *Service) forAllUsers(ctx context.Context, operation string, fn func(ctx context.Context, tx store.Repository, userID primitive.ObjectID) error) error {
	return s.transaction(ctx, operation, func(ctx context.Context, tx store.Repository) error {
		users, err := tx.LiveUserIDs(ctx)
		if err != nil {
			return err
		}
		for _, u := range users {
			if err = fn(ctx, tx, u); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) BoostWeightForAllUsers(ctx context.Context, familyID primitive.ObjectID, by int) error {
	if by < 1 {
		return invalid("boost must be at least 1")
	}
	return s.forAllUsers(ctx, "boost_weights", func(ctx context.Context, tx store.Repository, userID primitive.ObjectID) error {
		_, err := tx.IncrementWeight(ctx, userID, familyID, by)
		return err
	})
}

func (s *Service) UnboostWeightForAllUsers(ctx context.Context, familyID primitive.ObjectID, by int) error {
	if by < 1 {
		return invalid("unboost must be at least 1")
	}
	return s.forAllUsers(ctx, "unboost_weights", func(ctx context.Context, tx store.Repository, userID primitive.ObjectID) error {
		_, err := decrementWeight(ctx, tx, userID, familyID, by)
		return err
	})
}

func (s *Service) SetWeightForAllUsers(ctx context.Context, familyID primitive.ObjectID, weight int) error {
	if weight < 0 {
		return invalid("weight must be greater than or equal to 0")
	}
	return s.forAllUsers(ctx, "set_weights", func(ctx context.Context, tx store.Repository, userID primitive.ObjectID) error {
		_, err := tx.SetWeight(ctx, userID, familyID, weight)
		return err
	})
}
