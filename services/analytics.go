package services

import (
	"context"

	"github.com/troydota/api.opinion.komodohype.dev/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DistributionFilter struct {
	UserID *primitive.ObjectID
}

type Bucket struct {
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

type OpinionDistribution struct {
	Positive     Bucket `json:"positive"`
	Negative     Bucket `json:"negative"`
	Neutral      Bucket `json:"neutral"`
	Uninterested Bucket `json:"uninterested"`
}

// OpinionDistribution buckets answers on options that shift the opinion, and
// skips, across the polls tagged with every family in keywordFamilyIDs.
func (s *Service) OpinionDistribution(ctx context.Context, opinionID primitive.ObjectID, keywordFamilyIDs []primitive.ObjectID, filter DistributionFilter) (*OpinionDistribution, error) {
	shifts, err := s.store.ListOpinionShifts(ctx, opinionID)
	if err != nil {
		return nil, wrap(err)
	}
	shiftOf := make(map[primitive.ObjectID]models.Shift, len(shifts))
	optionIDs := make([]primitive.ObjectID, 0, len(shifts))
	for _, sh := range shifts {
		if _, ok := shiftOf[sh.OptionID]; !ok {
			optionIDs = append(optionIDs, sh.OptionID)
		}
		shiftOf[sh.OptionID] = sh.Shift
	}

	counts, err := s.store.CountAnswersByOption(ctx, optionIDs, filter.UserID)
	if err != nil {
		return nil, wrap(err)
	}

	answered := make([]primitive.ObjectID, 0, len(counts))
	for id := range counts {
		answered = append(answered, id)
	}
	options, err := s.store.FindOptions(ctx, answered)
	if err != nil {
		return nil, wrap(err)
	}

	pollIDs := make([]primitive.ObjectID, 0, len(options))
	for _, o := range options {
		pollIDs = append(pollIDs, o.PollID)
	}
	kept, err := s.pollsTaggedWith(ctx, pollIDs, keywordFamilyIDs)
	if err != nil {
		return nil, err
	}

	out := &OpinionDistribution{}
	for _, o := range options {
		if !kept[o.PollID] {
			continue
		}
		n := counts[o.ID]
		switch shiftOf[o.ID] {
		case models.ShiftPositive:
			out.Positive.Count += n
		case models.ShiftNegative:
			out.Negative.Count += n
		case models.ShiftNeutral:
			out.Neutral.Count += n
		}
	}

	skips, err := s.store.CountSkipsByPoll(ctx, filter.UserID)
	if err != nil {
		return nil, wrap(err)
	}
	skipped := make([]primitive.ObjectID, 0, len(skips))
	for id := range skips {
		skipped = append(skipped, id)
	}
	keptSkips, err := s.pollsTaggedWith(ctx, skipped, keywordFamilyIDs)
	if err != nil {
		return nil, err
	}
	for id, n := range skips {
		if keptSkips[id] {
			out.Uninterested.Count += n
		}
	}

	total := out.Positive.Count + out.Negative.Count + out.Neutral.Count + out.Uninterested.Count
	if total > 0 {
		for _, b := range []*Bucket{&out.Positive, &out.Negative, &out.Neutral, &out.Uninterested} {
			b.Percentage = float64(b.Count) / float64(total) * 100
		}
	}
	return out, nil
}

// pollsTaggedWith returns the live polls among ids whose family set contains
// all of families.
func (s *Service) pollsTaggedWith(ctx context.Context, ids, families []primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	kept := map[primitive.ObjectID]bool{}
	if len(ids) == 0 {
		return kept, nil
	}
	polls, err := s.store.FindPolls(ctx, ids)
	if err != nil {
		return nil, wrap(err)
	}
	for _, p := range polls {
		if p.HasKeywordFamilies(families) {
			kept[p.ID] = true
		}
	}
	return kept, nil
}
