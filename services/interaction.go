package services

import (
	"context"
	"fmt"
	"math"

	"github.com/pkg/errors"
	"github.com/troydota/api.opinion.komodohype.dev/metrics"
	"github.com/troydota/api.opinion.komodohype.dev/models"
	"github.com/troydota/api.opinion.komodohype.dev/store"
	"go.mongodb.org/mongo-driver/bson/primitive"

	log "github.com/sirupsen/logrus"
)

// InteractionInput is a user's response to a poll. A nil OptionID skips the
// poll.
type InteractionInput struct {
	PollID   primitive.ObjectID
	OptionID *primitive.ObjectID
}

type OptionShare struct {
	OptionID   primitive.ObjectID `json:"option_id"`
	Value      string             `json:"value"`
	Count      int64              `json:"count"`
	Percentage float64            `json:"percentage"`
}

const (
	OutcomeSkipped  = "skipped"
	OutcomeAnswered = "answered"
	OutcomeRepeated = "repeated"
)

// InteractionResult is the interaction as stored after the call. Distribution
// is nil for skips.
type InteractionResult struct {
	Interaction  *models.Interaction `json:"interaction"`
	Distribution []OptionShare       `json:"distribution"`
	Outcome      string              `json:"outcome"`
}

func DistributionChannel(pollID primitive.ObjectID) string {
	return fmt.Sprintf("events:poll:distribution:%s", pollID.Hex())
}

// CreateInteraction records the response in one unit of work. After commit
// the poll is marked used in the user's queue and answers are published to
// distribution watchers.
func (s *Service) CreateInteraction(ctx context.Context, userID primitive.ObjectID, in InteractionInput) (*InteractionResult, error) {
	var res *InteractionResult
	err := s.transaction(ctx, "create_interaction", func(ctx context.Context, tx store.Repository) error {
		var err error
		res, err = RecordInteraction(ctx, tx, userID, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.MarkAsUsed(ctx, userID, in.PollID)

	i := res.Interaction
	switch res.Outcome {
	case OutcomeAnswered:
		metrics.ObserveInteraction(res.Outcome, i.CoinsGained, i.EnergySpent)
		s.publishDistribution(ctx, in.PollID, res.Distribution)
	default:
		metrics.ObserveInteraction(res.Outcome, 0, 0)
	}

	return res, nil
}

func (s *Service) publishDistribution(ctx context.Context, pollID primitive.ObjectID, shares []OptionShare) {
	if s.publisher == nil {
		return
	}
	payload, err := json.MarshalToString(shares)
	if err != nil {
		log.Errorf("json, err=%v", err)
		return
	}
	if err = s.publisher.Publish(ctx, DistributionChannel(pollID), payload); err != nil {
		log.Errorf("redis, err=%v", err)
	}
}

// RecordInteraction applies one response against tx. Every write it makes
// belongs to the caller's unit of work, so a failure anywhere leaves no coin,
// energy, interaction or weight change behind once the caller rolls back.
func RecordInteraction(ctx context.Context, tx store.Repository, userID primitive.ObjectID, in InteractionInput) (*InteractionResult, error) {
	poll, err := tx.FindPoll(ctx, in.PollID)
	if err != nil {
		if isStoreNotFound(err) {
			return nil, notFound("poll %s not found or is archived", in.PollID.Hex())
		}
		return nil, err
	}

	user, err := tx.FindUser(ctx, userID)
	if err != nil {
		if isStoreNotFound(err) {
			return nil, notFound("user %s not found or is archived", userID.Hex())
		}
		return nil, err
	}

	if in.OptionID != nil {
		option, err := tx.FindOption(ctx, *in.OptionID)
		if err != nil && !isStoreNotFound(err) {
			return nil, err
		}
		if option == nil || option.PollID != poll.ID {
			return nil, notFound("option %s does not belong to poll %s or is archived", in.OptionID.Hex(), poll.ID.Hex())
		}
	}

	existing, err := tx.FindInteraction(ctx, userID, poll.ID)
	if err != nil && !isStoreNotFound(err) {
		return nil, err
	}

	switch {
	case existing != nil && existing.Answered():
		shares, err := optionDistribution(ctx, tx, poll.ID)
		if err != nil {
			return nil, err
		}
		return &InteractionResult{Interaction: existing, Distribution: shares, Outcome: OutcomeRepeated}, nil

	case in.OptionID == nil && existing != nil:
		return &InteractionResult{Interaction: existing, Outcome: OutcomeRepeated}, nil

	case in.OptionID == nil:
		skip := &models.Interaction{UserID: userID, PollID: poll.ID}
		if err := tx.InsertInteraction(ctx, skip); err != nil {
			return nil, duplicateAsConflict(err)
		}
		return &InteractionResult{Interaction: skip, Outcome: OutcomeSkipped}, nil
	}

	energy := poll.EnergyReducedPerPoll
	if user.Energy < energy {
		return nil, insufficient("insufficient energy to respond to this poll, have %d need %d", user.Energy, energy)
	}
	coins := poll.CoinReward()

	if coins > 0 {
		if _, err := tx.DeductPollCoins(ctx, poll.ID, coins); err != nil {
			if isStoreNotFound(err) {
				return nil, conflict("poll %s coin pool changed, retry", poll.ID.Hex())
			}
			return nil, err
		}
	}

	if _, err := tx.AdjustUserBalance(ctx, userID, coins, -energy); err != nil {
		if isStoreNotFound(err) {
			return nil, conflict("balance of user %s changed, retry", userID.Hex())
		}
		return nil, err
	}

	var interaction *models.Interaction
	if existing != nil {
		interaction, err = tx.AnswerInteraction(ctx, existing.ID, *in.OptionID, coins, energy)
		if err != nil {
			return nil, duplicateAsConflict(err)
		}
	} else {
		interaction = &models.Interaction{
			UserID:      userID,
			PollID:      poll.ID,
			OptionID:    in.OptionID,
			CoinsGained: coins,
			EnergySpent: energy,
		}
		if err := tx.InsertInteraction(ctx, interaction); err != nil {
			return nil, duplicateAsConflict(err)
		}
	}

	for _, family := range poll.KeywordFamilies {
		if _, err := tx.IncrementWeight(ctx, userID, family, 1); err != nil {
			return nil, err
		}
	}

	shares, err := optionDistribution(ctx, tx, poll.ID)
	if err != nil {
		return nil, err
	}
	return &InteractionResult{Interaction: interaction, Distribution: shares, Outcome: OutcomeAnswered}, nil
}

// duplicateAsConflict reports a lost race on the (user, poll) pair as a
// retryable conflict.
func duplicateAsConflict(err error) error {
	if errors.Is(err, store.ErrDuplicate) || errors.Is(err, store.ErrConflict) {
		return &Error{Kind: KindConflict, Message: "interaction was recorded concurrently, retry", Err: err}
	}
	return err
}

// optionDistribution counts live answers per live option of the poll.
func optionDistribution(ctx context.Context, r store.Repository, pollID primitive.ObjectID) ([]OptionShare, error) {
	options, err := r.ListOptions(ctx, pollID)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, len(options))
	for i, o := range options {
		ids[i] = o.ID
	}
	counts, err := r.CountAnswersByOption(ctx, ids, nil)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, id := range ids {
		total += counts[id]
	}

	shares := make([]OptionShare, len(options))
	for i, o := range options {
		shares[i] = OptionShare{OptionID: o.ID, Value: o.Value, Count: counts[o.ID]}
		if total > 0 {
			shares[i].Percentage = round2(float64(counts[o.ID]) / float64(total) * 100)
		}
	}
	return shares, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// OptionDistribution is the live answer distribution of a poll.
func (s *Service) OptionDistribution(ctx context.Context, pollID primitive.ObjectID) ([]OptionShare, error) {
	if _, err := s.store.FindPoll(ctx, pollID); err != nil {
		if isStoreNotFound(err) {
			return nil, notFound("poll %s not found or is archived", pollID.Hex())
		}
		return nil, wrap(err)
	}
	shares, err := optionDistribution(ctx, s.store, pollID)
	return shares, wrap(err)
}

// OptionDistributionFor is OptionDistribution for a user, who only gets to
// see it once they have answered the poll.
func (s *Service) OptionDistributionFor(ctx context.Context, userID, pollID primitive.ObjectID) ([]OptionShare, error) {
	interaction, err := s.store.FindInteraction(ctx, userID, pollID)
	switch {
	case err != nil && isStoreNotFound(err):
		return nil, notFound("user %s has not answered poll %s", userID.Hex(), pollID.Hex())
	case err != nil:
		return nil, wrap(err)
	case !interaction.Answered():
		return nil, notFound("user %s has not answered poll %s", userID.Hex(), pollID.Hex())
	}
	return s.OptionDistribution(ctx, pollID)
}
