package services

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/troydota/api.opinion.komodohype.dev/metrics"
	"github.com/troydota/api.opinion.komodohype.dev/models"
	"github.com/troydota/api.opinion.komodohype.dev/store"
	"go.mongodb.org/mongo-driver/bson/primitive"

	log "github.com/sirupsen/logrus"
)

// CandidateEntry is one slot of a user's cached candidate queue.
type CandidateEntry struct {
	PollID primitive.ObjectID `json:"pollId"`
	CanUse bool               `json:"canUse"`
}

func candidateKey(userID primitive.ObjectID) string {
	return fmt.Sprintf("user:%s:polls", userID.Hex())
}

func (s *Service) readQueue(ctx context.Context, userID primitive.ObjectID) []CandidateEntry {
	val, err := s.cache.Get(ctx, candidateKey(userID))
	if err != nil {
		if s.miss == nil || err != s.miss {
			log.Errorf("redis, err=%v", err)
		}
		return nil
	}
	entries := []CandidateEntry{}
	if err = json.UnmarshalFromString(val, &entries); err != nil {
		log.Errorf("json, err=%v", err)
		return nil
	}
	return entries
}

func (s *Service) writeQueue(ctx context.Context, userID primitive.ObjectID, entries []CandidateEntry, keepTTL bool) {
	val, err := json.MarshalToString(entries)
	if err != nil {
		log.Errorf("json, err=%v", err)
		return
	}
	ttl := s.ttl
	if keepTTL {
		ttl = s.keepTTL
	}
	if err = s.cache.Set(ctx, candidateKey(userID), val, ttl); err != nil {
		log.Errorf("redis, err=%v", err)
	}
}

// ComputeCandidates lists up to limit live polls the user holds no live
// interaction for, in natural store order.
func (s *Service) ComputeCandidates(ctx context.Context, userID primitive.ObjectID, limit int) ([]primitive.ObjectID, error) {
	seen, err := s.store.InteractedPollIDs(ctx, userID)
	if err != nil {
		return nil, wrap(err)
	}
	ids, err := s.store.CandidatePollIDs(ctx, seen, limit)
	if err != nil {
		return nil, wrap(err)
	}
	return ids, nil
}

// usable reports whether a cached poll id may still be served: the poll is
// live and the user has not interacted with it since the queue was built.
func (s *Service) usable(ctx context.Context, userID, pollID primitive.ObjectID) (bool, error) {
	if _, err := s.store.FindPoll(ctx, pollID); err != nil {
		if isStoreNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if _, err := s.store.FindInteraction(ctx, userID, pollID); err != nil {
		if isStoreNotFound(err) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

// FetchOrRecalculateNextPoll returns the next poll the user should see, or nil
// when there is none left. The cached queue is only a shortcut; every cached
// entry is checked against the store before it is served.
func (s *Service) FetchOrRecalculateNextPoll(ctx context.Context, userID primitive.ObjectID) (*CandidateEntry, error) {
	entries := s.readQueue(ctx, userID)
	stale := false
	for i := range entries {
		if !entries[i].CanUse {
			continue
		}
		ok, err := s.usable(ctx, userID, entries[i].PollID)
		if err != nil {
			return nil, wrap(err)
		}
		if ok {
			if stale {
				s.writeQueue(ctx, userID, entries, true)
			}
			metrics.CandidateQueue.WithLabelValues("hit").Inc()
			entry := entries[i]
			return &entry, nil
		}
		entries[i].CanUse = false
		stale = true
	}
	metrics.CandidateQueue.WithLabelValues("miss").Inc()

	ids, err := s.ComputeCandidates(ctx, userID, s.limit)
	if err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		metrics.CandidateQueue.WithLabelValues("empty").Inc()
		if err = s.cache.Del(ctx, candidateKey(userID)); err != nil {
			log.Errorf("redis, err=%v", err)
		}
		return nil, nil
	}

	entries = make([]CandidateEntry, len(ids))
	for i, id := range ids {
		entries[i] = CandidateEntry{PollID: id, CanUse: true}
	}
	s.writeQueue(ctx, userID, entries, false)
	metrics.CandidateQueue.WithLabelValues("rebuild").Inc()

	entry := entries[0]
	return &entry, nil
}

// MarkAsUsed flips canUse off for the poll in the user's queue. It keeps the
// queue's expiry and does nothing when there is no queue.
func (s *Service) MarkAsUsed(ctx context.Context, userID, pollID primitive.ObjectID) {
	entries := s.readQueue(ctx, userID)
	if entries == nil {
		return
	}
	changed := false
	for i := range entries {
		if entries[i].PollID == pollID && entries[i].CanUse {
			entries[i].CanUse = false
			changed = true
		}
	}
	if changed {
		s.writeQueue(ctx, userID, entries, true)
	}
}

type PreparedOption struct {
	ID    primitive.ObjectID `json:"id"`
	Value string             `json:"value"`
}

// PreparedPoll is the client view of a poll. Opinion shifts never appear in
// it.
type PreparedPoll struct {
	ID            primitive.ObjectID    `json:"id"`
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	Image         *string               `json:"image"`
	Options       []PreparedOption      `json:"options"`
	CoinReward    int                   `json:"coin_reward"`
	EnergyReduced int                   `json:"energy_reduced"`
	ProposedBy    *models.PublicProfile `json:"proposed_by"`
}

func (s *Service) PreparePoll(ctx context.Context, pollID primitive.ObjectID) (*PreparedPoll, error) {
	poll, err := s.store.FindPoll(ctx, pollID)
	if err != nil {
		if isStoreNotFound(err) {
			return nil, notFound("poll %s not found or is archived", pollID.Hex())
		}
		return nil, wrap(err)
	}

	options, err := s.store.ListOptions(ctx, pollID)
	if err != nil {
		return nil, wrap(err)
	}

	prepared := &PreparedPoll{
		ID:            poll.ID,
		Title:         poll.Title,
		Description:   poll.Description,
		Image:         poll.ImageURL,
		Options:       make([]PreparedOption, len(options)),
		CoinReward:    poll.CoinReward(),
		EnergyReduced: poll.EnergyReducedPerPoll,
	}
	for i, o := range options {
		prepared.Options[i] = PreparedOption{ID: o.ID, Value: o.Value}
	}

	if poll.UserProposedPollID != nil {
		prepared.ProposedBy, err = s.proposer(ctx, *poll.UserProposedPollID)
		if err != nil {
			return nil, err
		}
	}

	return prepared, nil
}

// proposer returns the public profile behind a live proposal, or nil when the
// proposal or its author is gone.
func (s *Service) proposer(ctx context.Context, proposalID primitive.ObjectID) (*models.PublicProfile, error) {
	proposal, err := s.store.FindProposal(ctx, proposalID)
	if err != nil {
		if isStoreNotFound(err) {
			return nil, nil
		}
		return nil, wrap(err)
	}
	user, err := s.store.FindUser(ctx, proposal.UserID)
	if err != nil {
		if isStoreNotFound(err) {
			return nil, nil
		}
		return nil, wrap(err)
	}
	return user.Profile(), nil
}

func isStoreNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
