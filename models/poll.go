package models

import "go.mongodb.org/mongo-driver/bson/primitive"

const (
	MinOptionsPerPoll = 2
	MaxOptionsPerPoll = 4
	MaxCoinsPerPoll   = 5
)

type Poll struct {
	Base                 `bson:",inline"`
	CreatedByAdmin       primitive.ObjectID   `json:"created_by_admin" bson:"createdByAdmin_Id"`
	Title                string               `json:"title" bson:"title"`
	Description          string               `json:"description" bson:"description"`
	ImageURL             *string              `json:"image_url" bson:"imageURL"`
	UserProposedPollID   *primitive.ObjectID  `json:"user_proposed_poll_id" bson:"user_proposed_poll_id"`
	TotalCoinsAssigned   int                  `json:"total_coins_assigned" bson:"total_coins_assigned"`
	CoinsRemaining       int                  `json:"coins_remaining" bson:"coins_remaining"`
	CoinsRewardedPerPoll int                  `json:"coins_rewarded_per_poll" bson:"coins_rewarded_per_poll"`
	EnergyReducedPerPoll int                  `json:"energy_reduced_per_poll" bson:"energy_reduced_per_poll"`
	KeywordFamilies      []primitive.ObjectID `json:"keyword_families" bson:"keywordFamilies"`
}

// CoinReward is what the next answer to the poll earns: the per-answer reward
// capped by what is left in the pool.
func (p *Poll) CoinReward() int {
	if p.CoinsRemaining < p.CoinsRewardedPerPoll {
		return p.CoinsRemaining
	}
	return p.CoinsRewardedPerPoll
}

// HasKeywordFamilies reports whether the poll is tagged with every family in ids.
func (p *Poll) HasKeywordFamilies(ids []primitive.ObjectID) bool {
	for _, id := range ids {
		found := false
		for _, f := range p.KeywordFamilies {
			if f == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

type Option struct {
	Base   `bson:",inline"`
	PollID primitive.ObjectID `json:"poll_id" bson:"_poll_id"`
	Value  string             `json:"value" bson:"value"`
}

type Shift string

const (
	ShiftPositive Shift = "positive"
	ShiftNegative Shift = "negative"
	ShiftNeutral  Shift = "neutral"
)

func (s Shift) Valid() bool {
	switch s {
	case ShiftPositive, ShiftNegative, ShiftNeutral:
		return true
	}
	return false
}

type OptionOpinionShift struct {
	Base      `bson:",inline"`
	OptionID  primitive.ObjectID `json:"option_id" bson:"option_id"`
	OpinionID primitive.ObjectID `json:"opinion_id" bson:"opinion_id"`
	Shift     Shift              `json:"shift" bson:"shift"`
}

type Keyword struct {
	Base            `bson:",inline"`
	KeywordFamilyID primitive.ObjectID `json:"keyword_family_id" bson:"keywordFamily_id"`
	Value           string             `json:"value" bson:"value"`
}

type PollKeyword struct {
	Base      `bson:",inline"`
	PollID    primitive.ObjectID `json:"poll_id" bson:"poll_id"`
	KeywordID primitive.ObjectID `json:"keyword_id" bson:"keyword_id"`
}

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

type UserProposedPoll struct {
	Base               `bson:",inline"`
	UserID             primitive.ObjectID `json:"user_id" bson:"user_id"`
	Title              string             `json:"title" bson:"title"`
	Description        string             `json:"description" bson:"description"`
	ImageURL           *string            `json:"image_url" bson:"imageURL"`
	Options            []string           `json:"options" bson:"options"`
	ApprovalStatus     ApprovalStatus     `json:"approval_status" bson:"approvalStatus"`
	TotalCoinsProposed int                `json:"total_coins_proposed" bson:"totalCoinsProposed"`
}
