package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Interaction is a user's response to a poll. A nil OptionID means the user
// skipped the poll without choosing.
type Interaction struct {
	Base        `bson:",inline"`
	UserID      primitive.ObjectID  `json:"user_id" bson:"user_id"`
	PollID      primitive.ObjectID  `json:"poll_id" bson:"poll_id"`
	OptionID    *primitive.ObjectID `json:"option_id" bson:"option_id"`
	CoinsGained int                 `json:"coins_gained" bson:"coinsGained"`
	EnergySpent int                 `json:"energy_spent" bson:"energySpent"`
}

func (i *Interaction) Answered() bool {
	return i.OptionID != nil
}
