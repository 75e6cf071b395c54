package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type BgColor string

const (
	BgColorRed   BgColor = "red"
	BgColorBlue  BgColor = "blue"
	BgColorWhite BgColor = "white"
)

const (
	DefaultUserCoins  = 50
	DefaultUserEnergy = 50
)

type User struct {
	Base         `bson:",inline"`
	Name         string              `json:"name" bson:"name"`
	Email        string              `json:"email" bson:"email"`
	Avatar       *primitive.ObjectID `json:"avatar" bson:"avatar"`
	BgColor      *BgColor            `json:"bg_color" bson:"bgColor"`
	Coins        int                 `json:"coins" bson:"coins"`
	Energy       int                 `json:"energy" bson:"energy"`
	Level        int                 `json:"level" bson:"level"`
	Location     *primitive.ObjectID `json:"location" bson:"location"`
	RefreshToken *string             `json:"-" bson:"refreshToken"`
}

// PublicProfile is what other users may see of a user.
type PublicProfile struct {
	ID      primitive.ObjectID  `json:"id"`
	Name    string              `json:"name"`
	Level   int                 `json:"level"`
	BgColor *BgColor            `json:"bg_color"`
	Avatar  *primitive.ObjectID `json:"avatar"`
}

func (u *User) Profile() *PublicProfile {
	return &PublicProfile{
		ID:      u.ID,
		Name:    u.Name,
		Level:   u.Level,
		BgColor: u.BgColor,
		Avatar:  u.Avatar,
	}
}

type UserKeywordFamilyWeight struct {
	Base            `bson:",inline"`
	UserID          primitive.ObjectID `json:"user_id" bson:"user_id"`
	KeywordFamilyID primitive.ObjectID `json:"keyword_family_id" bson:"keyword_family_id"`
	Weight          int                `json:"weight" bson:"weight"`
}

// UserStats is the aggregate view of live users used by the overview.
type UserStats struct {
	Count       int64
	LevelCounts map[int]int64
	TotalCoins  int64
	TotalEnergy int64
}
