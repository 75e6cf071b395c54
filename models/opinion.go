package models

// Opinion is a tracked stance that poll options shift.
type Opinion struct {
	Base `bson:",inline"`
	Name string `json:"name" bson:"name"`
}
