package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EnergyPackage struct {
	Base     `bson:",inline"`
	Quantity int  `json:"quantity" bson:"quantity"`
	Amount   int  `json:"amount" bson:"amount"`
	IsActive bool `json:"is_active" bson:"isActive"`
}

type ResourceType string

const (
	ResourceCoin   ResourceType = "coin"
	ResourceEnergy ResourceType = "energy"
)

// Resource is what a Transaction bought. It is either a CoinResource or an
// EnergyResource.
type Resource interface {
	Type() ResourceType
}

type CoinResource struct {
	Amount   float64 `json:"amount"`
	Rate     float64 `json:"rate"`
	Quantity int     `json:"quantity"`
}

func (CoinResource) Type() ResourceType { return ResourceCoin }

type EnergyResource struct {
	Package primitive.ObjectID `json:"package"`
}

func (EnergyResource) Type() ResourceType { return ResourceEnergy }

type Transaction struct {
	Base
	UserID   primitive.ObjectID
	Resource Resource
}

// resourceDoc is the stored shape of a Resource, discriminated by type.
type resourceDoc struct {
	Type     ResourceType        `bson:"type"`
	Amount   float64             `bson:"amount,omitempty"`
	Rate     float64             `bson:"rate,omitempty"`
	Quantity int                 `bson:"quantity,omitempty"`
	Package  *primitive.ObjectID `bson:"package,omitempty"`
}

type transactionDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt"`
	ArchivedAt *time.Time         `bson:"archivedAt"`
	UserID     primitive.ObjectID `bson:"user_id"`
	Resource   resourceDoc        `bson:"resource"`
}

func (t Transaction) MarshalBSON() ([]byte, error) {
	doc := transactionDoc{
		ID:         t.ID,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
		ArchivedAt: t.ArchivedAt,
		UserID:     t.UserID,
	}
	switch r := t.Resource.(type) {
	case CoinResource:
		doc.Resource = resourceDoc{Type: ResourceCoin, Amount: r.Amount, Rate: r.Rate, Quantity: r.Quantity}
	case EnergyResource:
		pkg := r.Package
		doc.Resource = resourceDoc{Type: ResourceEnergy, Package: &pkg}
	default:
		return nil, fmt.Errorf("transaction %s: unknown resource %T", t.ID.Hex(), t.Resource)
	}
	return bson.Marshal(doc)
}

func (t *Transaction) UnmarshalBSON(data []byte) error {
	doc := transactionDoc{}
	if err := bson.Unmarshal(data, &doc); err != nil {
		return err
	}
	t.ID, t.CreatedAt, t.UpdatedAt, t.ArchivedAt = doc.ID, doc.CreatedAt, doc.UpdatedAt, doc.ArchivedAt
	t.UserID = doc.UserID
	switch doc.Resource.Type {
	case ResourceCoin:
		t.Resource = CoinResource{Amount: doc.Resource.Amount, Rate: doc.Resource.Rate, Quantity: doc.Resource.Quantity}
	case ResourceEnergy:
		if doc.Resource.Package == nil {
			return fmt.Errorf("transaction %s: energy resource without package", doc.ID.Hex())
		}
		t.Resource = EnergyResource{Package: *doc.Resource.Package}
	default:
		return fmt.Errorf("transaction %s: unknown resource type %q", doc.ID.Hex(), doc.Resource.Type)
	}
	return nil
}
