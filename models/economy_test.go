package models

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestTransactionResourceBSON(t *testing.T) {
	now := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)
	pkg := primitive.NewObjectID()

	cases := []Resource{
		CoinResource{Amount: 12.5, Rate: 2.5, Quantity: 5},
		EnergyResource{Package: pkg},
	}
	for _, resource := range cases {
		t.Run(string(resource.Type()), func(t *testing.T) {
			in := Transaction{UserID: primitive.NewObjectID(), Resource: resource}
			in.Touch(now)

			data, err := bson.Marshal(in)
			if err != nil {
				t.Fatal(err)
			}

			raw := bson.Raw(data)
			if got := raw.Lookup("resource", "type").StringValue(); got != string(resource.Type()) {
				t.Fatalf("stored type %q", got)
			}

			out := Transaction{}
			if err = bson.Unmarshal(data, &out); err != nil {
				t.Fatal(err)
			}
			if out.ID != in.ID || out.UserID != in.UserID || !out.CreatedAt.Equal(now) {
				t.Fatalf("got %+v, want %+v", out, in)
			}
			if out.Resource != in.Resource {
				t.Fatalf("resource %#v, want %#v", out.Resource, in.Resource)
			}
		})
	}
}

func TestEnergyPackageReference(t *testing.T) {
	pkg := primitive.NewObjectID()
	data, err := bson.Marshal(Transaction{Resource: EnergyResource{Package: pkg}})
	if err != nil {
		t.Fatal(err)
	}
	if got := bson.Raw(data).Lookup("resource", "package").ObjectID(); got != pkg {
		t.Fatalf("package %s, want %s", got.Hex(), pkg.Hex())
	}
}

func TestTransactionRejectsUnknownResource(t *testing.T) {
	if _, err := bson.Marshal(Transaction{}); err == nil {
		t.Fatal("marshalled a transaction without a resource")
	}

	data, err := bson.Marshal(bson.M{"resource": bson.M{"type": "gems"}})
	if err != nil {
		t.Fatal(err)
	}
	if err = bson.Unmarshal(data, &Transaction{}); err == nil {
		t.Fatal("unmarshalled an unknown resource type")
	}

	data, err = bson.Marshal(bson.M{"resource": bson.M{"type": ResourceEnergy}})
	if err != nil {
		t.Fatal(err)
	}
	if err = bson.Unmarshal(data, &Transaction{}); err == nil {
		t.Fatal("unmarshalled an energy resource without a package")
	}
}
