package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Entity string

const (
	EntityUser                    Entity = "User"
	EntityPoll                    Entity = "Poll"
	EntityOption                  Entity = "Option"
	EntityOptionOpinionShift      Entity = "OptionOpinionShift"
	EntityOpinion                 Entity = "Opinion"
	EntityInteraction             Entity = "Interaction"
	EntityKeyword                 Entity = "Keyword"
	EntityPollKeyword             Entity = "PollKeyword"
	EntityUserKeywordFamilyWeight Entity = "UserKeywordFamilyWeight"
	EntityUserProposedPoll        Entity = "UserProposedPoll"
	EntityComment                 Entity = "Comment"
	EntityCommentResponse         Entity = "CommentResponse"
	EntityEnergyPackage           Entity = "EnergyPackage"
	EntityTransaction             Entity = "Transaction"
)

type Policy int

const (
	// Prevent refuses the delete while a live dependent exists.
	Prevent Policy = iota
	// Cascade soft deletes every live dependent first.
	Cascade
)

// Dependency says that documents of Entity point at the deleted document
// through Field (a bson path).
type Dependency struct {
	Entity Entity
	Field  string
	Policy Policy
}

var DeleteDependencies = map[Entity][]Dependency{
	EntityUser: {
		{EntityTransaction, "user_id", Prevent},
		{EntityUserProposedPoll, "user_id", Prevent},
		{EntityComment, "user_id", Prevent},
		{EntityCommentResponse, "user_id", Prevent},
		{EntityInteraction, "user_id", Prevent},
		{EntityUserKeywordFamilyWeight, "user_id", Prevent},
	},
	EntityPoll: {
		{EntityComment, "poll_id", Cascade},
		{EntityInteraction, "poll_id", Cascade},
		{EntityPollKeyword, "poll_id", Cascade},
		{EntityOption, "_poll_id", Cascade},
	},
	EntityComment: {
		{EntityCommentResponse, "comment_id", Cascade},
	},
	EntityKeyword: {
		{EntityPollKeyword, "keyword_id", Cascade},
	},
	EntityOption: {
		{EntityOptionOpinionShift, "option_id", Cascade},
		{EntityInteraction, "option_id", Cascade},
	},
	EntityOpinion: {
		{EntityOptionOpinionShift, "opinion_id", Cascade},
	},
	EntityEnergyPackage: {
		{EntityTransaction, "resource.package", Prevent},
	},
}

// Archiver is the small set of primitives a backend provides so SoftDelete
// can walk the dependency graph.
type Archiver interface {
	// Lookup reports whether the document exists and whether it is live.
	Lookup(ctx context.Context, entity Entity, id primitive.ObjectID) (found, live bool, err error)
	// Referencing lists live documents of entity whose field equals id.
	Referencing(ctx context.Context, entity Entity, field string, id primitive.ObjectID) ([]primitive.ObjectID, error)
	Archive(ctx context.Context, entity Entity, id primitive.ObjectID, at time.Time) error
}

// SoftDelete archives the document after checking Prevent dependencies and
// recursively archiving Cascade dependents.
func SoftDelete(ctx context.Context, a Archiver, entity Entity, id primitive.ObjectID, at time.Time) error {
	found, live, err := a.Lookup(ctx, entity, id)
	if err != nil {
		return err
	}
	if !found {
		return errors.Wrapf(ErrNotFound, "%s with id %s", entity, id.Hex())
	}
	if !live {
		return errors.Wrapf(ErrNotFound, "%s with id %s is already deleted", entity, id.Hex())
	}

	deps := DeleteDependencies[entity]
	for _, dep := range deps {
		if dep.Policy != Prevent {
			continue
		}
		ids, err := a.Referencing(ctx, dep.Entity, dep.Field, id)
		if err != nil {
			return err
		}
		if len(ids) > 0 {
			return errors.Wrapf(ErrDeletePrevented, "cannot delete %s with id %s due to dependent %s records", entity, id.Hex(), dep.Entity)
		}
	}

	for _, dep := range deps {
		if dep.Policy != Cascade {
			continue
		}
		ids, err := a.Referencing(ctx, dep.Entity, dep.Field, id)
		if err != nil {
			return err
		}
		for _, child := range ids {
			if err := SoftDelete(ctx, a, dep.Entity, child, at); err != nil {
				// an earlier cascade in this walk may have archived it already
				if errors.Is(err, ErrNotFound) {
					continue
				}
				return err
			}
		}
	}

	return a.Archive(ctx, entity, id, at)
}
