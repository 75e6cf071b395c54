package memory

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/troydota/api.opinion.komodohype.dev/models"
	"github.com/troydota/api.opinion.komodohype.dev/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (v *view) InsertInteraction(ctx context.Context, interaction *models.Interaction) error {
	defer v.lock()()
	dup := v.st.interactions.first(func(i *models.Interaction) bool {
		return i.UserID == interaction.UserID && i.PollID == interaction.PollID
	})
	if dup != nil {
		return errors.Wrapf(store.ErrDuplicate, "interaction of user %s on poll %s", interaction.UserID.Hex(), interaction.PollID.Hex())
	}
	interaction.Touch(v.now())
	v.st.interactions.put(interaction)
	return nil
}

func (v *view) FindInteraction(ctx context.Context, userID, pollID primitive.ObjectID) (*models.Interaction, error) {
	defer v.lock()()
	i := v.st.interactions.first(func(i *models.Interaction) bool {
		return i.UserID == userID && i.PollID == pollID
	})
	if i == nil {
		return nil, notFound("interaction on poll", pollID)
	}
	return i, nil
}

func (v *view) AnswerInteraction(ctx context.Context, id, optionID primitive.ObjectID, coins, energy int) (*models.Interaction, error) {
	defer v.lock()()
	i := v.st.interactions.live(id)
	if i == nil {
		return nil, notFound("interaction", id)
	}
	if i.OptionID != nil {
		return nil, errors.Wrapf(store.ErrConflict, "interaction %s already answered", id.Hex())
	}
	opt := optionID
	i.OptionID = &opt
	i.CoinsGained += coins
	i.EnergySpent += energy
	i.UpdatedAt = v.now()
	v.st.interactions.put(i)
	return i, nil
}

func (v *view) InteractedPollIDs(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	defer v.lock()()
	var out []primitive.ObjectID
	for _, i := range v.st.interactions.filter(func(i *models.Interaction) bool { return i.UserID == userID }) {
		out = append(out, i.PollID)
	}
	return out, nil
}

func (v *view) CountAnswersByOption(ctx context.Context, optionIDs []primitive.ObjectID, userID *primitive.ObjectID) (map[primitive.ObjectID]int64, error) {
	defer v.lock()()
	want := idSet(optionIDs)
	out := map[primitive.ObjectID]int64{}
	for _, i := range v.st.interactions.filter(nil) {
		if i.OptionID == nil || !want[*i.OptionID] {
			continue
		}
		if userID != nil && i.UserID != *userID {
			continue
		}
		out[*i.OptionID]++
	}
	return out, nil
}

func (v *view) CountSkipsByPoll(ctx context.Context, userID *primitive.ObjectID) (map[primitive.ObjectID]int64, error) {
	defer v.lock()()
	out := map[primitive.ObjectID]int64{}
	for _, i := range v.st.interactions.filter(nil) {
		if i.OptionID != nil {
			continue
		}
		if userID != nil && i.UserID != *userID {
			continue
		}
		out[i.PollID]++
	}
	return out, nil
}

func (v *view) CountSkipsBetween(ctx context.Context, from, to time.Time) (int64, error) {
	defer v.lock()()
	var n int64
	for _, i := range v.st.interactions.filter(nil) {
		if i.OptionID == nil && !i.CreatedAt.Before(from) && !i.CreatedAt.After(to) {
			n++
		}
	}
	return n, nil
}

func (v *view) IncrementWeight(ctx context.Context, userID, familyID primitive.ObjectID, by int) (*models.UserKeywordFamilyWeight, error) {
	defer v.lock()()
	w := v.weight(userID, familyID)
	w.Weight += by
	w.UpdatedAt = v.now()
	v.st.weights.put(w)
	return w, nil
}

func (v *view) SetWeight(ctx context.Context, userID, familyID primitive.ObjectID, weight int) (*models.UserKeywordFamilyWeight, error) {
	defer v.lock()()
	w := v.weight(userID, familyID)
	w.Weight = weight
	w.UpdatedAt = v.now()
	v.st.weights.put(w)
	return w, nil
}

// weight returns the live (user, family) weight or a fresh zero one.
func (v *view) weight(userID, familyID primitive.ObjectID) *models.UserKeywordFamilyWeight {
	w := v.st.weights.first(func(w *models.UserKeywordFamilyWeight) bool {
		return w.UserID == userID && w.KeywordFamilyID == familyID
	})
	if w == nil {
		w = &models.UserKeywordFamilyWeight{UserID: userID, KeywordFamilyID: familyID}
		w.Touch(v.now())
	}
	return w
}

func (v *view) FindWeight(ctx context.Context, userID, familyID primitive.ObjectID) (*models.UserKeywordFamilyWeight, error) {
	defer v.lock()()
	w := v.st.weights.first(func(w *models.UserKeywordFamilyWeight) bool {
		return w.UserID == userID && w.KeywordFamilyID == familyID
	})
	if w == nil {
		return nil, notFound("weight for keyword family", familyID)
	}
	return w, nil
}

func (v *view) ListWeights(ctx context.Context, userID primitive.ObjectID) ([]*models.UserKeywordFamilyWeight, error) {
	defer v.lock()()
	return v.st.weights.filter(func(w *models.UserKeywordFamilyWeight) bool { return w.UserID == userID }), nil
}
