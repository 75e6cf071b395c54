package memory

import (
	"context"

	"github.com/pkg/errors"
	"github.com/troydota/api.opinion.komodohype.dev/models"
	"github.com/troydota/api.opinion.komodohype.dev/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (v *view) InsertPoll(ctx context.Context, poll *models.Poll) error {
	defer v.lock()()
	poll.Touch(v.now())
	if poll.KeywordFamilies == nil {
		poll.KeywordFamilies = []primitive.ObjectID{}
	}
	v.st.polls.put(poll)
	return nil
}

func (v *view) FindPoll(ctx context.Context, id primitive.ObjectID) (*models.Poll, error) {
	defer v.lock()()
	if p := v.st.polls.live(id); p != nil {
		return p, nil
	}
	return nil, notFound("poll", id)
}

func (v *view) FindPolls(ctx context.Context, ids []primitive.ObjectID) ([]*models.Poll, error) {
	defer v.lock()()
	want := idSet(ids)
	return v.st.polls.filter(func(p *models.Poll) bool { return want[p.ID] }), nil
}

func (v *view) ListPolls(ctx context.Context) ([]*models.Poll, error) {
	defer v.lock()()
	return v.st.polls.filter(nil), nil
}

func (v *view) CountPolls(ctx context.Context) (int64, error) {
	defer v.lock()()
	return int64(len(v.st.polls.filter(nil))), nil
}

func (v *view) CandidatePollIDs(ctx context.Context, exclude []primitive.ObjectID, limit int) ([]primitive.ObjectID, error) {
	defer v.lock()()
	skip := idSet(exclude)
	var out []primitive.ObjectID
	for _, p := range v.st.polls.filter(func(p *models.Poll) bool { return !skip[p.ID] }) {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, p.ID)
	}
	return out, nil
}

func (v *view) DeductPollCoins(ctx context.Context, id primitive.ObjectID, amount int) (*models.Poll, error) {
	defer v.lock()()
	p := v.st.polls.live(id)
	if p == nil || p.CoinsRemaining < amount {
		return nil, notFound("poll with enough coins remaining", id)
	}
	p.CoinsRemaining -= amount
	p.UpdatedAt = v.now()
	v.st.polls.put(p)
	return p, nil
}

func (v *view) SetPollKeywordFamilies(ctx context.Context, id primitive.ObjectID, families []primitive.ObjectID) error {
	defer v.lock()()
	p := v.st.polls.live(id)
	if p == nil {
		return notFound("poll", id)
	}
	p.KeywordFamilies = append([]primitive.ObjectID{}, families...)
	p.UpdatedAt = v.now()
	v.st.polls.put(p)
	return nil
}

func (v *view) InsertOption(ctx context.Context, option *models.Option) error {
	defer v.lock()()
	dup := v.st.options.first(func(o *models.Option) bool {
		return o.PollID == option.PollID && o.Value == option.Value
	})
	if dup != nil {
		return errors.Wrapf(store.ErrDuplicate, "option %q on poll %s", option.Value, option.PollID.Hex())
	}
	option.Touch(v.now())
	v.st.options.put(option)
	return nil
}

func (v *view) FindOption(ctx context.Context, id primitive.ObjectID) (*models.Option, error) {
	defer v.lock()()
	if o := v.st.options.live(id); o != nil {
		return o, nil
	}
	return nil, notFound("option", id)
}

func (v *view) FindOptions(ctx context.Context, ids []primitive.ObjectID) ([]*models.Option, error) {
	defer v.lock()()
	want := idSet(ids)
	return v.st.options.filter(func(o *models.Option) bool { return want[o.ID] }), nil
}

func (v *view) ListOptions(ctx context.Context, pollID primitive.ObjectID) ([]*models.Option, error) {
	defer v.lock()()
	return v.st.options.filter(func(o *models.Option) bool { return o.PollID == pollID }), nil
}

func (v *view) InsertOpinionShift(ctx context.Context, shift *models.OptionOpinionShift) error {
	defer v.lock()()
	dup := v.st.shifts.first(func(s *models.OptionOpinionShift) bool {
		return s.OptionID == shift.OptionID && s.OpinionID == shift.OpinionID
	})
	if dup != nil {
		return errors.Wrapf(store.ErrDuplicate, "opinion %s on option %s", shift.OpinionID.Hex(), shift.OptionID.Hex())
	}
	shift.Touch(v.now())
	v.st.shifts.put(shift)
	return nil
}

func (v *view) ListOpinionShifts(ctx context.Context, opinionID primitive.ObjectID) ([]*models.OptionOpinionShift, error) {
	defer v.lock()()
	return v.st.shifts.filter(func(s *models.OptionOpinionShift) bool { return s.OpinionID == opinionID }), nil
}

func (v *view) InsertOpinion(ctx context.Context, opinion *models.Opinion) error {
	defer v.lock()()
	opinion.Touch(v.now())
	v.st.opinions.put(opinion)
	return nil
}

func (v *view) FindOpinion(ctx context.Context, id primitive.ObjectID) (*models.Opinion, error) {
	defer v.lock()()
	if o := v.st.opinions.live(id); o != nil {
		return o, nil
	}
	return nil, notFound("opinion", id)
}

func (v *view) InsertKeyword(ctx context.Context, keyword *models.Keyword) error {
	defer v.lock()()
	dup := v.st.keywords.first(func(k *models.Keyword) bool {
		return k.KeywordFamilyID == keyword.KeywordFamilyID && k.Value == keyword.Value
	})
	if dup != nil {
		return errors.Wrapf(store.ErrDuplicate, "keyword %q", keyword.Value)
	}
	keyword.Touch(v.now())
	v.st.keywords.put(keyword)
	return nil
}

func (v *view) FindKeywords(ctx context.Context, ids []primitive.ObjectID) ([]*models.Keyword, error) {
	defer v.lock()()
	want := idSet(ids)
	return v.st.keywords.filter(func(k *models.Keyword) bool { return want[k.ID] }), nil
}

func (v *view) InsertPollKeyword(ctx context.Context, link *models.PollKeyword) error {
	defer v.lock()()
	dup := v.st.pollKeywords.first(func(pk *models.PollKeyword) bool {
		return pk.PollID == link.PollID && pk.KeywordID == link.KeywordID
	})
	if dup != nil {
		return errors.Wrapf(store.ErrDuplicate, "keyword %s on poll %s", link.KeywordID.Hex(), link.PollID.Hex())
	}
	link.Touch(v.now())
	v.st.pollKeywords.put(link)
	return nil
}

func (v *view) FindPollKeyword(ctx context.Context, pollID, keywordID primitive.ObjectID) (*models.PollKeyword, error) {
	defer v.lock()()
	pk := v.st.pollKeywords.first(func(pk *models.PollKeyword) bool {
		return pk.PollID == pollID && pk.KeywordID == keywordID
	})
	if pk == nil {
		return nil, notFound("poll keyword for poll", pollID)
	}
	return pk, nil
}

func (v *view) ListPollKeywords(ctx context.Context, pollID primitive.ObjectID) ([]*models.PollKeyword, error) {
	defer v.lock()()
	return v.st.pollKeywords.filter(func(pk *models.PollKeyword) bool { return pk.PollID == pollID }), nil
}

func (v *view) PollIDsForKeyword(ctx context.Context, keywordID primitive.ObjectID) ([]primitive.ObjectID, error) {
	defer v.lock()()
	var out []primitive.ObjectID
	for _, pk := range v.st.pollKeywords.filter(func(pk *models.PollKeyword) bool { return pk.KeywordID == keywordID }) {
		out = append(out, pk.PollID)
	}
	return out, nil
}
