package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/troydota/api.opinion.komodohype.dev/metrics"
	"github.com/troydota/api.opinion.komodohype.dev/models"
	"github.com/troydota/api.opinion.komodohype.dev/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxTextLength = 500

type ShiftInput struct {
	OpinionID primitive.ObjectID
	Shift     models.Shift
}

type OptionInput struct {
	Value         string
	OpinionShifts []ShiftInput
}

type PollInput struct {
	Title                string
	Description          string
	ImageURL             *string
	UserProposedPollID   *primitive.ObjectID
	TotalCoinsAssigned   int
	CoinsRewardedPerPoll int
	EnergyReducedPerPoll int
	Keywords             []primitive.ObjectID
	Options              []OptionInput
}

func checkText(field, v string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(v))
	if n == 0 || n > maxTextLength {
		return invalid("%s must be between 1 and %d characters", field, maxTextLength)
	}
	return nil
}

// checkOptionValues requires 2 to 4 non-empty values with no repeats.
func checkOptionValues(values []string) error {
	if len(values) < models.MinOptionsPerPoll || len(values) > models.MaxOptionsPerPoll {
		return invalid("a poll needs between %d and %d options", models.MinOptionsPerPoll, models.MaxOptionsPerPoll)
	}
	seen := map[string]bool{}
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return invalid("option values must not be empty")
		}
		if seen[v] {
			return invalid("duplicate option %q", v)
		}
		seen[v] = true
	}
	return nil
}

// Validate checks the shape of the input before any store access.
func (in *PollInput) Validate() error {
	if err := checkText("title", in.Title); err != nil {
		return err
	}
	if err := checkText("description", in.Description); err != nil {
		return err
	}
	if in.TotalCoinsAssigned < 1 {
		return invalid("total_coins_assigned must be at least 1")
	}
	if in.CoinsRewardedPerPoll < 1 || in.CoinsRewardedPerPoll > models.MaxCoinsPerPoll {
		return invalid("coins_rewarded_per_poll must be between 1 and %d", models.MaxCoinsPerPoll)
	}
	if in.EnergyReducedPerPoll < 0 {
		return invalid("energy_reduced_per_poll must not be negative")
	}
	if in.TotalCoinsAssigned%in.CoinsRewardedPerPoll != 0 {
		return invalid("total_coins_assigned must be a multiple of coins_rewarded_per_poll")
	}

	values := make([]string, len(in.Options))
	for i, o := range in.Options {
		values[i] = o.Value
	}
	if err := checkOptionValues(values); err != nil {
		return err
	}

	keywords := map[primitive.ObjectID]bool{}
	for _, k := range in.Keywords {
		if keywords[k] {
			return invalid("duplicate keyword %s", k.Hex())
		}
		keywords[k] = true
	}

	for _, o := range in.Options {
		if err := checkShifts(o); err != nil {
			return err
		}
	}
	return nil
}

func checkShifts(o OptionInput) error {
	opinions := map[primitive.ObjectID]bool{}
	for _, sh := range o.OpinionShifts {
		if !sh.Shift.Valid() {
			return invalid("invalid shift %q on option %q", sh.Shift, o.Value)
		}
		if opinions[sh.OpinionID] {
			return invalid("duplicate opinion %s found in option %q", sh.OpinionID.Hex(), o.Value)
		}
		opinions[sh.OpinionID] = true
	}
	return nil
}

// CreatePoll validates the input and builds the poll in one unit of work.
func (s *Service) CreatePoll(ctx context.Context, in PollInput, adminID primitive.ObjectID) (*models.Poll, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var poll *models.Poll
	err := s.transaction(ctx, "create_poll", func(ctx context.Context, tx store.Repository) error {
		var err error
		poll, err = BuildPoll(ctx, tx, in, adminID)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.PollsCreated.Inc()
	return poll, nil
}

// BuildPoll writes the poll with its proposal economics, keyword links,
// options and opinion shifts against tx.
func BuildPoll(ctx context.Context, tx store.Repository, in PollInput, adminID primitive.ObjectID) (*models.Poll, error) {
	if in.UserProposedPollID != nil {
		if err := consumeProposal(ctx, tx, *in.UserProposedPollID); err != nil {
			return nil, err
		}
	}

	poll := &models.Poll{
		CreatedByAdmin:       adminID,
		Title:                in.Title,
		Description:          in.Description,
		ImageURL:             in.ImageURL,
		UserProposedPollID:   in.UserProposedPollID,
		TotalCoinsAssigned:   in.TotalCoinsAssigned,
		CoinsRemaining:       in.TotalCoinsAssigned,
		CoinsRewardedPerPoll: in.CoinsRewardedPerPoll,
		EnergyReducedPerPoll: in.EnergyReducedPerPoll,
	}
	if err := tx.InsertPoll(ctx, poll); err != nil {
		return nil, err
	}

	if len(in.Keywords) > 0 {
		for _, k := range in.Keywords {
			if err := linkKeyword(ctx, tx, poll.ID, k); err != nil {
				return nil, err
			}
		}
		families, err := refreshKeywordFamilies(ctx, tx, poll.ID)
		if err != nil {
			return nil, err
		}
		poll.KeywordFamilies = families
	}

	for _, o := range in.Options {
		if err := checkShifts(o); err != nil {
			return nil, err
		}
	}
	if err := checkOpinions(ctx, tx, in.Options...); err != nil {
		return nil, err
	}
	for _, o := range in.Options {
		option := &models.Option{PollID: poll.ID, Value: o.Value}
		if err := tx.InsertOption(ctx, option); err != nil {
			return nil, err
		}
		for _, sh := range o.OpinionShifts {
			shift := &models.OptionOpinionShift{OptionID: option.ID, OpinionID: sh.OpinionID, Shift: sh.Shift}
			if err := tx.InsertOpinionShift(ctx, shift); err != nil {
				return nil, err
			}
		}
	}

	return poll, nil
}

// checkOpinions fails unless every opinion the options shift is live.
func checkOpinions(ctx context.Context, tx store.Repository, options ...OptionInput) error {
	seen := map[primitive.ObjectID]bool{}
	for _, o := range options {
		for _, sh := range o.OpinionShifts {
			if seen[sh.OpinionID] {
				continue
			}
			seen[sh.OpinionID] = true
			if _, err := tx.FindOpinion(ctx, sh.OpinionID); err != nil {
				if isStoreNotFound(err) {
					return notFound("opinion %s not found or is archived", sh.OpinionID.Hex())
				}
				return err
			}
		}
	}
	return nil
}

// consumeProposal approves the proposal and debits its coins from the
// proposer.
func consumeProposal(ctx context.Context, tx store.Repository, proposalID primitive.ObjectID) error {
	proposal, err := tx.ApproveProposal(ctx, proposalID)
	if err != nil {
		if isStoreNotFound(err) {
			return notFound("user proposed poll %s not found, is archived, or has been rejected", proposalID.Hex())
		}
		return err
	}

	_, err = tx.AdjustUserBalance(ctx, proposal.UserID, -proposal.TotalCoinsProposed, 0)
	if err == nil {
		return nil
	}
	if !isStoreNotFound(err) {
		return err
	}

	user, err := tx.FindUserAny(ctx, proposal.UserID)
	switch {
	case err != nil && isStoreNotFound(err):
		return notFound("proposer %s not found", proposal.UserID.Hex())
	case err != nil:
		return err
	case !user.Live():
		return notFound("proposer %s is archived", proposal.UserID.Hex())
	}
	return insufficient("proposer %s does not have sufficient coins, has %d needs %d", proposal.UserID.Hex(), user.Coins, proposal.TotalCoinsProposed)
}

// linkKeyword links a keyword to the poll unless the link already exists.
func linkKeyword(ctx context.Context, tx store.Repository, pollID, keywordID primitive.ObjectID) error {
	keywords, err := tx.FindKeywords(ctx, []primitive.ObjectID{keywordID})
	if err != nil {
		return err
	}
	if len(keywords) == 0 {
		return notFound("keyword %s not found or is archived", keywordID.Hex())
	}
	if _, err = tx.FindPollKeyword(ctx, pollID, keywordID); err == nil {
		return nil
	} else if !isStoreNotFound(err) {
		return err
	}
	return tx.InsertPollKeyword(ctx, &models.PollKeyword{PollID: pollID, KeywordID: keywordID})
}

// refreshKeywordFamilies recomputes the poll's family set from its live
// keyword links.
func refreshKeywordFamilies(ctx context.Context, tx store.Repository, pollID primitive.ObjectID) ([]primitive.ObjectID, error) {
	links, err := tx.ListPollKeywords(ctx, pollID)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, len(links))
	for i, l := range links {
		ids[i] = l.KeywordID
	}
	keywords, err := tx.FindKeywords(ctx, ids)
	if err != nil {
		return nil, err
	}

	families := []primitive.ObjectID{}
	seen := map[primitive.ObjectID]bool{}
	for _, k := range keywords {
		if !seen[k.KeywordFamilyID] {
			seen[k.KeywordFamilyID] = true
			families = append(families, k.KeywordFamilyID)
		}
	}
	if err = tx.SetPollKeywordFamilies(ctx, pollID, families); err != nil {
		return nil, err
	}
	return families, nil
}

func (s *Service) ListPolls(ctx context.Context) ([]*models.Poll, error) {
	polls, err := s.store.ListPolls(ctx)
	return polls, wrap(err)
}

func (s *Service) GetPoll(ctx context.Context, pollID primitive.ObjectID) (*models.Poll, error) {
	poll, err := s.store.FindPoll(ctx, pollID)
	if err != nil {
		if isStoreNotFound(err) {
			return nil, notFound("poll %s not found or is archived", pollID.Hex())
		}
		return nil, wrap(err)
	}
	return poll, nil
}

func (s *Service) ListOptions(ctx context.Context, pollID primitive.ObjectID) ([]*models.Option, error) {
	options, err := s.store.ListOptions(ctx, pollID)
	return options, wrap(err)
}

// DeletePolls soft deletes the polls and everything hanging off them in one
// unit of work. Cached queues are left alone; they drop archived polls when
// read.
func (s *Service) DeletePolls(ctx context.Context, ids []primitive.ObjectID) error {
	if len(ids) == 0 {
		return invalid("no poll ids given")
	}
	return s.transaction(ctx, "delete_polls", func(ctx context.Context, tx store.Repository) error {
		for _, id := range ids {
			if err := tx.SoftDelete(ctx, store.EntityPoll, id); err != nil {
				if isStoreNotFound(err) {
					return notFound("poll %s not found or is archived", id.Hex())
				}
				return err
			}
		}
		return nil
	})
}

// AddOption attaches another option to a live poll that has room for it.
func (s *Service) AddOption(ctx context.Context, pollID primitive.ObjectID, in OptionInput) (*models.Option, error) {
	if strings.TrimSpace(in.Value) == "" {
		return nil, invalid("option values must not be empty")
	}
	if err := checkShifts(in); err != nil {
		return nil, err
	}

	var option *models.Option
	err := s.transaction(ctx, "add_option", func(ctx context.Context, tx store.Repository) error {
		if _, err := tx.FindPoll(ctx, pollID); err != nil {
			if isStoreNotFound(err) {
				return notFound("poll %s not found or is archived", pollID.Hex())
			}
			return err
		}
		options, err := tx.ListOptions(ctx, pollID)
		if err != nil {
			return err
		}
		if len(options) >= models.MaxOptionsPerPoll {
			return invalid("a poll can have at most %d options", models.MaxOptionsPerPoll)
		}
		if err = checkOpinions(ctx, tx, in); err != nil {
			return err
		}
		option = &models.Option{PollID: pollID, Value: in.Value}
		if err = tx.InsertOption(ctx, option); err != nil {
			return err
		}
		for _, sh := range in.OpinionShifts {
			shift := &models.OptionOpinionShift{OptionID: option.ID, OpinionID: sh.OpinionID, Shift: sh.Shift}
			if err = tx.InsertOpinionShift(ctx, shift); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return option, nil
}

// DeleteOption soft deletes an option unless that would leave its poll with
// fewer than the minimum number of live options.
func (s *Service) DeleteOption(ctx context.Context, optionID primitive.ObjectID) error {
	return s.transaction(ctx, "delete_option", func(ctx context.Context, tx store.Repository) error {
		option, err := tx.FindOption(ctx, optionID)
		if err != nil {
			if isStoreNotFound(err) {
				return notFound("option %s not found or is archived", optionID.Hex())
			}
			return err
		}
		options, err := tx.ListOptions(ctx, option.PollID)
		if err != nil {
			return err
		}
		if len(options) <= models.MinOptionsPerPoll {
			return invalid("a poll needs at least %d options", models.MinOptionsPerPoll)
		}
		return tx.SoftDelete(ctx, store.EntityOption, optionID)
	})
}

// UnlinkKeyword removes a keyword from a poll and refreshes its families.
func (s *Service) UnlinkKeyword(ctx context.Context, pollID, keywordID primitive.ObjectID) error {
	return s.transaction(ctx, "unlink_keyword", func(ctx context.Context, tx store.Repository) error {
		link, err := tx.FindPollKeyword(ctx, pollID, keywordID)
		if err != nil {
			if isStoreNotFound(err) {
				return notFound("keyword %s is not linked to poll %s", keywordID.Hex(), pollID.Hex())
			}
			return err
		}
		if err = tx.SoftDelete(ctx, store.EntityPollKeyword, link.ID); err != nil {
			return err
		}
		_, err = refreshKeywordFamilies(ctx, tx, pollID)
		return err
	})
}

// LinkKeyword adds a keyword to a poll and refreshes its families.
func (s *Service) LinkKeyword(ctx context.Context, pollID, keywordID primitive.ObjectID) error {
	return s.transaction(ctx, "link_keyword", func(ctx context.Context, tx store.Repository) error {
		if _, err := tx.FindPoll(ctx, pollID); err != nil {
			if isStoreNotFound(err) {
				return notFound("poll %s not found or is archived", pollID.Hex())
			}
			return err
		}
		if err := linkKeyword(ctx, tx, pollID, keywordID); err != nil {
			return err
		}
		_, err := refreshKeywordFamilies(ctx, tx, pollID)
		return err
	})
}

// DeleteKeywords soft deletes keywords and refreshes the families of every
// poll that was linked to them.
func (s *Service) DeleteKeywords(ctx context.Context, ids []primitive.ObjectID) error {
	return s.transaction(ctx, "delete_keywords", func(ctx context.Context, tx store.Repository) error {
		affected := map[primitive.ObjectID]bool{}
		var order []primitive.ObjectID
		for _, id := range ids {
			polls, err := tx.PollIDsForKeyword(ctx, id)
			if err != nil {
				return err
			}
			for _, p := range polls {
				if !affected[p] {
					affected[p] = true
					order = append(order, p)
				}
			}
			if err = tx.SoftDelete(ctx, store.EntityKeyword, id); err != nil {
				if isStoreNotFound(err) {
					return notFound("keyword %s not found or is archived", id.Hex())
				}
				return err
			}
		}
		for _, p := range order {
			if _, err := refreshKeywordFamilies(ctx, tx, p); err != nil && !isStoreNotFound(err) {
				return err
			}
		}
		return nil
	})
}

// DeleteOpinion soft deletes the opinion together with its option shifts.
func (s *Service) DeleteOpinion(ctx context.Context, opinionID primitive.ObjectID) error {
	return s.transaction(ctx, "delete_opinion", func(ctx context.Context, tx store.Repository) error {
		if err := tx.SoftDelete(ctx, store.EntityOpinion, opinionID); err != nil {
			if isStoreNotFound(err) {
				return notFound("opinion %s not found or is archived", opinionID.Hex())
			}
			return err
		}
		return nil
	})
}
