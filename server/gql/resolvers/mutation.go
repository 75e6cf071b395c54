package resolvers

import (
	"context"

	"github.com/troydota/api.opinion.komodohype.dev/models"
	"github.com/troydota/api.opinion.komodohype.dev/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type shiftInput struct {
	OpinionID string
	Shift     string
}

type optionInput struct {
	Value         string
	OpinionShifts *[]shiftInput
}

type pollInput struct {
	Title                string
	Description          string
	ImageURL             *string
	ProposalID           *string
	TotalCoinsAssigned   int32
	CoinsRewardedPerPoll int32
	EnergyReducedPerPoll int32
	Keywords             *[]string
	Options              []optionInput
}

type proposalInput struct {
	Title              string
	Description        string
	ImageURL           *string
	Options            []string
	TotalCoinsProposed int32
}

func (in optionInput) toService() (services.OptionInput, error) {
	out := services.OptionInput{Value: in.Value}
	if in.OpinionShifts == nil {
		return out, nil
	}
	for _, s := range *in.OpinionShifts {
		id, err := objectID("opinionId", s.OpinionID)
		if err != nil {
			return out, err
		}
		out.OpinionShifts = append(out.OpinionShifts, services.ShiftInput{OpinionID: id, Shift: models.Shift(s.Shift)})
	}
	return out, nil
}

func (in pollInput) toService() (services.PollInput, error) {
	out := services.PollInput{
		Title:                in.Title,
		Description:          in.Description,
		ImageURL:             in.ImageURL,
		TotalCoinsAssigned:   int(in.TotalCoinsAssigned),
		CoinsRewardedPerPoll: int(in.CoinsRewardedPerPoll),
		EnergyReducedPerPoll: int(in.EnergyReducedPerPoll),
		Options:              make([]services.OptionInput, len(in.Options)),
	}
	if in.ProposalID != nil {
		id, err := objectID("proposalId", *in.ProposalID)
		if err != nil {
			return out, err
		}
		out.UserProposedPollID = &id
	}
	if in.Keywords != nil {
		ids, err := objectIDs("keywords", *in.Keywords)
		if err != nil {
			return out, err
		}
		out.Keywords = ids
	}
	for i, o := range in.Options {
		option, err := o.toService()
		if err != nil {
			return out, err
		}
		out.Options[i] = option
	}
	return out, nil
}

// Interact answers the poll when optionId is given and skips it otherwise.
func (r *RootResolver) Interact(ctx context.Context, args struct {
	PollID   string
	OptionID *string
}) (*interactionResultResolver, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	in := services.InteractionInput{}
	if in.PollID, err = objectID("pollId", args.PollID); err != nil {
		return nil, err
	}
	if args.OptionID != nil {
		id, err := objectID("optionId", *args.OptionID)
		if err != nil {
			return nil, err
		}
		in.OptionID = &id
	}

	res, err := r.svc.CreateInteraction(ctx, userID, in)
	if err != nil {
		return nil, translate(err)
	}
	return &interactionResultResolver{res}, nil
}

func (r *RootResolver) CreatePoll(ctx context.Context, args struct{ Poll pollInput }) (*pollResolver, error) {
	adminID, err := requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	in, err := args.Poll.toService()
	if err != nil {
		return nil, err
	}
	poll, err := r.svc.CreatePoll(ctx, in, adminID)
	if err != nil {
		return nil, translate(err)
	}
	return &pollResolver{r.svc, poll}, nil
}

func (r *RootResolver) DeletePolls(ctx context.Context, args struct{ IDs []string }) (bool, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return false, err
	}
	ids, err := objectIDs("ids", args.IDs)
	if err != nil {
		return false, err
	}
	if err = r.svc.DeletePolls(ctx, ids); err != nil {
		return false, translate(err)
	}
	return true, nil
}

func (r *RootResolver) AddOption(ctx context.Context, args struct {
	PollID string
	Option optionInput
}) (*optionResolver, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	pollID, err := objectID("pollId", args.PollID)
	if err != nil {
		return nil, err
	}
	in, err := args.Option.toService()
	if err != nil {
		return nil, err
	}
	option, err := r.svc.AddOption(ctx, pollID, in)
	if err != nil {
		return nil, translate(err)
	}
	return &optionResolver{option}, nil
}

// adminDelete runs an admin-only operation keyed by a single id.
func (r *RootResolver) adminDelete(ctx context.Context, field, hex string, fn func(context.Context, primitive.ObjectID) error) (bool, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return false, err
	}
	id, err := objectID(field, hex)
	if err != nil {
		return false, err
	}
	if err = fn(ctx, id); err != nil {
		return false, translate(err)
	}
	return true, nil
}

func (r *RootResolver) DeleteOption(ctx context.Context, args struct{ ID string }) (bool, error) {
	return r.adminDelete(ctx, "id", args.ID, r.svc.DeleteOption)
}

func (r *RootResolver) DeleteOpinion(ctx context.Context, args struct{ ID string }) (bool, error) {
	return r.adminDelete(ctx, "id", args.ID, r.svc.DeleteOpinion)
}

func (r *RootResolver) DeleteEnergyPackage(ctx context.Context, args struct{ ID string }) (bool, error) {
	return r.adminDelete(ctx, "id", args.ID, r.svc.DeleteEnergyPackage)
}

type keywordLinkArgs struct {
	PollID    string
	KeywordID string
}

func (r *RootResolver) keywordLink(ctx context.Context, args keywordLinkArgs, fn func(ctx context.Context, pollID, keywordID primitive.ObjectID) error) (bool, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return false, err
	}
	pollID, err := objectID("pollId", args.PollID)
	if err != nil {
		return false, err
	}
	keywordID, err := objectID("keywordId", args.KeywordID)
	if err != nil {
		return false, err
	}
	if err = fn(ctx, pollID, keywordID); err != nil {
		return false, translate(err)
	}
	return true, nil
}

func (r *RootResolver) LinkKeyword(ctx context.Context, args keywordLinkArgs) (bool, error) {
	return r.keywordLink(ctx, args, r.svc.LinkKeyword)
}

func (r *RootResolver) UnlinkKeyword(ctx context.Context, args keywordLinkArgs) (bool, error) {
	return r.keywordLink(ctx, args, r.svc.UnlinkKeyword)
}

func (r *RootResolver) DeleteKeywords(ctx context.Context, args struct{ IDs []string }) (bool, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return false, err
	}
	ids, err := objectIDs("ids", args.IDs)
	if err != nil {
		return false, err
	}
	if err = r.svc.DeleteKeywords(ctx, ids); err != nil {
		return false, translate(err)
	}
	return true, nil
}

func (r *RootResolver) ProposePoll(ctx context.Context, args struct{ Proposal proposalInput }) (*proposalResolver, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	proposal, err := r.svc.ProposePoll(ctx, userID, services.ProposalInput{
		Title:              args.Proposal.Title,
		Description:        args.Proposal.Description,
		ImageURL:           args.Proposal.ImageURL,
		Options:            args.Proposal.Options,
		TotalCoinsProposed: int(args.Proposal.TotalCoinsProposed),
	})
	if err != nil {
		return nil, translate(err)
	}
	return &proposalResolver{proposal}, nil
}

func (r *RootResolver) CreateComment(ctx context.Context, args struct {
	PollID string
	Text   *string
	GifURL *string
}) (*commentResolver, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	pollID, err := objectID("pollId", args.PollID)
	if err != nil {
		return nil, err
	}
	comment, err := r.svc.CreateComment(ctx, userID, services.CommentInput{
		PollID: pollID,
		Text:   args.Text,
		GifURL: args.GifURL,
	})
	if err != nil {
		return nil, translate(err)
	}
	return &commentResolver{&services.CommentView{Comment: comment}}, nil
}

// userAction runs an operation the signed in user performs on one of their
// own records.
func (r *RootResolver) userAction(ctx context.Context, field, hex string, fn func(ctx context.Context, userID, id primitive.ObjectID) error) (bool, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return false, err
	}
	id, err := objectID(field, hex)
	if err != nil {
		return false, err
	}
	if err = fn(ctx, userID, id); err != nil {
		return false, translate(err)
	}
	return true, nil
}

func (r *RootResolver) DeleteComment(ctx context.Context, args struct{ ID string }) (bool, error) {
	return r.userAction(ctx, "id", args.ID, r.svc.DeleteComment)
}

func (r *RootResolver) ToggleLike(ctx context.Context, args struct{ CommentID string }) (bool, error) {
	return r.userAction(ctx, "commentId", args.CommentID, r.svc.ToggleLike)
}

func (r *RootResolver) ToggleDislike(ctx context.Context, args struct{ CommentID string }) (bool, error) {
	return r.userAction(ctx, "commentId", args.CommentID, r.svc.ToggleDislike)
}

func (r *RootResolver) CreateEnergyPackage(ctx context.Context, args struct {
	Quantity int32
	Amount   int32
}) (*energyPackageResolver, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	pkg, err := r.svc.CreateEnergyPackage(ctx, int(args.Quantity), int(args.Amount))
	if err != nil {
		return nil, translate(err)
	}
	return &energyPackageResolver{pkg}, nil
}

func (r *RootResolver) SetEnergyPackageActive(ctx context.Context, args struct {
	ID     string
	Active bool
}) (*energyPackageResolver, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	id, err := objectID("id", args.ID)
	if err != nil {
		return nil, err
	}
	pkg, err := r.svc.SetEnergyPackageActive(ctx, id, args.Active)
	if err != nil {
		return nil, translate(err)
	}
	return &energyPackageResolver{pkg}, nil
}

func (r *RootResolver) PurchaseEnergyPackage(ctx context.Context, args struct{ ID string }) (*balanceResolver, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	id, err := objectID("id", args.ID)
	if err != nil {
		return nil, err
	}
	user, err := r.svc.PurchaseEnergyPackage(ctx, userID, id)
	if err != nil {
		return nil, translate(err)
	}
	return &balanceResolver{user}, nil
}

func (r *RootResolver) PurchaseCoins(ctx context.Context, args struct {
	Quantity int32
	Rate     float64
}) (*balanceResolver, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	user, err := r.svc.PurchaseCoins(ctx, userID, int(args.Quantity), args.Rate)
	if err != nil {
		return nil, translate(err)
	}
	return &balanceResolver{user}, nil
}

type weightArgs struct {
	KeywordFamilyID string
	By              int32
}

type setWeightArgs struct {
	KeywordFamilyID string
	Weight          int32
}

func (r *RootResolver) userWeight(ctx context.Context, familyHex string, n int32, fn func(ctx context.Context, userID, familyID primitive.ObjectID, n int) (*models.UserKeywordFamilyWeight, error)) (*weightResolver, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	familyID, err := objectID("keywordFamilyId", familyHex)
	if err != nil {
		return nil, err
	}
	w, err := fn(ctx, userID, familyID, int(n))
	if err != nil {
		return nil, translate(err)
	}
	return &weightResolver{w}, nil
}

func (r *RootResolver) IncrementWeight(ctx context.Context, args weightArgs) (*weightResolver, error) {
	return r.userWeight(ctx, args.KeywordFamilyID, args.By, r.svc.IncrementWeight)
}

func (r *RootResolver) DecrementWeight(ctx context.Context, args weightArgs) (*weightResolver, error) {
	return r.userWeight(ctx, args.KeywordFamilyID, args.By, r.svc.DecrementWeight)
}

func (r *RootResolver) SetWeight(ctx context.Context, args setWeightArgs) (*weightResolver, error) {
	return r.userWeight(ctx, args.KeywordFamilyID, args.Weight, r.svc.SetWeight)
}

func (r *RootResolver) allUsersWeight(ctx context.Context, familyHex string, n int32, fn func(ctx context.Context, familyID primitive.ObjectID, n int) error) (bool, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return false, err
	}
	familyID, err := objectID("keywordFamilyId", familyHex)
	if err != nil {
		return false, err
	}
	if err = fn(ctx, familyID, int(n)); err != nil {
		return false, translate(err)
	}
	return true, nil
}

func (r *RootResolver) BoostWeightForAllUsers(ctx context.Context, args weightArgs) (bool, error) {
	return r.allUsersWeight(ctx, args.KeywordFamilyID, args.By, r.svc.BoostWeightForAllUsers)
}

func (r *RootResolver) UnboostWeightForAllUsers(ctx context.Context, args weightArgs) (bool, error) {
	return r.allUsersWeight(ctx, args.KeywordFamilyID, args.By, r.svc.UnboostWeightForAllUsers)
}

func (r *RootResolver) SetWeightForAllUsers(ctx context.Context, args setWeightArgs) (bool, error) {
	return r.allUsersWeight(ctx, args.KeywordFamilyID, args.Weight, r.svc.SetWeightForAllUsers)
}
