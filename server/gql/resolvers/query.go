package resolvers

import (
	"context"

	"github.com/troydota/api.opinion.komodohype.dev/auth"
	"github.com/troydota/api.opinion.komodohype.dev/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (r *RootResolver) NextPoll(ctx context.Context) (*preparedPollResolver, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	entry, err := r.svc.FetchOrRecalculateNextPoll(ctx, userID)
	if err != nil {
		return nil, translate(err)
	}
	if entry == nil {
		return nil, nil
	}

	poll, err := r.svc.PreparePoll(ctx, entry.PollID)
	if err != nil {
		return nil, translate(err)
	}
	return &preparedPollResolver{poll}, nil
}

func (r *RootResolver) PreparedPoll(ctx context.Context, args struct{ ID string }) (*preparedPollResolver, error) {
	if _, err := requireUser(ctx); err != nil {
		return nil, err
	}
	id, err := objectID("id", args.ID)
	if err != nil {
		return nil, err
	}
	poll, err := r.svc.PreparePoll(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return &preparedPollResolver{poll}, nil
}

func (r *RootResolver) Poll(ctx context.Context, args struct{ ID string }) (*pollResolver, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	id, err := objectID("id", args.ID)
	if err != nil {
		return nil, err
	}

	poll, err := r.svc.GetPoll(ctx, id)
	if err != nil {
		if services.KindOf(err) == services.KindNotFound {
			return nil, nil
		}
		return nil, translate(err)
	}
	return &pollResolver{r.svc, poll}, nil
}

func (r *RootResolver) Polls(ctx context.Context) ([]*pollResolver, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	polls, err := r.svc.ListPolls(ctx)
	if err != nil {
		return nil, translate(err)
	}
	out := make([]*pollResolver, len(polls))
	for i, p := range polls {
		out[i] = &pollResolver{r.svc, p}
	}
	return out, nil
}

func (r *RootResolver) Distribution(ctx context.Context, args struct{ PollID string }) ([]*optionShareResolver, error) {
	id, err := objectID("pollId", args.PollID)
	if err != nil {
		return nil, err
	}
	shares, err := r.distribution(ctx, id)
	if err != nil {
		return nil, err
	}
	return newShares(shares), nil
}

// distribution is open to admins for any poll and to users for the polls they
// have answered.
func (r *RootResolver) distribution(ctx context.Context, pollID primitive.ObjectID) ([]services.OptionShare, error) {
	var (
		shares []services.OptionShare
		err    error
	)
	if _, ok := auth.AdminFrom(ctx); ok {
		shares, err = r.svc.OptionDistribution(ctx, pollID)
	} else if user, ok := auth.UserFrom(ctx); ok {
		shares, err = r.svc.OptionDistributionFor(ctx, user, pollID)
	} else {
		return nil, errUnauthorized
	}
	if err != nil {
		return nil, translate(err)
	}
	return shares, nil
}

// OpinionDistribution is open to admins for any user and to users for
// themselves only.
func (r *RootResolver) OpinionDistribution(ctx context.Context, args struct {
	OpinionID        string
	KeywordFamilyIDs *[]string
	UserID           *string
}) (*opinionDistributionResolver, error) {
	filter := services.DistributionFilter{}
	if _, ok := auth.AdminFrom(ctx); ok {
		if args.UserID != nil {
			id, err := objectID("userId", *args.UserID)
			if err != nil {
				return nil, err
			}
			filter.UserID = &id
		}
	} else {
		id, err := requireUser(ctx)
		if err != nil {
			return nil, err
		}
		filter.UserID = &id
	}

	opinionID, err := objectID("opinionId", args.OpinionID)
	if err != nil {
		return nil, err
	}
	var families []string
	if args.KeywordFamilyIDs != nil {
		families = *args.KeywordFamilyIDs
	}
	familyIDs, err := objectIDs("keywordFamilyIds", families)
	if err != nil {
		return nil, err
	}

	d, err := r.svc.OpinionDistribution(ctx, opinionID, familyIDs, filter)
	if err != nil {
		return nil, translate(err)
	}
	return &opinionDistributionResolver{d}, nil
}

func (r *RootResolver) Overview(ctx context.Context) (*overviewResolver, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	o, err := r.svc.Overview(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return &overviewResolver{o}, nil
}

func (r *RootResolver) Comments(ctx context.Context, args struct{ PollID string }) ([]*commentResolver, error) {
	id, err := objectID("pollId", args.PollID)
	if err != nil {
		return nil, err
	}
	views, err := r.svc.CommentsByPoll(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	out := make([]*commentResolver, len(views))
	for i, v := range views {
		out[i] = &commentResolver{v}
	}
	return out, nil
}

// EnergyPackages lists the active packages. Admins may ask for all of them.
func (r *RootResolver) EnergyPackages(ctx context.Context, args struct{ All *bool }) ([]*energyPackageResolver, error) {
	activeOnly := true
	if args.All != nil && *args.All {
		if _, err := requireAdmin(ctx); err != nil {
			return nil, err
		}
		activeOnly = false
	}
	packages, err := r.svc.ListEnergyPackages(ctx, activeOnly)
	if err != nil {
		return nil, translate(err)
	}
	out := make([]*energyPackageResolver, len(packages))
	for i, p := range packages {
		out[i] = &energyPackageResolver{p}
	}
	return out, nil
}

func (r *RootResolver) Proposals(ctx context.Context) ([]*proposalResolver, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	proposals, err := r.svc.ListProposals(ctx, userID)
	if err != nil {
		return nil, translate(err)
	}
	out := make([]*proposalResolver, len(proposals))
	for i, p := range proposals {
		out[i] = &proposalResolver{p}
	}
	return out, nil
}

func (r *RootResolver) Proposal(ctx context.Context, args struct{ ID string }) (*proposalResolver, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	id, err := objectID("id", args.ID)
	if err != nil {
		return nil, err
	}
	proposal, err := r.svc.GetProposal(ctx, userID, id)
	if err != nil {
		return nil, translate(err)
	}
	return &proposalResolver{proposal}, nil
}

func (r *RootResolver) Weights(ctx context.Context) ([]*weightResolver, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	weights, err := r.svc.Weights(ctx, userID)
	if err != nil {
		return nil, translate(err)
	}
	out := make([]*weightResolver, len(weights))
	for i, w := range weights {
		out[i] = &weightResolver{w}
	}
	return out, nil
}
