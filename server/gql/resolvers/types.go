package resolvers

import (
	"context"
	"time"

	"github.com/troydota/api.opinion.komodohype.dev/models"
	"github.com/troydota/api.opinion.komodohype.dev/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func hexOrNil(id *primitive.ObjectID) *string {
	if id == nil {
		return nil
	}
	s := id.Hex()
	return &s
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

type profileResolver struct {
	profile *models.PublicProfile
}

func newProfile(p *models.PublicProfile) *profileResolver {
	if p == nil {
		return nil
	}
	return &profileResolver{p}
}

func (r *profileResolver) ID() string {
	return r.profile.ID.Hex()
}

func (r *profileResolver) Name() string {
	return r.profile.Name
}

func (r *profileResolver) Level() int32 {
	return int32(r.profile.Level)
}

func (r *profileResolver) BgColor() *string {
	if r.profile.BgColor == nil {
		return nil
	}
	s := string(*r.profile.BgColor)
	return &s
}

type preparedOptionResolver struct {
	option services.PreparedOption
}

func (r *preparedOptionResolver) ID() string {
	return r.option.ID.Hex()
}

func (r *preparedOptionResolver) Value() string {
	return r.option.Value
}

type preparedPollResolver struct {
	poll *services.PreparedPoll
}

func (r *preparedPollResolver) ID() string {
	return r.poll.ID.Hex()
}

func (r *preparedPollResolver) Title() string {
	return r.poll.Title
}

func (r *preparedPollResolver) Description() string {
	return r.poll.Description
}

func (r *preparedPollResolver) Image() *string {
	return r.poll.Image
}

func (r *preparedPollResolver) Options() []*preparedOptionResolver {
	out := make([]*preparedOptionResolver, len(r.poll.Options))
	for i, o := range r.poll.Options {
		out[i] = &preparedOptionResolver{o}
	}
	return out
}

func (r *preparedPollResolver) CoinReward() int32 {
	return int32(r.poll.CoinReward)
}

func (r *preparedPollResolver) EnergyReduced() int32 {
	return int32(r.poll.EnergyReduced)
}

func (r *preparedPollResolver) ProposedBy() *profileResolver {
	return newProfile(r.poll.ProposedBy)
}

type optionResolver struct {
	option *models.Option
}

func (r *optionResolver) ID() string {
	return r.option.ID.Hex()
}

func (r *optionResolver) PollID() string {
	return r.option.PollID.Hex()
}

func (r *optionResolver) Value() string {
	return r.option.Value
}

// pollResolver is the admin view of a poll. Options are only loaded when the
// query selects them.
type pollResolver struct {
	svc  *services.Service
	poll *models.Poll
}

func (r *pollResolver) ID() string {
	return r.poll.ID.Hex()
}

func (r *pollResolver) Title() string {
	return r.poll.Title
}

func (r *pollResolver) Description() string {
	return r.poll.Description
}

func (r *pollResolver) ImageURL() *string {
	return r.poll.ImageURL
}

func (r *pollResolver) ProposalID() *string {
	return hexOrNil(r.poll.UserProposedPollID)
}

func (r *pollResolver) CreatedByAdmin() string {
	return r.poll.CreatedByAdmin.Hex()
}

func (r *pollResolver) TotalCoinsAssigned() int32 {
	return int32(r.poll.TotalCoinsAssigned)
}

func (r *pollResolver) CoinsRemaining() int32 {
	return int32(r.poll.CoinsRemaining)
}

func (r *pollResolver) CoinsRewardedPerPoll() int32 {
	return int32(r.poll.CoinsRewardedPerPoll)
}

func (r *pollResolver) EnergyReducedPerPoll() int32 {
	return int32(r.poll.EnergyReducedPerPoll)
}

func (r *pollResolver) KeywordFamilies() []string {
	out := make([]string, len(r.poll.KeywordFamilies))
	for i, id := range r.poll.KeywordFamilies {
		out[i] = id.Hex()
	}
	return out
}

func (r *pollResolver) Options(ctx context.Context) ([]*optionResolver, error) {
	options, err := r.svc.ListOptions(ctx, r.poll.ID)
	if err != nil {
		return nil, translate(err)
	}
	out := make([]*optionResolver, len(options))
	for i, o := range options {
		out[i] = &optionResolver{o}
	}
	return out, nil
}

func (r *pollResolver) CreatedAt() string {
	return timestamp(r.poll.CreatedAt)
}

type optionShareResolver struct {
	share services.OptionShare
}

func newShares(shares []services.OptionShare) []*optionShareResolver {
	out := make([]*optionShareResolver, len(shares))
	for i, s := range shares {
		out[i] = &optionShareResolver{s}
	}
	return out
}

func (r *optionShareResolver) OptionID() string {
	return r.share.OptionID.Hex()
}

func (r *optionShareResolver) Value() string {
	return r.share.Value
}

func (r *optionShareResolver) Count() int32 {
	return int32(r.share.Count)
}

func (r *optionShareResolver) Percentage() float64 {
	return r.share.Percentage
}

type interactionResolver struct {
	interaction *models.Interaction
}

func (r *interactionResolver) ID() string {
	return r.interaction.ID.Hex()
}

func (r *interactionResolver) PollID() string {
	return r.interaction.PollID.Hex()
}

func (r *interactionResolver) OptionID() *string {
	return hexOrNil(r.interaction.OptionID)
}

func (r *interactionResolver) CoinsGained() int32 {
	return int32(r.interaction.CoinsGained)
}

func (r *interactionResolver) EnergySpent() int32 {
	return int32(r.interaction.EnergySpent)
}

func (r *interactionResolver) CreatedAt() string {
	return timestamp(r.interaction.CreatedAt)
}

type interactionResultResolver struct {
	result *services.InteractionResult
}

func (r *interactionResultResolver) Outcome() string {
	return r.result.Outcome
}

func (r *interactionResultResolver) Interaction() *interactionResolver {
	return &interactionResolver{r.result.Interaction}
}

func (r *interactionResultResolver) Distribution() *[]*optionShareResolver {
	if r.result.Distribution == nil {
		return nil
	}
	shares := newShares(r.result.Distribution)
	return &shares
}

type bucketResolver struct {
	bucket services.Bucket
}

func (r *bucketResolver) Count() int32 {
	return int32(r.bucket.Count)
}

func (r *bucketResolver) Percentage() float64 {
	return r.bucket.Percentage
}

type opinionDistributionResolver struct {
	d *services.OpinionDistribution
}

func (r *opinionDistributionResolver) Positive() *bucketResolver {
	return &bucketResolver{r.d.Positive}
}

func (r *opinionDistributionResolver) Negative() *bucketResolver {
	return &bucketResolver{r.d.Negative}
}

func (r *opinionDistributionResolver) Neutral() *bucketResolver {
	return &bucketResolver{r.d.Neutral}
}

func (r *opinionDistributionResolver) Uninterested() *bucketResolver {
	return &bucketResolver{r.d.Uninterested}
}

type periodResolver struct {
	p services.PeriodComparison
}

func (r *periodResolver) Previous() int32 {
	return int32(r.p.Previous)
}

func (r *periodResolver) Current() int32 {
	return int32(r.p.Current)
}

func (r *periodResolver) PercentageChange() string {
	return r.p.PercentageChange
}

type levelCountResolver struct {
	level int
	count int64
}

func (r *levelCountResolver) Level() int32 {
	return int32(r.level)
}

func (r *levelCountResolver) Count() int32 {
	return int32(r.count)
}

type overviewResolver struct {
	o *services.Overview
}

func (r *overviewResolver) UserCount() int32 {
	return int32(r.o.UserCount)
}

func (r *overviewResolver) PollCount() int32 {
	return int32(r.o.PollCount)
}

func (r *overviewResolver) Levels() []*levelCountResolver {
	out := make([]*levelCountResolver, 0, len(r.o.LevelCounts))
	for level := 1; level <= 3; level++ {
		out = append(out, &levelCountResolver{level, r.o.LevelCounts[level]})
	}
	return out
}

func (r *overviewResolver) TotalCoins() int32 {
	return int32(r.o.TotalCoins)
}

func (r *overviewResolver) TotalEnergy() int32 {
	return int32(r.o.TotalEnergy)
}

func (r *overviewResolver) Weekly() *periodResolver {
	return &periodResolver{r.o.Weekly}
}

func (r *overviewResolver) Monthly() *periodResolver {
	return &periodResolver{r.o.Monthly}
}

func (r *overviewResolver) Yearly() *periodResolver {
	return &periodResolver{r.o.Yearly}
}

type commentResolver struct {
	view *services.CommentView
}

func (r *commentResolver) ID() string {
	return r.view.ID.Hex()
}

func (r *commentResolver) PollID() string {
	return r.view.PollID.Hex()
}

func (r *commentResolver) Text() *string {
	return r.view.Comment.Comment
}

func (r *commentResolver) GifURL() *string {
	return r.view.GifURL
}

func (r *commentResolver) User() *profileResolver {
	return newProfile(r.view.User)
}

func (r *commentResolver) Likes() int32 {
	return int32(r.view.Likes)
}

func (r *commentResolver) Dislikes() int32 {
	return int32(r.view.Dislikes)
}

func (r *commentResolver) CreatedAt() string {
	return timestamp(r.view.CreatedAt)
}

type energyPackageResolver struct {
	pkg *models.EnergyPackage
}

func (r *energyPackageResolver) ID() string {
	return r.pkg.ID.Hex()
}

func (r *energyPackageResolver) Quantity() int32 {
	return int32(r.pkg.Quantity)
}

func (r *energyPackageResolver) Amount() int32 {
	return int32(r.pkg.Amount)
}

func (r *energyPackageResolver) IsActive() bool {
	return r.pkg.IsActive
}

type balanceResolver struct {
	user *models.User
}

func (r *balanceResolver) Coins() int32 {
	return int32(r.user.Coins)
}

func (r *balanceResolver) Energy() int32 {
	return int32(r.user.Energy)
}

type proposalResolver struct {
	proposal *models.UserProposedPoll
}

func (r *proposalResolver) ID() string {
	return r.proposal.ID.Hex()
}

func (r *proposalResolver) Title() string {
	return r.proposal.Title
}

func (r *proposalResolver) Description() string {
	return r.proposal.Description
}

func (r *proposalResolver) ImageURL() *string {
	return r.proposal.ImageURL
}

func (r *proposalResolver) Options() []string {
	return r.proposal.Options
}

func (r *proposalResolver) ApprovalStatus() string {
	return string(r.proposal.ApprovalStatus)
}

func (r *proposalResolver) TotalCoinsProposed() int32 {
	return int32(r.proposal.TotalCoinsProposed)
}

func (r *proposalResolver) CreatedAt() string {
	return timestamp(r.proposal.CreatedAt)
}

type weightResolver struct {
	weight *models.UserKeywordFamilyWeight
}

func (r *weightResolver) KeywordFamilyID() string {
	return r.weight.KeywordFamilyID.Hex()
}

func (r *weightResolver) Weight() int32 {
	return int32(r.weight.Weight)
}
