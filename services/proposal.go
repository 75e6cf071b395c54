package services

import (
	"context"

	"github.com/troydota/api.opinion.komodohype.dev/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProposalInput struct {
	Title              string
	Description        string
	ImageURL           *string
	Options            []string
	TotalCoinsProposed int
}

func (in *ProposalInput) Validate() error {
	if err := checkText("title", in.Title); err != nil {
		return err
	}
	if err := checkText("description", in.Description); err != nil {
		return err
	}
	if in.TotalCoinsProposed < 0 {
		return invalid("totalCoinsProposed must not be negative")
	}
	return checkOptionValues(in.Options)
}

// ProposePoll records a pending proposal. Coins are only taken from the
// proposer when an admin turns the proposal into a poll.
func (s *Service) ProposePoll(ctx context.Context, userID primitive.ObjectID, in ProposalInput) (*models.UserProposedPoll, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.store.FindUser(ctx, userID); err != nil {
		if isStoreNotFound(err) {
			return nil, notFound("user %s not found or is archived", userID.Hex())
		}
		return nil, wrap(err)
	}

	proposal := &models.UserProposedPoll{
		UserID:             userID,
		Title:              in.Title,
		Description:        in.Description,
		ImageURL:           in.ImageURL,
		Options:            append([]string{}, in.Options...),
		ApprovalStatus:     models.ApprovalPending,
		TotalCoinsProposed: in.TotalCoinsProposed,
	}
	if err := s.store.InsertProposal(ctx, proposal); err != nil {
		return nil, wrap(err)
	}
	return proposal, nil
}

func (s *Service) ListProposals(ctx context.Context, userID primitive.ObjectID) ([]*models.UserProposedPoll, error) {
	proposals, err := s.store.ListProposals(ctx, userID)
	return proposals, wrap(err)
}

// GetProposal returns one of the user's own live proposals.
func (s *Service) GetProposal(ctx context.Context, userID, proposalID primitive.ObjectID) (*models.UserProposedPoll, error) {
	proposal, err := s.store.FindProposal(ctx, proposalID)
	if err != nil && !isStoreNotFound(err) {
		return nil, wrap(err)
	}
	if proposal == nil || proposal.UserID != userID {
		return nil, notFound("proposal %s not found", proposalID.Hex())
	}
	return proposal, nil
}
