// Package store declares the persistence contract the services run against.
// Two backends implement it: store/memory and the mongo package.
//
// Every Find* method only returns live documents (archivedAt == null) unless
// its name says otherwise, and reports ErrNotFound when nothing matches.
package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/troydota/api.opinion.komodohype.dev/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a write would break a unique combination.
	ErrDuplicate = errors.New("duplicate unique combination")
	// ErrConflict is returned when a write lost a race with another writer and
	// may be retried.
	ErrConflict = errors.New("write conflict")
	// ErrDeletePrevented is returned when live dependents block a soft delete.
	ErrDeletePrevented = errors.New("delete prevented by dependents")
)

type UserRepository interface {
	InsertUser(ctx context.Context, user *models.User) error
	FindUser(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	// FindUserAny also returns archived users.
	FindUserAny(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindUsers(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error)
	LiveUserIDs(ctx context.Context) ([]primitive.ObjectID, error)
	// AdjustUserBalance adds the deltas to a live user's coins and energy in a
	// single conditional write. It reports ErrNotFound when the user is not
	// live or either balance would drop below zero.
	AdjustUserBalance(ctx context.Context, id primitive.ObjectID, coins, energy int) (*models.User, error)
	UserStats(ctx context.Context) (*models.UserStats, error)
}

type PollRepository interface {
	InsertPoll(ctx context.Context, poll *models.Poll) error
	FindPoll(ctx context.Context, id primitive.ObjectID) (*models.Poll, error)
	FindPolls(ctx context.Context, ids []primitive.ObjectID) ([]*models.Poll, error)
	ListPolls(ctx context.Context) ([]*models.Poll, error)
	CountPolls(ctx context.Context) (int64, error)
	// CandidatePollIDs lists up to limit live polls not in exclude, in
	// natural store order.
	CandidatePollIDs(ctx context.Context, exclude []primitive.ObjectID, limit int) ([]primitive.ObjectID, error)
	// DeductPollCoins lowers coins_remaining by amount only if at least amount
	// remains, otherwise ErrNotFound.
	DeductPollCoins(ctx context.Context, id primitive.ObjectID, amount int) (*models.Poll, error)
	SetPollKeywordFamilies(ctx context.Context, id primitive.ObjectID, families []primitive.ObjectID) error

	InsertOption(ctx context.Context, option *models.Option) error
	FindOption(ctx context.Context, id primitive.ObjectID) (*models.Option, error)
	FindOptions(ctx context.Context, ids []primitive.ObjectID) ([]*models.Option, error)
	ListOptions(ctx context.Context, pollID primitive.ObjectID) ([]*models.Option, error)

	InsertOpinionShift(ctx context.Context, shift *models.OptionOpinionShift) error
	ListOpinionShifts(ctx context.Context, opinionID primitive.ObjectID) ([]*models.OptionOpinionShift, error)
	InsertOpinion(ctx context.Context, opinion *models.Opinion) error
	FindOpinion(ctx context.Context, id primitive.ObjectID) (*models.Opinion, error)
}

type KeywordRepository interface {
	InsertKeyword(ctx context.Context, keyword *models.Keyword) error
	FindKeywords(ctx context.Context, ids []primitive.ObjectID) ([]*models.Keyword, error)
	InsertPollKeyword(ctx context.Context, link *models.PollKeyword) error
	FindPollKeyword(ctx context.Context, pollID, keywordID primitive.ObjectID) (*models.PollKeyword, error)
	ListPollKeywords(ctx context.Context, pollID primitive.ObjectID) ([]*models.PollKeyword, error)
	PollIDsForKeyword(ctx context.Context, keywordID primitive.ObjectID) ([]primitive.ObjectID, error)
}

type InteractionRepository interface {
	InsertInteraction(ctx context.Context, interaction *models.Interaction) error
	FindInteraction(ctx context.Context, userID, pollID primitive.ObjectID) (*models.Interaction, error)
	// AnswerInteraction sets the option of a skipped interaction and adds the
	// gained coins and spent energy. It reports ErrConflict when the
	// interaction already carries an option.
	AnswerInteraction(ctx context.Context, id, optionID primitive.ObjectID, coins, energy int) (*models.Interaction, error)
	InteractedPollIDs(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error)
	// CountAnswersByOption counts live interactions per chosen option among
	// optionIDs, optionally restricted to one user.
	CountAnswersByOption(ctx context.Context, optionIDs []primitive.ObjectID, userID *primitive.ObjectID) (map[primitive.ObjectID]int64, error)
	// CountSkipsByPoll counts live interactions without an option per poll.
	CountSkipsByPoll(ctx context.Context, userID *primitive.ObjectID) (map[primitive.ObjectID]int64, error)
	CountSkipsBetween(ctx context.Context, from, to time.Time) (int64, error)
}

type WeightRepository interface {
	// IncrementWeight upserts the (user, family) weight and adds by to it.
	IncrementWeight(ctx context.Context, userID, familyID primitive.ObjectID, by int) (*models.UserKeywordFamilyWeight, error)
	SetWeight(ctx context.Context, userID, familyID primitive.ObjectID, weight int) (*models.UserKeywordFamilyWeight, error)
	FindWeight(ctx context.Context, userID, familyID primitive.ObjectID) (*models.UserKeywordFamilyWeight, error)
	ListWeights(ctx context.Context, userID primitive.ObjectID) ([]*models.UserKeywordFamilyWeight, error)
}

type ProposalRepository interface {
	InsertProposal(ctx context.Context, proposal *models.UserProposedPoll) error
	FindProposal(ctx context.Context, id primitive.ObjectID) (*models.UserProposedPoll, error)
	ListProposals(ctx context.Context, userID primitive.ObjectID) ([]*models.UserProposedPoll, error)
	// ApproveProposal marks a live, not rejected proposal approved.
	ApproveProposal(ctx context.Context, id primitive.ObjectID) (*models.UserProposedPoll, error)
}

type CommentRepository interface {
	InsertComment(ctx context.Context, comment *models.Comment) error
	FindComment(ctx context.Context, id primitive.ObjectID) (*models.Comment, error)
	// ListComments returns a poll's live comments, newest first.
	ListComments(ctx context.Context, pollID primitive.ObjectID) ([]*models.Comment, error)
	FindCommentResponse(ctx context.Context, commentID, userID primitive.ObjectID) (*models.CommentResponse, error)
	InsertCommentResponse(ctx context.Context, response *models.CommentResponse) error
	SetCommentResponse(ctx context.Context, id primitive.ObjectID, reaction models.Reaction) error
	RemoveCommentResponse(ctx context.Context, id primitive.ObjectID) error
	CountCommentResponses(ctx context.Context, commentID primitive.ObjectID) (likes, dislikes int64, err error)
}

type EconomyRepository interface {
	InsertEnergyPackage(ctx context.Context, pkg *models.EnergyPackage) error
	FindEnergyPackage(ctx context.Context, id primitive.ObjectID) (*models.EnergyPackage, error)
	ListEnergyPackages(ctx context.Context, activeOnly bool) ([]*models.EnergyPackage, error)
	SetEnergyPackageActive(ctx context.Context, id primitive.ObjectID, active bool) (*models.EnergyPackage, error)
	InsertTransaction(ctx context.Context, tx *models.Transaction) error
}

type Repository interface {
	UserRepository
	PollRepository
	KeywordRepository
	InteractionRepository
	WeightRepository
	ProposalRepository
	CommentRepository
	EconomyRepository

	// SoftDelete archives the entity and applies DeleteDependencies.
	SoftDelete(ctx context.Context, entity Entity, id primitive.ObjectID) error
}

// Store is a Repository that can also run a unit of work. Transaction calls fn
// with a Repository bound to one transaction and commits only if fn returns
// nil; any error rolls every write inside fn back.
type Store interface {
	Repository
	Transaction(ctx context.Context, fn func(ctx context.Context, tx Repository) error) error
	Close(ctx context.Context) error
}
