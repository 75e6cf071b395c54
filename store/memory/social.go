package memory

import (
	"context"

	"github.com/pkg/errors"
	"github.com/troydota/api.opinion.komodohype.dev/models"
	"github.com/troydota/api.opinion.komodohype.dev/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (v *view) InsertProposal(ctx context.Context, proposal *models.UserProposedPoll) error {
	defer v.lock()()
	proposal.Touch(v.now())
	v.st.proposals.put(proposal)
	return nil
}

func (v *view) FindProposal(ctx context.Context, id primitive.ObjectID) (*models.UserProposedPoll, error) {
	defer v.lock()()
	if p := v.st.proposals.live(id); p != nil {
		return p, nil
	}
	return nil, notFound("proposal", id)
}

func (v *view) ListProposals(ctx context.Context, userID primitive.ObjectID) ([]*models.UserProposedPoll, error) {
	defer v.lock()()
	return v.st.proposals.filter(func(p *models.UserProposedPoll) bool { return p.UserID == userID }), nil
}

func (v *view) ApproveProposal(ctx context.Context, id primitive.ObjectID) (*models.UserProposedPoll, error) {
	defer v.lock()()
	p := v.st.proposals.live(id)
	if p == nil || p.ApprovalStatus == models.ApprovalRejected {
		return nil, notFound("approvable proposal", id)
	}
	p.ApprovalStatus = models.ApprovalApproved
	p.UpdatedAt = v.now()
	v.st.proposals.put(p)
	return p, nil
}

func (v *view) InsertComment(ctx context.Context, comment *models.Comment) error {
	defer v.lock()()
	comment.Touch(v.now())
	v.st.comments.put(comment)
	return nil
}

func (v *view) FindComment(ctx context.Context, id primitive.ObjectID) (*models.Comment, error) {
	defer v.lock()()
	if c := v.st.comments.live(id); c != nil {
		return c, nil
	}
	return nil, notFound("comment", id)
}

func (v *view) ListComments(ctx context.Context, pollID primitive.ObjectID) ([]*models.Comment, error) {
	defer v.lock()()
	comments := v.st.comments.filter(func(c *models.Comment) bool { return c.PollID == pollID })
	// insertion order is creation order
	for i, j := 0, len(comments)-1; i < j; i, j = i+1, j-1 {
		comments[i], comments[j] = comments[j], comments[i]
	}
	return comments, nil
}

func (v *view) FindCommentResponse(ctx context.Context, commentID, userID primitive.ObjectID) (*models.CommentResponse, error) {
	defer v.lock()()
	r := v.st.commentResponses.first(func(r *models.CommentResponse) bool {
		return r.CommentID == commentID && r.UserID == userID
	})
	if r == nil {
		return nil, notFound("response on comment", commentID)
	}
	return r, nil
}

func (v *view) InsertCommentResponse(ctx context.Context, response *models.CommentResponse) error {
	defer v.lock()()
	dup := v.st.commentResponses.first(func(r *models.CommentResponse) bool {
		return r.CommentID == response.CommentID && r.UserID == response.UserID
	})
	if dup != nil {
		return errors.Wrapf(store.ErrDuplicate, "response on comment %s", response.CommentID.Hex())
	}
	response.Touch(v.now())
	v.st.commentResponses.put(response)
	return nil
}

func (v *view) SetCommentResponse(ctx context.Context, id primitive.ObjectID, reaction models.Reaction) error {
	defer v.lock()()
	r := v.st.commentResponses.live(id)
	if r == nil {
		return notFound("comment response", id)
	}
	r.Response = reaction
	r.UpdatedAt = v.now()
	v.st.commentResponses.put(r)
	return nil
}

func (v *view) RemoveCommentResponse(ctx context.Context, id primitive.ObjectID) error {
	defer v.lock()()
	v.st.commentResponses.remove(id)
	return nil
}

func (v *view) CountCommentResponses(ctx context.Context, commentID primitive.ObjectID) (int64, int64, error) {
	defer v.lock()()
	var likes, dislikes int64
	for _, r := range v.st.commentResponses.filter(func(r *models.CommentResponse) bool { return r.CommentID == commentID }) {
		switch r.Response {
		case models.ReactionLike:
			likes++
		case models.ReactionDislike:
			dislikes++
		}
	}
	return likes, dislikes, nil
}

func (v *view) InsertEnergyPackage(ctx context.Context, pkg *models.EnergyPackage) error {
	defer v.lock()()
	pkg.Touch(v.now())
	v.st.energyPackages.put(pkg)
	return nil
}

func (v *view) FindEnergyPackage(ctx context.Context, id primitive.ObjectID) (*models.EnergyPackage, error) {
	defer v.lock()()
	if p := v.st.energyPackages.live(id); p != nil {
		return p, nil
	}
	return nil, notFound("energy package", id)
}

func (v *view) ListEnergyPackages(ctx context.Context, activeOnly bool) ([]*models.EnergyPackage, error) {
	defer v.lock()()
	return v.st.energyPackages.filter(func(p *models.EnergyPackage) bool { return p.IsActive || !activeOnly }), nil
}

func (v *view) SetEnergyPackageActive(ctx context.Context, id primitive.ObjectID, active bool) (*models.EnergyPackage, error) {
	defer v.lock()()
	p := v.st.energyPackages.live(id)
	if p == nil {
		return nil, notFound("energy package", id)
	}
	p.IsActive = active
	p.UpdatedAt = v.now()
	v.st.energyPackages.put(p)
	return p, nil
}

func (v *view) InsertTransaction(ctx context.Context, tx *models.Transaction) error {
	defer v.lock()()
	tx.Touch(v.now())
	v.st.transactions.put(tx)
	return nil
}
