package services

import (
	"context"
	"strings"
	"testing"

	"github.com/troydota/api.opinion.komodohype.dev/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func validPollInput() PollInput {
	return PollInput{
		Title:                "Pineapple on pizza?",
		Description:          "Settle it.",
		TotalCoinsAssigned:   10,
		CoinsRewardedPerPoll: 5,
		EnergyReducedPerPoll: 1,
		Options: []OptionInput{
			{Value: "yes"},
			{Value: "no"},
		},
	}
}

func TestPollInputValidate(t *testing.T) {
	opinion := primitive.NewObjectID()
	keyword := primitive.NewObjectID()

	cases := []struct {
		name   string
		mutate func(in *PollInput)
	}{
		{"empty title", func(in *PollInput) { in.Title = "  " }},
		{"long description", func(in *PollInput) { in.Description = strings.Repeat("x", maxTextLength+1) }},
		{"no coins", func(in *PollInput) { in.TotalCoinsAssigned = 0 }},
		{"reward above cap", func(in *PollInput) { in.CoinsRewardedPerPoll = models.MaxCoinsPerPoll + 1; in.TotalCoinsAssigned = 60 }},
		{"pool not a multiple", func(in *PollInput) { in.TotalCoinsAssigned = 12 }},
		{"negative energy", func(in *PollInput) { in.EnergyReducedPerPoll = -1 }},
		{"one option", func(in *PollInput) { in.Options = in.Options[:1] }},
		{"five options", func(in *PollInput) {
			in.Options = []OptionInput{{Value: "a"}, {Value: "b"}, {Value: "c"}, {Value: "d"}, {Value: "e"}}
		}},
		{"duplicate option", func(in *PollInput) { in.Options[1].Value = "yes" }},
		{"duplicate keyword", func(in *PollInput) { in.Keywords = []primitive.ObjectID{keyword, keyword} }},
		{"invalid shift", func(in *PollInput) {
			in.Options[0].OpinionShifts = []ShiftInput{{OpinionID: opinion, Shift: "sideways"}}
		}},
		{"duplicate opinion on option", func(in *PollInput) {
			in.Options[0].OpinionShifts = []ShiftInput{
				{OpinionID: opinion, Shift: models.ShiftPositive},
				{OpinionID: opinion, Shift: models.ShiftNegative},
			}
		}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			in := validPollInput()
			c.mutate(&in)
			wantKind(t, in.Validate(), KindValidation)
		})
	}

	in := validPollInput()
	if err := in.Validate(); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}
}

func TestCreatePollWithKeywordsAndShifts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	politics, food := primitive.NewObjectID(), primitive.NewObjectID()
	tax := f.keyword(t, politics, "tax")
	vote := f.keyword(t, politics, "vote")
	pizza := f.keyword(t, food, "pizza")
	opinion := &models.Opinion{Name: "pro pineapple"}
	if err := f.store.InsertOpinion(ctx, opinion); err != nil {
		t.Fatal(err)
	}

	in := validPollInput()
	in.Keywords = []primitive.ObjectID{tax.ID, vote.ID, pizza.ID}
	in.Options[0].OpinionShifts = []ShiftInput{{OpinionID: opinion.ID, Shift: models.ShiftPositive}}
	in.Options[1].OpinionShifts = []ShiftInput{{OpinionID: opinion.ID, Shift: models.ShiftNegative}}
	admin := primitive.NewObjectID()

	poll, err := f.svc.CreatePoll(ctx, in, admin)
	if err != nil {
		t.Fatal(err)
	}
	if poll.CoinsRemaining != 10 || poll.CreatedByAdmin != admin {
		t.Fatalf("poll %+v", poll)
	}

	stored := f.reloadPoll(t, poll.ID)
	if len(stored.KeywordFamilies) != 2 || !stored.HasKeywordFamilies([]primitive.ObjectID{politics, food}) {
		t.Fatalf("families %v", stored.KeywordFamilies)
	}

	options, err := f.svc.ListOptions(ctx, poll.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(options) != 2 {
		t.Fatalf("%d options", len(options))
	}
	shifts, err := f.store.ListOpinionShifts(ctx, opinion.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(shifts) != 2 {
		t.Fatalf("%d shifts", len(shifts))
	}
}

func TestCreatePollUnknownKeywordWritesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	in := validPollInput()
	in.Keywords = []primitive.ObjectID{primitive.NewObjectID()}

	_, err := f.svc.CreatePoll(ctx, in, primitive.NewObjectID())
	wantKind(t, err, KindNotFound)

	polls, err := f.svc.ListPolls(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(polls) != 0 {
		t.Fatalf("%d polls survived the failed create", len(polls))
	}
}

func TestCreatePollFromProposal(t *testing.T) {
	newProposal := func(t *testing.T, f *fixture, userID primitive.ObjectID, coins int, status models.ApprovalStatus) *models.UserProposedPoll {
		t.Helper()
		p := &models.UserProposedPoll{
			UserID:             userID,
			Title:              "t",
			Description:        "d",
			Options:            []string{"yes", "no"},
			ApprovalStatus:     status,
			TotalCoinsProposed: coins,
		}
		if err := f.store.InsertProposal(context.Background(), p); err != nil {
			t.Fatal(err)
		}
		return p
	}

	t.Run("debits proposer", func(t *testing.T) {
		ctx := context.Background()
		f := newFixture(t)
		u := f.user(t, "proposer", 30, 0)
		proposal := newProposal(t, f, u.ID, 20, models.ApprovalPending)

		in := validPollInput()
		in.UserProposedPollID = &proposal.ID
		poll, err := f.svc.CreatePoll(ctx, in, primitive.NewObjectID())
		if err != nil {
			t.Fatal(err)
		}
		if *poll.UserProposedPollID != proposal.ID {
			t.Fatal("proposal not linked")
		}
		if got := f.reload(t, u.ID); got.Coins != 10 {
			t.Fatalf("proposer has %d coins", got.Coins)
		}
		stored, err := f.store.FindProposal(ctx, proposal.ID)
		if err != nil {
			t.Fatal(err)
		}
		if stored.ApprovalStatus != models.ApprovalApproved {
			t.Fatalf("status %s", stored.ApprovalStatus)
		}
	})

	t.Run("insufficient coins", func(t *testing.T) {
		ctx := context.Background()
		f := newFixture(t)
		u := f.user(t, "proposer", 5, 0)
		proposal := newProposal(t, f, u.ID, 20, models.ApprovalPending)

		in := validPollInput()
		in.UserProposedPollID = &proposal.ID
		_, err := f.svc.CreatePoll(ctx, in, primitive.NewObjectID())
		wantKind(t, err, KindInsufficientResource)

		stored, err := f.store.FindProposal(ctx, proposal.ID)
		if err != nil {
			t.Fatal(err)
		}
		if stored.ApprovalStatus != models.ApprovalPending {
			t.Fatal("approval was not rolled back")
		}
		if got := f.reload(t, u.ID); got.Coins != 5 {
			t.Fatalf("proposer has %d coins", got.Coins)
		}
	})

	t.Run("rejected proposal", func(t *testing.T) {
		f := newFixture(t)
		u := f.user(t, "proposer", 50, 0)
		proposal := newProposal(t, f, u.ID, 0, models.ApprovalRejected)

		in := validPollInput()
		in.UserProposedPollID = &proposal.ID
		_, err := f.svc.CreatePoll(context.Background(), in, primitive.NewObjectID())
		wantKind(t, err, KindNotFound)
	})

	t.Run("missing proposer", func(t *testing.T) {
		f := newFixture(t)
		proposal := newProposal(t, f, primitive.NewObjectID(), 10, models.ApprovalPending)

		in := validPollInput()
		in.UserProposedPollID = &proposal.ID
		_, err := f.svc.CreatePoll(context.Background(), in, primitive.NewObjectID())
		wantKind(t, err, KindNotFound)
	})
}

func TestDeletePollsCascades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	poll, options := f.poll(t, 10, 5, 0)
	u := f.user(t, "u", 0, 0)

	if _, err := f.svc.CreateInteraction(ctx, u.ID, InteractionInput{PollID: poll.ID, OptionID: &options[0].ID}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.CreateComment(ctx, u.ID, CommentInput{PollID: poll.ID, Text: ptr("first")}); err != nil {
		t.Fatal(err)
	}

	if err := f.svc.DeletePolls(ctx, []primitive.ObjectID{poll.ID}); err != nil {
		t.Fatal(err)
	}

	_, err := f.svc.GetPoll(ctx, poll.ID)
	wantKind(t, err, KindNotFound)
	if opts, _ := f.svc.ListOptions(ctx, poll.ID); len(opts) != 0 {
		t.Fatalf("%d options survived", len(opts))
	}
	if _, err = f.store.FindInteraction(ctx, u.ID, poll.ID); err == nil {
		t.Fatal("interaction survived")
	}
	if comments, _ := f.svc.CommentsByPoll(ctx, poll.ID); len(comments) != 0 {
		t.Fatalf("%d comments survived", len(comments))
	}

	wantKind(t, f.svc.DeletePolls(ctx, []primitive.ObjectID{poll.ID}), KindNotFound)
	wantKind(t, f.svc.DeletePolls(ctx, nil), KindValidation)
}

func TestOptionBounds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	poll, options := f.poll(t, 10, 5, 0)

	wantKind(t, f.svc.DeleteOption(ctx, options[0].ID), KindValidation)

	for _, v := range []string{"maybe", "later"} {
		if _, err := f.svc.AddOption(ctx, poll.ID, OptionInput{Value: v}); err != nil {
			t.Fatal(err)
		}
	}
	_, err := f.svc.AddOption(ctx, poll.ID, OptionInput{Value: "never"})
	wantKind(t, err, KindValidation)

	if err = f.svc.DeleteOption(ctx, options[0].ID); err != nil {
		t.Fatal(err)
	}
	remaining, err := f.svc.ListOptions(ctx, poll.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 3 {
		t.Fatalf("%d options", len(remaining))
	}

	_, err = f.svc.AddOption(ctx, primitive.NewObjectID(), OptionInput{Value: "x"})
	wantKind(t, err, KindNotFound)
}

func TestKeywordLinksRefreshFamilies(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	poll, _ := f.poll(t, 10, 5, 0)
	sport, music := primitive.NewObjectID(), primitive.NewObjectID()
	football := f.keyword(t, sport, "football")
	jazz := f.keyword(t, music, "jazz")

	for _, k := range []*models.Keyword{football, jazz, football} {
		if err := f.svc.LinkKeyword(ctx, poll.ID, k.ID); err != nil {
			t.Fatal(err)
		}
	}
	if got := f.reloadPoll(t, poll.ID).KeywordFamilies; len(got) != 2 {
		t.Fatalf("families %v", got)
	}

	if err := f.svc.UnlinkKeyword(ctx, poll.ID, jazz.ID); err != nil {
		t.Fatal(err)
	}
	if got := f.reloadPoll(t, poll.ID).KeywordFamilies; len(got) != 1 || got[0] != sport {
		t.Fatalf("families %v", got)
	}
	wantKind(t, f.svc.UnlinkKeyword(ctx, poll.ID, jazz.ID), KindNotFound)

	if err := f.svc.DeleteKeywords(ctx, []primitive.ObjectID{football.ID}); err != nil {
		t.Fatal(err)
	}
	if got := f.reloadPoll(t, poll.ID).KeywordFamilies; len(got) != 0 {
		t.Fatalf("families %v", got)
	}
}

func TestDeleteOpinionCascadesShifts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	opinion := &models.Opinion{Name: "pro pineapple"}
	if err := f.store.InsertOpinion(ctx, opinion); err != nil {
		t.Fatal(err)
	}
	in := validPollInput()
	in.Options[0].OpinionShifts = []ShiftInput{{OpinionID: opinion.ID, Shift: models.ShiftNeutral}}
	if _, err := f.svc.CreatePoll(ctx, in, primitive.NewObjectID()); err != nil {
		t.Fatal(err)
	}

	if err := f.svc.DeleteOpinion(ctx, opinion.ID); err != nil {
		t.Fatal(err)
	}
	shifts, err := f.store.ListOpinionShifts(ctx, opinion.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(shifts) != 0 {
		t.Fatalf("%d shifts survived", len(shifts))
	}
	wantKind(t, f.svc.DeleteOpinion(ctx, opinion.ID), KindNotFound)
}

func TestShiftsNeedLiveOpinion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	archived := &models.Opinion{Name: "pro pineapple"}
	if err := f.store.InsertOpinion(ctx, archived); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.DeleteOpinion(ctx, archived.ID); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name    string
		opinion primitive.ObjectID
	}{
		{"unknown", primitive.NewObjectID()},
		{"archived", archived.ID},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			in := validPollInput()
			in.Options[1].OpinionShifts = []ShiftInput{{OpinionID: c.opinion, Shift: models.ShiftPositive}}
			_, err := f.svc.CreatePoll(ctx, in, primitive.NewObjectID())
			wantKind(t, err, KindNotFound)

			polls, err := f.svc.ListPolls(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(polls) != 0 {
				t.Fatalf("%d polls survived the failed create", len(polls))
			}
			shifts, err := f.store.ListOpinionShifts(ctx, c.opinion)
			if err != nil {
				t.Fatal(err)
			}
			if len(shifts) != 0 {
				t.Fatalf("%d shifts written", len(shifts))
			}
		})
	}

	poll, _ := f.poll(t, 10, 5, 0)
	for _, c := range cases {
		t.Run("add option "+c.name, func(t *testing.T) {
			_, err := f.svc.AddOption(ctx, poll.ID, OptionInput{
				Value:         "maybe",
				OpinionShifts: []ShiftInput{{OpinionID: c.opinion, Shift: models.ShiftNegative}},
			})
			wantKind(t, err, KindNotFound)

			options, err := f.svc.ListOptions(ctx, poll.ID)
			if err != nil {
				t.Fatal(err)
			}
			if len(options) != 2 {
				t.Fatalf("%d options", len(options))
			}
			shifts, err := f.store.ListOpinionShifts(ctx, c.opinion)
			if err != nil {
				t.Fatal(err)
			}
			if len(shifts) != 0 {
				t.Fatalf("%d shifts written", len(shifts))
			}
		})
	}
}
