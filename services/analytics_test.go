package services

import (
	"context"
	"math"
	"testing"

	"github.com/troydota/api.opinion.komodohype.dev/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type analyticsWorld struct {
	opinion       *models.Opinion
	economy       primitive.ObjectID
	housing       primitive.ObjectID
	answerers     []*models.User
	skipper       *models.User
	taggedBoth    *models.Poll
	taggedEconomy *models.Poll
}

// seedAnalytics builds two polls sharing one opinion. The first is tagged
// with the economy and housing families, the second with economy only.
// Answers: positive and negative on the first poll, neutral on the second,
// plus one skip of the first poll.
func seedAnalytics(t *testing.T, f *fixture) *analyticsWorld {
	t.Helper()
	ctx := context.Background()
	w := &analyticsWorld{
		opinion: &models.Opinion{Name: "rent control works"},
		economy: primitive.NewObjectID(),
		housing: primitive.NewObjectID(),
	}
	if err := f.store.InsertOpinion(ctx, w.opinion); err != nil {
		t.Fatal(err)
	}
	rates := f.keyword(t, w.economy, "rates")
	rent := f.keyword(t, w.housing, "rent")

	both := validPollInput()
	both.Keywords = []primitive.ObjectID{rates.ID, rent.ID}
	both.Options[0].OpinionShifts = []ShiftInput{{OpinionID: w.opinion.ID, Shift: models.ShiftPositive}}
	both.Options[1].OpinionShifts = []ShiftInput{{OpinionID: w.opinion.ID, Shift: models.ShiftNegative}}
	var err error
	if w.taggedBoth, err = f.svc.CreatePoll(ctx, both, primitive.NewObjectID()); err != nil {
		t.Fatal(err)
	}

	one := validPollInput()
	one.Keywords = []primitive.ObjectID{rates.ID}
	one.Options[0].OpinionShifts = []ShiftInput{{OpinionID: w.opinion.ID, Shift: models.ShiftNeutral}}
	if w.taggedEconomy, err = f.svc.CreatePoll(ctx, one, primitive.NewObjectID()); err != nil {
		t.Fatal(err)
	}

	bothOptions, err := f.svc.ListOptions(ctx, w.taggedBoth.ID)
	if err != nil {
		t.Fatal(err)
	}
	oneOptions, err := f.svc.ListOptions(ctx, w.taggedEconomy.ID)
	if err != nil {
		t.Fatal(err)
	}

	answers := []struct {
		poll   primitive.ObjectID
		option primitive.ObjectID
	}{
		{w.taggedBoth.ID, bothOptions[0].ID},
		{w.taggedBoth.ID, bothOptions[1].ID},
		{w.taggedEconomy.ID, oneOptions[0].ID},
	}
	for i, a := range answers {
		u := f.user(t, string(rune('a'+i)), 0, 10)
		option := a.option
		if _, err = f.svc.CreateInteraction(ctx, u.ID, InteractionInput{PollID: a.poll, OptionID: &option}); err != nil {
			t.Fatal(err)
		}
		w.answerers = append(w.answerers, u)
	}

	w.skipper = f.user(t, "skipper", 0, 10)
	if _, err = f.svc.CreateInteraction(ctx, w.skipper.ID, InteractionInput{PollID: w.taggedBoth.ID}); err != nil {
		t.Fatal(err)
	}
	return w
}

func closeTo(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestOpinionDistributionRequiresEveryFamily(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	w := seedAnalytics(t, f)

	d, err := f.svc.OpinionDistribution(ctx, w.opinion.ID, []primitive.ObjectID{w.economy, w.housing}, DistributionFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if d.Positive.Count != 1 || d.Negative.Count != 1 || d.Neutral.Count != 0 || d.Uninterested.Count != 1 {
		t.Fatalf("distribution %+v", d)
	}
	if !closeTo(d.Positive.Percentage, 100.0/3) || d.Neutral.Percentage != 0 {
		t.Fatalf("percentages %+v", d)
	}

	d, err = f.svc.OpinionDistribution(ctx, w.opinion.ID, []primitive.ObjectID{w.economy}, DistributionFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if d.Positive.Count != 1 || d.Negative.Count != 1 || d.Neutral.Count != 1 || d.Uninterested.Count != 1 {
		t.Fatalf("distribution %+v", d)
	}
	for _, b := range []Bucket{d.Positive, d.Negative, d.Neutral, d.Uninterested} {
		if b.Percentage != 25 {
			t.Fatalf("percentages %+v", d)
		}
	}
}

func TestOpinionDistributionPerUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	w := seedAnalytics(t, f)

	d, err := f.svc.OpinionDistribution(ctx, w.opinion.ID, nil, DistributionFilter{UserID: &w.answerers[0].ID})
	if err != nil {
		t.Fatal(err)
	}
	if d.Positive.Count != 1 || d.Positive.Percentage != 100 || d.Uninterested.Count != 0 {
		t.Fatalf("distribution %+v", d)
	}

	d, err = f.svc.OpinionDistribution(ctx, w.opinion.ID, nil, DistributionFilter{UserID: &w.skipper.ID})
	if err != nil {
		t.Fatal(err)
	}
	if d.Uninterested.Count != 1 || d.Uninterested.Percentage != 100 {
		t.Fatalf("distribution %+v", d)
	}
}

func TestOpinionDistributionEmpty(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.OpinionDistribution(context.Background(), primitive.NewObjectID(), nil, DistributionFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if *d != (OpinionDistribution{}) {
		t.Fatalf("distribution %+v", d)
	}
}

func TestSkipUpgradedToAnswerCountsOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	w := seedAnalytics(t, f)

	options, err := f.svc.ListOptions(ctx, w.taggedBoth.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = f.svc.CreateInteraction(ctx, w.skipper.ID, InteractionInput{PollID: w.taggedBoth.ID, OptionID: &options[0].ID}); err != nil {
		t.Fatal(err)
	}

	d, err := f.svc.OpinionDistribution(ctx, w.opinion.ID, []primitive.ObjectID{w.economy, w.housing}, DistributionFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if d.Positive.Count != 2 || d.Uninterested.Count != 0 {
		t.Fatalf("distribution %+v", d)
	}
}
