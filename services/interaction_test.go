package services

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/troydota/api.opinion.komodohype.dev/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCoinPoolRunsDry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	poll, options := f.poll(t, 10, 5, 1)

	want := []int{5, 5, 0}
	for i, coins := range want {
		u := f.user(t, string(rune('a'+i)), 0, 3)
		res, err := f.svc.CreateInteraction(ctx, u.ID, InteractionInput{PollID: poll.ID, OptionID: &options[0].ID})
		if err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
		if res.Outcome != OutcomeAnswered {
			t.Fatalf("answer %d: outcome %q", i, res.Outcome)
		}
		if res.Interaction.CoinsGained != coins {
			t.Fatalf("answer %d: gained %d coins, want %d", i, res.Interaction.CoinsGained, coins)
		}
		if res.Interaction.OptionID == nil || *res.Interaction.OptionID != options[0].ID {
			t.Fatalf("answer %d: option not recorded", i)
		}

		got := f.reload(t, u.ID)
		if got.Coins != coins || got.Energy != 2 {
			t.Fatalf("answer %d: balance coins=%d energy=%d", i, got.Coins, got.Energy)
		}
	}

	if p := f.reloadPoll(t, poll.ID); p.CoinsRemaining != 0 {
		t.Fatalf("coins remaining %d", p.CoinsRemaining)
	}
	if f.pub.count() != 3 {
		t.Fatalf("published %d distributions, want 3", f.pub.count())
	}
	if !strings.HasPrefix(f.pub.messages[0].channel, "events:poll:distribution:") {
		t.Fatalf("channel %q", f.pub.messages[0].channel)
	}
}

func TestInsufficientEnergyChangesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	poll, options := f.poll(t, 10, 5, 2)
	u := f.user(t, "tired", 7, 1)

	_, err := f.svc.CreateInteraction(ctx, u.ID, InteractionInput{PollID: poll.ID, OptionID: &options[1].ID})
	wantKind(t, err, KindInsufficientResource)

	got := f.reload(t, u.ID)
	if got.Coins != 7 || got.Energy != 1 {
		t.Fatalf("balance changed: coins=%d energy=%d", got.Coins, got.Energy)
	}
	if p := f.reloadPoll(t, poll.ID); p.CoinsRemaining != 10 {
		t.Fatalf("pool changed: %d", p.CoinsRemaining)
	}
	if _, err = f.store.FindInteraction(ctx, u.ID, poll.ID); err == nil {
		t.Fatal("interaction was written")
	}
	if f.pub.count() != 0 {
		t.Fatal("distribution published for a failed answer")
	}
}

func TestSkipThenAnswer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	poll, options := f.poll(t, 10, 5, 1)
	u := f.user(t, "u", 0, 5)

	skip, err := f.svc.CreateInteraction(ctx, u.ID, InteractionInput{PollID: poll.ID})
	if err != nil {
		t.Fatal(err)
	}
	if skip.Outcome != OutcomeSkipped || skip.Distribution != nil {
		t.Fatalf("skip result %+v", skip)
	}
	if got := f.reload(t, u.ID); got.Coins != 0 || got.Energy != 5 {
		t.Fatalf("skip moved balances: %+v", got)
	}

	again, err := f.svc.CreateInteraction(ctx, u.ID, InteractionInput{PollID: poll.ID})
	if err != nil {
		t.Fatal(err)
	}
	if again.Outcome != OutcomeRepeated || again.Interaction.ID != skip.Interaction.ID {
		t.Fatalf("second skip %+v", again)
	}

	answer, err := f.svc.CreateInteraction(ctx, u.ID, InteractionInput{PollID: poll.ID, OptionID: &options[0].ID})
	if err != nil {
		t.Fatal(err)
	}
	if answer.Outcome != OutcomeAnswered {
		t.Fatalf("outcome %q", answer.Outcome)
	}
	if answer.Interaction.ID != skip.Interaction.ID {
		t.Fatal("answer must upgrade the skip in place")
	}
	if got := f.reload(t, u.ID); got.Coins != 5 || got.Energy != 4 {
		t.Fatalf("balance coins=%d energy=%d", got.Coins, got.Energy)
	}

	after, err := f.svc.CreateInteraction(ctx, u.ID, InteractionInput{PollID: poll.ID})
	if err != nil {
		t.Fatal(err)
	}
	if after.Outcome != OutcomeRepeated || after.Interaction.OptionID == nil {
		t.Fatalf("skip after answer %+v", after)
	}
}

func TestDoubleSubmitIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	poll, options := f.poll(t, 20, 5, 1)
	u := f.user(t, "u", 0, 5)

	in := InteractionInput{PollID: poll.ID, OptionID: &options[0].ID}
	if _, err := f.svc.CreateInteraction(ctx, u.ID, in); err != nil {
		t.Fatal(err)
	}
	res, err := f.svc.CreateInteraction(ctx, u.ID, InteractionInput{PollID: poll.ID, OptionID: &options[1].ID})
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeRepeated {
		t.Fatalf("outcome %q", res.Outcome)
	}
	if *res.Interaction.OptionID != options[0].ID {
		t.Fatal("the first answer must stand")
	}
	if len(res.Distribution) != 2 || res.Distribution[0].Count != 1 || res.Distribution[0].Percentage != 100 {
		t.Fatalf("distribution %+v", res.Distribution)
	}
	if got := f.reload(t, u.ID); got.Coins != 5 || got.Energy != 4 {
		t.Fatalf("balance coins=%d energy=%d", got.Coins, got.Energy)
	}
	if p := f.reloadPoll(t, poll.ID); p.CoinsRemaining != 15 {
		t.Fatalf("coins remaining %d", p.CoinsRemaining)
	}
}

func TestConcurrentAnswersNeverOverdrawPool(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	poll, options := f.poll(t, 10, 5, 1)

	users := make([]*models.User, 8)
	for i := range users {
		users[i] = f.user(t, string(rune('a'+i)), 0, 1)
	}

	var (
		wg       sync.WaitGroup
		failures int64
		awarded  int64
	)
	for _, u := range users {
		wg.Add(1)
		go func(id primitive.ObjectID) {
			defer wg.Done()
			res, err := f.svc.CreateInteraction(ctx, id, InteractionInput{PollID: poll.ID, OptionID: &options[1].ID})
			if err != nil {
				atomic.AddInt64(&failures, 1)
				return
			}
			atomic.AddInt64(&awarded, int64(res.Interaction.CoinsGained))
		}(u.ID)
	}
	wg.Wait()

	if failures != 0 {
		t.Fatalf("%d answers failed", failures)
	}
	if awarded != 10 {
		t.Fatalf("awarded %d coins, pool held 10", awarded)
	}
	if p := f.reloadPoll(t, poll.ID); p.CoinsRemaining != 0 {
		t.Fatalf("coins remaining %d", p.CoinsRemaining)
	}

	shares, err := f.svc.OptionDistribution(ctx, poll.ID)
	if err != nil {
		t.Fatal(err)
	}
	if shares[1].Count != int64(len(users)) || shares[1].Percentage != 100 {
		t.Fatalf("distribution %+v", shares)
	}
}

func TestFailedUnitOfWorkRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	boom := errors.New("weight store down")
	svc := New(failingStore{Store: f.store, err: boom}, f.cache, WithCacheSemantics(errMiss, keepTTL), WithPublisher(f.pub))

	family := primitive.NewObjectID()
	poll := &models.Poll{
		Title:                "tagged",
		Description:          "d",
		TotalCoinsAssigned:   10,
		CoinsRemaining:       10,
		CoinsRewardedPerPoll: 5,
		EnergyReducedPerPoll: 1,
		KeywordFamilies:      []primitive.ObjectID{family},
	}
	if err := f.store.InsertPoll(ctx, poll); err != nil {
		t.Fatal(err)
	}
	option := &models.Option{PollID: poll.ID, Value: "yes"}
	if err := f.store.InsertOption(ctx, option); err != nil {
		t.Fatal(err)
	}
	u := f.user(t, "u", 1, 1)

	_, err := svc.CreateInteraction(ctx, u.ID, InteractionInput{PollID: poll.ID, OptionID: &option.ID})
	wantKind(t, err, KindInternal)
	if !errors.Is(err, boom) {
		t.Fatalf("cause lost: %v", err)
	}

	if got := f.reload(t, u.ID); got.Coins != 1 || got.Energy != 1 {
		t.Fatalf("balance coins=%d energy=%d", got.Coins, got.Energy)
	}
	if p := f.reloadPoll(t, poll.ID); p.CoinsRemaining != 10 {
		t.Fatalf("coins remaining %d", p.CoinsRemaining)
	}
	if _, err = f.store.FindInteraction(ctx, u.ID, poll.ID); err == nil {
		t.Fatal("interaction survived the rollback")
	}
	if f.pub.count() != 0 {
		t.Fatal("distribution published for a rolled back answer")
	}
}

func TestAnswerIncrementsFamilyWeights(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	families := []primitive.ObjectID{primitive.NewObjectID(), primitive.NewObjectID()}
	poll := &models.Poll{
		Title:                "tagged",
		Description:          "d",
		TotalCoinsAssigned:   5,
		CoinsRemaining:       5,
		CoinsRewardedPerPoll: 5,
		KeywordFamilies:      families,
	}
	if err := f.store.InsertPoll(ctx, poll); err != nil {
		t.Fatal(err)
	}
	option := &models.Option{PollID: poll.ID, Value: "yes"}
	if err := f.store.InsertOption(ctx, option); err != nil {
		t.Fatal(err)
	}
	u := f.user(t, "u", 0, 0)

	if _, err := f.svc.CreateInteraction(ctx, u.ID, InteractionInput{PollID: poll.ID, OptionID: &option.ID}); err != nil {
		t.Fatal(err)
	}
	weights, err := f.svc.Weights(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(weights) != 2 {
		t.Fatalf("%d weights", len(weights))
	}
	for _, w := range weights {
		if w.Weight != 1 {
			t.Fatalf("weight %d for family %s", w.Weight, w.KeywordFamilyID.Hex())
		}
	}
}

func TestInteractionLookupFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	poll, _ := f.poll(t, 10, 5, 0)
	_, foreign := f.poll(t, 10, 5, 0)
	u := f.user(t, "u", 0, 0)

	_, err := f.svc.CreateInteraction(ctx, u.ID, InteractionInput{PollID: poll.ID, OptionID: &foreign[0].ID})
	wantKind(t, err, KindNotFound)

	_, err = f.svc.CreateInteraction(ctx, u.ID, InteractionInput{PollID: primitive.NewObjectID()})
	wantKind(t, err, KindNotFound)

	_, err = f.svc.CreateInteraction(ctx, primitive.NewObjectID(), InteractionInput{PollID: poll.ID})
	wantKind(t, err, KindNotFound)
}

func TestAnswerMarksQueueEntryUsed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first, options := f.poll(t, 10, 5, 0)
	second, _ := f.poll(t, 10, 5, 0)
	u := f.user(t, "u", 0, 0)

	next, err := f.svc.FetchOrRecalculateNextPoll(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if next.PollID != first.ID {
		t.Fatalf("next %s, want %s", next.PollID.Hex(), first.ID.Hex())
	}

	if _, err = f.svc.CreateInteraction(ctx, u.ID, InteractionInput{PollID: first.ID, OptionID: &options[0].ID}); err != nil {
		t.Fatal(err)
	}
	queue := f.cache.queue(t, u.ID)
	if len(queue) != 2 || queue[0].CanUse || !queue[1].CanUse {
		t.Fatalf("queue %+v", queue)
	}

	next, err = f.svc.FetchOrRecalculateNextPoll(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if next.PollID != second.ID {
		t.Fatalf("next %s, want %s", next.PollID.Hex(), second.ID.Hex())
	}
}

func TestOptionDistributionForAnsweredOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	poll, options := f.poll(t, 10, 5, 1)
	u := f.user(t, "u", 0, 5)

	_, err := f.svc.OptionDistributionFor(ctx, u.ID, poll.ID)
	wantKind(t, err, KindNotFound)

	if _, err = f.svc.CreateInteraction(ctx, u.ID, InteractionInput{PollID: poll.ID}); err != nil {
		t.Fatal(err)
	}
	_, err = f.svc.OptionDistributionFor(ctx, u.ID, poll.ID)
	wantKind(t, err, KindNotFound)

	if _, err = f.svc.CreateInteraction(ctx, u.ID, InteractionInput{PollID: poll.ID, OptionID: &options[1].ID}); err != nil {
		t.Fatal(err)
	}
	shares, err := f.svc.OptionDistributionFor(ctx, u.ID, poll.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(shares) != 2 || shares[1].Count != 1 {
		t.Fatalf("shares %+v", shares)
	}
}
