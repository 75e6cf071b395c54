package resolvers

import (
	"context"

	log "github.com/sirupsen/logrus"
	"github.com/troydota/api.opinion.komodohype.dev/services"
)

// WatchDistribution sends the poll's current option distribution, then a new
// one every time somebody answers the poll, until the subscriber goes away.
// Users can only watch polls they have answered.
func (r *RootResolver) WatchDistribution(ctx context.Context, args struct{ PollID string }) (<-chan []*optionShareResolver, error) {
	id, err := objectID("pollId", args.PollID)
	if err != nil {
		return nil, err
	}

	shares, err := r.distribution(ctx, id)
	if err != nil {
		return nil, err
	}

	event := services.DistributionChannel(id)
	updates := make(chan distribution, 100)
	if err = r.subscribe(ctx, event, updates); err != nil {
		log.Errorf("redis, err=%v", err)
		return nil, errInternalServer
	}

	rChan := make(chan []*optionShareResolver, 1)
	rChan <- newShares(shares)

	go func() {
		defer close(rChan)
		defer func() {
			if err := r.unsubscribe(context.Background(), event, updates); err != nil {
				log.Errorf("redis, err=%v", err)
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case v := <-updates:
				select {
				case rChan <- newShares(v):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return rChan, nil
}
