package memory

import (
	"context"

	"github.com/pkg/errors"
	"github.com/troydota/api.opinion.komodohype.dev/models"
	"github.com/troydota/api.opinion.komodohype.dev/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (v *view) InsertUser(ctx context.Context, user *models.User) error {
	defer v.lock()()
	dup := v.st.users.first(func(u *models.User) bool {
		return u.Name == user.Name || u.Email == user.Email
	})
	if dup != nil {
		return errors.Wrapf(store.ErrDuplicate, "user %s <%s>", user.Name, user.Email)
	}
	user.Touch(v.now())
	v.st.users.put(user)
	return nil
}

func (v *view) FindUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	defer v.lock()()
	if u := v.st.users.live(id); u != nil {
		return u, nil
	}
	return nil, notFound("user", id)
}

func (v *view) FindUserAny(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	defer v.lock()()
	if u, ok := v.st.users.get(id); ok {
		return u, nil
	}
	return nil, notFound("user", id)
}

func (v *view) FindUsers(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error) {
	defer v.lock()()
	out := map[primitive.ObjectID]*models.User{}
	for _, id := range ids {
		if u := v.st.users.live(id); u != nil {
			out[id] = u
		}
	}
	return out, nil
}

func (v *view) LiveUserIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	defer v.lock()()
	var out []primitive.ObjectID
	for _, u := range v.st.users.filter(nil) {
		out = append(out, u.ID)
	}
	return out, nil
}

func (v *view) AdjustUserBalance(ctx context.Context, id primitive.ObjectID, coins, energy int) (*models.User, error) {
	defer v.lock()()
	u := v.st.users.live(id)
	if u == nil || u.Coins+coins < 0 || u.Energy+energy < 0 {
		return nil, notFound("user with sufficient balance", id)
	}
	u.Coins += coins
	u.Energy += energy
	u.UpdatedAt = v.now()
	v.st.users.put(u)
	return u, nil
}

func (v *view) UserStats(ctx context.Context) (*models.UserStats, error) {
	defer v.lock()()
	stats := &models.UserStats{LevelCounts: map[int]int64{}}
	for _, u := range v.st.users.filter(nil) {
		stats.Count++
		stats.LevelCounts[u.Level]++
		stats.TotalCoins += int64(u.Coins)
		stats.TotalEnergy += int64(u.Energy)
	}
	return stats, nil
}
