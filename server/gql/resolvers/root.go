package resolvers

import (
	"context"
	"sync"

	"github.com/davecgh/go-spew/spew"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/troydota/api.opinion.komodohype.dev/auth"
	"github.com/troydota/api.opinion.komodohype.dev/redis"
	"github.com/troydota/api.opinion.komodohype.dev/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// resolverError is surfaced to clients with its code under extensions.
type resolverError struct {
	message string
	code    string
}

func (e *resolverError) Error() string {
	return e.message
}

func (e *resolverError) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.code}
}

var (
	errInternalServer = &resolverError{"internal server error", services.KindInternal.String()}
	errUnauthorized   = &resolverError{"you need to be signed in to do that", "UNAUTHORIZED"}
	errForbidden      = &resolverError{"only admins can do that", "FORBIDDEN"}
)

func errInvalidID(field string) error {
	return &resolverError{field + " is not a valid id", services.KindValidation.String()}
}

// translate turns a service error into what the client sees. Internal errors
// are logged and replaced by a generic message.
func translate(err error) error {
	if err == nil {
		return nil
	}
	kind := services.KindOf(err)
	if kind == services.KindInternal {
		log.Errorf("resolver, err=%s", spew.Sdump(err))
		return errInternalServer
	}
	var e *services.Error
	if errors.As(err, &e) && e.Message != "" {
		return &resolverError{e.Message, kind.String()}
	}
	return &resolverError{err.Error(), kind.String()}
}

func objectID(field, hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, errInvalidID(field)
	}
	return id, nil
}

func objectIDs(field string, hexes []string) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, len(hexes))
	for i, h := range hexes {
		id, err := objectID(field, h)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

func requireUser(ctx context.Context) (primitive.ObjectID, error) {
	id, ok := auth.UserFrom(ctx)
	if !ok {
		return primitive.NilObjectID, errUnauthorized
	}
	return id, nil
}

func requireAdmin(ctx context.Context) (primitive.ObjectID, error) {
	id, ok := auth.AdminFrom(ctx)
	if !ok {
		if _, user := auth.UserFrom(ctx); user {
			return primitive.NilObjectID, errForbidden
		}
		return primitive.NilObjectID, errUnauthorized
	}
	return id, nil
}

type distribution []services.OptionShare

// New builds the root resolver. Distribution updates published on Redis are
// read from pubsub and fanned out to the subscriptions watching that poll.
func New(svc *services.Service, pubsub *redis.PubSub) *RootResolver {
	rr := &RootResolver{
		svc:    svc,
		mtx:    &sync.Mutex{},
		subs:   make(map[string][]chan distribution),
		pubsub: pubsub,
	}

	go func() {
		for msg := range rr.pubsub.Channel() {
			shares := distribution{}
			err := json.UnmarshalFromString(msg.Payload, &shares)
			if err != nil {
				log.Errorf("redis, err=%v", err)
				continue
			}
			rr.mtx.Lock()
			for _, c := range rr.subs[msg.Channel] {
				select {
				case c <- shares:
				default:
					log.WithField("channel", msg.Channel).Warn("subscriber is behind, dropping update")
				}
			}
			rr.mtx.Unlock()
		}
	}()

	return rr
}

type RootResolver struct {
	svc    *services.Service
	mtx    *sync.Mutex
	subs   map[string][]chan distribution
	pubsub *redis.PubSub
}

func filterSlice(s []chan distribution, r chan distribution) []chan distribution {
	for i, v := range s {
		if v == r {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

func (r *RootResolver) subscribe(ctx context.Context, event string, ch chan distribution) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if v, ok := r.subs[event]; ok {
		r.subs[event] = append(v, ch)
		return nil
	}
	if err := r.pubsub.Subscribe(ctx, event); err != nil {
		return err
	}
	r.subs[event] = []chan distribution{ch}
	return nil
}

func (r *RootResolver) unsubscribe(ctx context.Context, event string, ch chan distribution) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	rest := filterSlice(r.subs[event], ch)
	if len(rest) == 0 {
		delete(r.subs, event)
		return r.pubsub.Unsubscribe(ctx, event)
	}
	r.subs[event] = rest
	return nil
}

func (r *RootResolver) watchers(event string) int {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return len(r.subs[event])
}
