// Package memory is an in-process store.Store. A transaction works on a
// snapshot of every table and replaces the committed state only when its
// callback succeeds, so a failed unit of work leaves nothing behind.
// Transactions are serialized by one mutex.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/troydota/api.opinion.komodohype.dev/models"
	"github.com/troydota/api.opinion.komodohype.dev/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type row[T any] interface {
	*T
	GetBase() *models.Base
}

type table[T any, P row[T]] struct {
	order []primitive.ObjectID
	rows  map[primitive.ObjectID]P
}

func newTable[T any, P row[T]]() *table[T, P] {
	return &table[T, P]{rows: map[primitive.ObjectID]P{}}
}

func copyOf[T any, P row[T]](p P) P {
	c := *p
	return P(&c)
}

func (t *table[T, P]) clone() *table[T, P] {
	c := &table[T, P]{
		order: make([]primitive.ObjectID, len(t.order)),
		rows:  make(map[primitive.ObjectID]P, len(t.rows)),
	}
	copy(c.order, t.order)
	for k, v := range t.rows {
		c.rows[k] = v
	}
	return c
}

func (t *table[T, P]) get(id primitive.ObjectID) (P, bool) {
	v, ok := t.rows[id]
	if !ok {
		return nil, false
	}
	return copyOf[T, P](v), true
}

// live returns the live row with id, or nil.
func (t *table[T, P]) live(id primitive.ObjectID) P {
	v, ok := t.get(id)
	if !ok || !v.GetBase().Live() {
		return nil
	}
	return v
}

func (t *table[T, P]) put(doc P) {
	id := doc.GetBase().ID
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = copyOf[T, P](doc)
}

func (t *table[T, P]) remove(id primitive.ObjectID) {
	if _, ok := t.rows[id]; !ok {
		return
	}
	delete(t.rows, id)
	for i, v := range t.order {
		if v == id {
			t.order = append(t.order[:i:i], t.order[i+1:]...)
			break
		}
	}
}

// filter returns copies of the live rows matching fn in insertion order.
func (t *table[T, P]) filter(fn func(P) bool) []P {
	var out []P
	for _, id := range t.order {
		v := t.rows[id]
		if !v.GetBase().Live() {
			continue
		}
		if fn == nil || fn(v) {
			out = append(out, copyOf[T, P](v))
		}
	}
	return out
}

func (t *table[T, P]) first(fn func(P) bool) P {
	for _, id := range t.order {
		v := t.rows[id]
		if v.GetBase().Live() && fn(v) {
			return copyOf[T, P](v)
		}
	}
	return nil
}

func (t *table[T, P]) lookup(id primitive.ObjectID) (bool, bool) {
	v, ok := t.rows[id]
	if !ok {
		return false, false
	}
	return true, v.GetBase().Live()
}

func (t *table[T, P]) referencing(field string, id primitive.ObjectID) ([]primitive.ObjectID, error) {
	path := strings.Split(field, ".")
	var out []primitive.ObjectID
	for _, rid := range t.order {
		v := t.rows[rid]
		if !v.GetBase().Live() {
			continue
		}
		raw, err := bson.Marshal(v)
		if err != nil {
			return nil, errors.Wrapf(err, "memory, marshal %s", rid.Hex())
		}
		val, err := bson.Raw(raw).LookupErr(path...)
		if err != nil {
			continue
		}
		if val.Type == bsontype.ObjectID && val.ObjectID() == id {
			out = append(out, rid)
		}
	}
	return out, nil
}

func (t *table[T, P]) archive(id primitive.ObjectID, at time.Time) {
	v, ok := t.get(id)
	if !ok {
		return
	}
	b := v.GetBase()
	b.ArchivedAt = &at
	b.UpdatedAt = at
	t.rows[id] = v
}

type archivable interface {
	lookup(id primitive.ObjectID) (found, live bool)
	referencing(field string, id primitive.ObjectID) ([]primitive.ObjectID, error)
	archive(id primitive.ObjectID, at time.Time)
}

type state struct {
	users            *table[models.User, *models.User]
	polls            *table[models.Poll, *models.Poll]
	options          *table[models.Option, *models.Option]
	shifts           *table[models.OptionOpinionShift, *models.OptionOpinionShift]
	opinions         *table[models.Opinion, *models.Opinion]
	interactions     *table[models.Interaction, *models.Interaction]
	keywords         *table[models.Keyword, *models.Keyword]
	pollKeywords     *table[models.PollKeyword, *models.PollKeyword]
	weights          *table[models.UserKeywordFamilyWeight, *models.UserKeywordFamilyWeight]
	proposals        *table[models.UserProposedPoll, *models.UserProposedPoll]
	comments         *table[models.Comment, *models.Comment]
	commentResponses *table[models.CommentResponse, *models.CommentResponse]
	energyPackages   *table[models.EnergyPackage, *models.EnergyPackage]
	transactions     *table[models.Transaction, *models.Transaction]
}

func newState() *state {
	return &state{
		users:            newTable[models.User](),
		polls:            newTable[models.Poll](),
		options:          newTable[models.Option](),
		shifts:           newTable[models.OptionOpinionShift](),
		opinions:         newTable[models.Opinion](),
		interactions:     newTable[models.Interaction](),
		keywords:         newTable[models.Keyword](),
		pollKeywords:     newTable[models.PollKeyword](),
		weights:          newTable[models.UserKeywordFamilyWeight](),
		proposals:        newTable[models.UserProposedPoll](),
		comments:         newTable[models.Comment](),
		commentResponses: newTable[models.CommentResponse](),
		energyPackages:   newTable[models.EnergyPackage](),
		transactions:     newTable[models.Transaction](),
	}
}

func (s *state) clone() *state {
	return &state{
		users:            s.users.clone(),
		polls:            s.polls.clone(),
		options:          s.options.clone(),
		shifts:           s.shifts.clone(),
		opinions:         s.opinions.clone(),
		interactions:     s.interactions.clone(),
		keywords:         s.keywords.clone(),
		pollKeywords:     s.pollKeywords.clone(),
		weights:          s.weights.clone(),
		proposals:        s.proposals.clone(),
		comments:         s.comments.clone(),
		commentResponses: s.commentResponses.clone(),
		energyPackages:   s.energyPackages.clone(),
		transactions:     s.transactions.clone(),
	}
}

func (s *state) table(entity store.Entity) (archivable, error) {
	switch entity {
	case store.EntityUser:
		return s.users, nil
	case store.EntityPoll:
		return s.polls, nil
	case store.EntityOption:
		return s.options, nil
	case store.EntityOptionOpinionShift:
		return s.shifts, nil
	case store.EntityOpinion:
		return s.opinions, nil
	case store.EntityInteraction:
		return s.interactions, nil
	case store.EntityKeyword:
		return s.keywords, nil
	case store.EntityPollKeyword:
		return s.pollKeywords, nil
	case store.EntityUserKeywordFamilyWeight:
		return s.weights, nil
	case store.EntityUserProposedPoll:
		return s.proposals, nil
	case store.EntityComment:
		return s.comments, nil
	case store.EntityCommentResponse:
		return s.commentResponses, nil
	case store.EntityEnergyPackage:
		return s.energyPackages, nil
	case store.EntityTransaction:
		return s.transactions, nil
	}
	return nil, errors.Errorf("memory, unknown entity %q", entity)
}

// view is a Repository over one state. The committed view locks the store
// mutex per call; a transaction view runs while the mutex is already held.
type view struct {
	mu  *sync.Mutex
	st  *state
	now func() time.Time
}

func (v *view) lock() func() {
	if v.mu == nil {
		return func() {}
	}
	v.mu.Lock()
	return v.mu.Unlock
}

type Store struct {
	*view
	mu sync.Mutex
}

func New() *Store {
	s := &Store{}
	s.view = &view{mu: &s.mu, st: newState(), now: time.Now}
	return s
}

// SetClock replaces the time source used for timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.now = now
}

func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context, tx store.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &view{st: s.view.st.clone(), now: s.view.now}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.view.st = tx.st
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return nil
}

// walker exposes a state to store.SoftDelete.
type walker struct {
	st *state
}

func (w walker) Lookup(ctx context.Context, entity store.Entity, id primitive.ObjectID) (bool, bool, error) {
	t, err := w.st.table(entity)
	if err != nil {
		return false, false, err
	}
	found, live := t.lookup(id)
	return found, live, nil
}

func (w walker) Referencing(ctx context.Context, entity store.Entity, field string, id primitive.ObjectID) ([]primitive.ObjectID, error) {
	t, err := w.st.table(entity)
	if err != nil {
		return nil, err
	}
	return t.referencing(field, id)
}

func (w walker) Archive(ctx context.Context, entity store.Entity, id primitive.ObjectID, at time.Time) error {
	t, err := w.st.table(entity)
	if err != nil {
		return err
	}
	t.archive(id, at)
	return nil
}

func (v *view) SoftDelete(ctx context.Context, entity store.Entity, id primitive.ObjectID) error {
	defer v.lock()()
	// a failed walk must not leave half the cascade archived
	st := v.st.clone()
	if err := store.SoftDelete(ctx, walker{st}, entity, id, v.now()); err != nil {
		return err
	}
	v.st = st
	return nil
}

func notFound(what string, id primitive.ObjectID) error {
	return errors.Wrapf(store.ErrNotFound, "%s %s", what, id.Hex())
}

func idSet(ids []primitive.ObjectID) map[primitive.ObjectID]bool {
	m := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}
