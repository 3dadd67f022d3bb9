// Package memory is an in-process docstore used for development and tests.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"ahorro/internal/docstore"
)

type entry struct {
	data      map[string]any
	createdAt time.Time
	updatedAt time.Time
}

// Store keeps documents in maps keyed by collection path then id.
// Transactions are serialized and staged in an overlay until commit.
type Store struct {
	mu    sync.RWMutex
	txMu  sync.Mutex
	docs  map[string]map[string]*entry
	now   func() time.Time
	close sync.Once
}

var _ docstore.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		docs: make(map[string]map[string]*entry),
		now:  time.Now,
	}
}

// WithClock replaces the timestamp source, used by tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Close() error {
	s.close.Do(func() {
		s.mu.Lock()
		s.docs = make(map[string]map[string]*entry)
		s.mu.Unlock()
	})
	return nil
}

func (s *Store) Get(_ context.Context, ref docstore.Ref) (docstore.Snapshot, error) {
	if err := ref.Validate(); err != nil {
		return docstore.Snapshot{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(ref), nil
}

func (s *Store) snapshotLocked(ref docstore.Ref) docstore.Snapshot {
	snap := docstore.Snapshot{Ref: ref}
	if e, ok := s.docs[ref.Collection][ref.ID]; ok {
		snap.Exists = true
		snap.Data = docstore.CloneData(e.data)
		snap.UpdatedAt = e.updatedAt
	}
	return snap
}

func (s *Store) Set(_ context.Context, ref docstore.Ref, data map[string]any) error {
	norm, err := prepare(ref, data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(ref, norm)
	return nil
}

func (s *Store) Merge(_ context.Context, ref docstore.Ref, data map[string]any) error {
	norm, err := prepare(ref, data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(ref, mergeInto(s.currentLocked(ref), norm))
	return nil
}

func (s *Store) Create(_ context.Context, ref docstore.Ref, data map[string]any) error {
	norm, err := prepare(ref, data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[ref.Collection][ref.ID]; ok {
		return fmt.Errorf("create %s: %w", ref, docstore.ErrAlreadyExists)
	}
	s.putLocked(ref, norm)
	return nil
}

func (s *Store) Delete(_ context.Context, ref docstore.Ref) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(ref)
	return nil
}

func (s *Store) Query(_ context.Context, q docstore.Query) ([]docstore.Snapshot, error) {
	q, err := prepareQuery(q)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	snaps := s.collectionLocked(q.Collection)
	s.mu.RUnlock()
	return docstore.Apply(snaps, q), nil
}

func (s *Store) collectionLocked(collection string) []docstore.Snapshot {
	col := s.docs[collection]
	snaps := make([]docstore.Snapshot, 0, len(col))
	for id, e := range col {
		snaps = append(snaps, docstore.Snapshot{
			Ref:       docstore.Doc(collection, id),
			Data:      docstore.CloneData(e.data),
			Exists:    true,
			UpdatedAt: e.updatedAt,
		})
	}
	return snaps
}

func (s *Store) currentLocked(ref docstore.Ref) map[string]any {
	if e, ok := s.docs[ref.Collection][ref.ID]; ok {
		return e.data
	}
	return nil
}

func (s *Store) putLocked(ref docstore.Ref, data map[string]any) {
	now := s.now()
	col, ok := s.docs[ref.Collection]
	if !ok {
		col = make(map[string]*entry)
		s.docs[ref.Collection] = col
	}
	if e, ok := col[ref.ID]; ok {
		e.data = data
		e.updatedAt = now
		return
	}
	col[ref.ID] = &entry{data: data, createdAt: now, updatedAt: now}
}

func (s *Store) deleteLocked(ref docstore.Ref) {
	col, ok := s.docs[ref.Collection]
	if !ok {
		return
	}
	delete(col, ref.ID)
	if len(col) == 0 {
		delete(s.docs, ref.Collection)
	}
}

// RunTransaction stages writes made through tx and applies them together
// when fn returns nil.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	t := &tx{store: s, writes: make(map[docstore.Ref]*pending)}
	if err := fn(ctx, t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.commit()
}

func prepare(ref docstore.Ref, data map[string]any) (map[string]any, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	return docstore.Normalize(data)
}

func prepareQuery(q docstore.Query) (docstore.Query, error) {
	if err := q.Validate(); err != nil {
		return q, err
	}
	filters := make([]docstore.Filter, len(q.Filters))
	for i, f := range q.Filters {
		v, err := docstore.NormalizeValue(f.Value)
		if err != nil {
			return q, err
		}
		filters[i] = docstore.Filter{Field: f.Field, Op: f.Op, Value: v}
	}
	q.Filters = filters
	return q, nil
}

func mergeInto(base, patch map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

func inCollection(ref docstore.Ref, collection string) bool {
	return ref.Collection == collection && !strings.Contains(ref.ID, "/")
}
