package memory

import (
	"context"
	"fmt"

	"ahorro/internal/docstore"
)

type pending struct {
	data    map[string]any
	deleted bool
	create  bool
}

type tx struct {
	store  *Store
	writes map[docstore.Ref]*pending
	order  []docstore.Ref
}

var _ docstore.Tx = (*tx)(nil)

func (t *tx) stage(ref docstore.Ref, p *pending) {
	if _, seen := t.writes[ref]; !seen {
		t.order = append(t.order, ref)
	}
	t.writes[ref] = p
}

// current returns the document as seen inside the transaction.
func (t *tx) current(ref docstore.Ref) (map[string]any, bool) {
	if p, ok := t.writes[ref]; ok {
		if p.deleted {
			return nil, false
		}
		return p.data, true
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	e, ok := t.store.docs[ref.Collection][ref.ID]
	if !ok {
		return nil, false
	}
	return e.data, true
}

func (t *tx) Get(_ context.Context, ref docstore.Ref) (docstore.Snapshot, error) {
	if err := ref.Validate(); err != nil {
		return docstore.Snapshot{}, err
	}
	data, ok := t.current(ref)
	snap := docstore.Snapshot{Ref: ref, Exists: ok}
	if ok {
		snap.Data = docstore.CloneData(data)
	}
	return snap, nil
}

func (t *tx) Set(_ context.Context, ref docstore.Ref, data map[string]any) error {
	norm, err := prepare(ref, data)
	if err != nil {
		return err
	}
	t.stage(ref, &pending{data: norm})
	return nil
}

func (t *tx) Merge(_ context.Context, ref docstore.Ref, data map[string]any) error {
	norm, err := prepare(ref, data)
	if err != nil {
		return err
	}
	base, _ := t.current(ref)
	t.stage(ref, &pending{data: mergeInto(base, norm)})
	return nil
}

func (t *tx) Create(_ context.Context, ref docstore.Ref, data map[string]any) error {
	norm, err := prepare(ref, data)
	if err != nil {
		return err
	}
	if _, exists := t.current(ref); exists {
		return fmt.Errorf("create %s: %w", ref, docstore.ErrAlreadyExists)
	}
	t.stage(ref, &pending{data: norm, create: true})
	return nil
}

func (t *tx) Delete(_ context.Context, ref docstore.Ref) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	t.stage(ref, &pending{deleted: true})
	return nil
}

func (t *tx) Query(_ context.Context, q docstore.Query) ([]docstore.Snapshot, error) {
	q, err := prepareQuery(q)
	if err != nil {
		return nil, err
	}
	t.store.mu.RLock()
	base := t.store.collectionLocked(q.Collection)
	t.store.mu.RUnlock()

	merged := make([]docstore.Snapshot, 0, len(base))
	for _, s := range base {
		if _, staged := t.writes[s.Ref]; staged {
			continue
		}
		merged = append(merged, s)
	}
	for _, ref := range t.order {
		p := t.writes[ref]
		if p.deleted || !inCollection(ref, q.Collection) {
			continue
		}
		merged = append(merged, docstore.Snapshot{Ref: ref, Data: docstore.CloneData(p.data), Exists: true})
	}
	return docstore.Apply(merged, q), nil
}

func (t *tx) commit() error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	// A plain Create outside any transaction may have won the race.
	for _, ref := range t.order {
		p := t.writes[ref]
		if !p.create {
			continue
		}
		if _, exists := s.docs[ref.Collection][ref.ID]; exists {
			return fmt.Errorf("create %s: %w", ref, docstore.ErrAlreadyExists)
		}
	}
	for _, ref := range t.order {
		p := t.writes[ref]
		if p.deleted {
			s.deleteLocked(ref)
			continue
		}
		s.putLocked(ref, p.data)
	}
	return nil
}
