// Package memory is a transactional in-memory implementation of the usecase
// repositories. Transactions are serialized: Begin waits until the previous
// transaction ends, works on a private copy of the data and swaps it in on
// Commit after the same integrity checks the Postgres schema enforces.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/usecase"
)

// ErrTxDone is returned when a finished transaction is used again.
var ErrTxDone = errors.New("memory: transaction already committed or rolled back")

type key struct {
	tenantID string
	id       string
}

type seqKey struct {
	tenantID string
	kind     domain.SequenceKind
}

type state struct {
	accounts  map[key]*domain.Account
	profiles  map[string]*domain.PostingProfile
	taxCodes  map[key]*domain.TaxCode
	sequences map[seqKey]int64
	entries   map[key]*domain.JournalEntry
	documents map[key]*domain.Document
	periods   map[key]*domain.FiscalPeriod
	outbox    []*domain.OutboxEvent
	audit     []*domain.AuditLog
}

func newState() *state {
	return &state{
		accounts:  make(map[key]*domain.Account),
		profiles:  make(map[string]*domain.PostingProfile),
		taxCodes:  make(map[key]*domain.TaxCode),
		sequences: make(map[seqKey]int64),
		entries:   make(map[key]*domain.JournalEntry),
		documents: make(map[key]*domain.Document),
		periods:   make(map[key]*domain.FiscalPeriod),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.accounts {
		c.accounts[k] = cloneAccount(v)
	}
	for k, v := range s.profiles {
		p := *v
		c.profiles[k] = &p
	}
	for k, v := range s.taxCodes {
		tc := *v
		c.taxCodes[k] = &tc
	}
	for k, v := range s.sequences {
		c.sequences[k] = v
	}
	for k, v := range s.entries {
		c.entries[k] = v.Clone()
	}
	for k, v := range s.documents {
		c.documents[k] = v.Clone()
	}
	for k, v := range s.periods {
		c.periods[k] = clonePeriod(v)
	}
	c.outbox = append([]*domain.OutboxEvent(nil), s.outbox...)
	c.audit = append([]*domain.AuditLog(nil), s.audit...)
	return c
}

// Store holds committed data and hands out transactions.
type Store struct {
	sem chan struct{}

	mu        sync.RWMutex
	committed *state
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sem:       make(chan struct{}, 1),
		committed: newState(),
	}
}

// Tx is a serialized transaction over a private copy of the store.
type Tx struct {
	store   *Store
	working *state
	done    bool
	mu      sync.Mutex
}

// Begin waits for the running transaction to finish, or for ctx.
func (s *Store) Begin(ctx context.Context) (usecase.Transaction, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	working := s.committed.clone()
	s.mu.RUnlock()

	return &Tx{store: s, working: working}, nil
}

func (s *Store) acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) release() {
	<-s.sem
}

// Commit checks the working copy and publishes it.
func (t *Tx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return ErrTxDone
	}
	t.done = true
	defer t.store.release()

	if err := ctx.Err(); err != nil {
		return err
	}

	t.store.mu.RLock()
	err := checkCommit(t.store.committed, t.working)
	t.store.mu.RUnlock()
	if err != nil {
		return err
	}

	t.store.mu.Lock()
	t.store.committed = t.working
	t.store.mu.Unlock()

	return nil
}

// Rollback discards the working copy. It is a no-op after Commit.
func (t *Tx) Rollback(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return nil
	}
	t.done = true
	t.store.release()
	return nil
}

// working returns the private copy of tx, which must belong to s.
func (s *Store) working(tx usecase.Transaction) (*state, error) {
	t, ok := tx.(*Tx)
	if !ok || t.store != s {
		return nil, fmt.Errorf("memory: foreign transaction %T", tx)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil, ErrTxDone
	}
	return t.working, nil
}

// read runs fn against the committed data.
func (s *Store) read(fn func(st *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.committed)
}

// write mutates committed data outside any transaction, waiting for the
// running transaction first.
func (s *Store) write(ctx context.Context, fn func(st *state) error) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.committed)
}

// checkCommit enforces what the Postgres schema enforces with constraints
// and triggers.
func checkCommit(before, after *state) error {
	numbers := make(map[seqKey]map[int64]string)
	for k, e := range after.entries {
		sk := seqKey{tenantID: k.tenantID, kind: domain.SequenceJournalEntry}
		if numbers[sk] == nil {
			numbers[sk] = make(map[int64]string)
		}
		if other, dup := numbers[sk][e.EntryNumber]; dup && other != e.ID {
			return &domain.SequenceConflictError{TenantID: k.tenantID, Kind: sk.kind, Number: e.EntryNumber}
		}
		numbers[sk][e.EntryNumber] = e.ID

		old, existed := before.entries[k]
		if !existed {
			if err := e.ValidateBalance(); err != nil {
				return err
			}
			continue
		}
		if err := checkEntryUnchanged(old, e); err != nil {
			return err
		}
	}
	for k := range before.entries {
		if _, ok := after.entries[k]; !ok {
			return fmt.Errorf("memory: journal entry %s deleted", k.id)
		}
	}

	for k, d := range after.documents {
		if d.SequenceNumber == 0 {
			continue
		}
		sk := seqKey{tenantID: k.tenantID, kind: d.SequenceKind()}
		if numbers[sk] == nil {
			numbers[sk] = make(map[int64]string)
		}
		if other, dup := numbers[sk][d.SequenceNumber]; dup && other != d.ID {
			return &domain.SequenceConflictError{TenantID: k.tenantID, Kind: sk.kind, Number: d.SequenceNumber}
		}
		numbers[sk][d.SequenceNumber] = d.ID
	}

	return nil
}

func checkEntryUnchanged(old, cur *domain.JournalEntry) error {
	if len(old.Lines) != len(cur.Lines) {
		return fmt.Errorf("memory: journal lines of entry %s changed", old.ID)
	}
	for i := range old.Lines {
		if old.Lines[i] != cur.Lines[i] {
			return fmt.Errorf("memory: journal lines of entry %s changed", old.ID)
		}
	}
	if old.EntryNumber != cur.EntryNumber || !old.EntryDate.Equal(cur.EntryDate) || old.Memo != cur.Memo {
		return fmt.Errorf("memory: journal entry %s header changed", old.ID)
	}
	if old.IsReversed && !cur.IsReversed {
		return fmt.Errorf("memory: reversal stamp of entry %s cleared", old.ID)
	}
	return nil
}

func cloneAccount(a *domain.Account) *domain.Account {
	c := *a
	if a.ParentID != nil {
		p := *a.ParentID
		c.ParentID = &p
	}
	return &c
}

func clonePeriod(p *domain.FiscalPeriod) *domain.FiscalPeriod {
	c := *p
	if p.ClosedAt != nil {
		t := *p.ClosedAt
		c.ClosedAt = &t
	}
	return &c
}
