package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xraph/feeledger"
	"github.com/xraph/feeledger/apportion"
	"github.com/xraph/feeledger/fee"
	"github.com/xraph/feeledger/id"
	"github.com/xraph/feeledger/payment"
)

// Store is an in-memory store, intended for tests and demos.
//
// All reads return copies: callers may freely mutate what they get back and
// stored balances only ever change through the commit methods, which check
// the group version under the lock.
type Store struct {
	mu     sync.RWMutex
	closed bool

	groups      map[string]*payment.Group
	groupsByRef map[string]string // reference -> group ID

	fees map[string]*fee.Fee

	payments      map[string]*payment.Payment
	paymentsByRef map[string]string // reference -> payment ID

	// Append-only ledger
	records []*apportion.Record
}

func New() *Store {
	return &Store{
		groups:        make(map[string]*payment.Group),
		groupsByRef:   make(map[string]string),
		fees:          make(map[string]*fee.Fee),
		payments:      make(map[string]*payment.Payment),
		paymentsByRef: make(map[string]string),
		records:       make([]*apportion.Record, 0),
	}
}

// Group Store implementation

func (s *Store) CreateGroup(_ context.Context, g *payment.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.groups[g.ID.String()]; exists {
		return feeledger.ErrGroupExists
	}
	if _, exists := s.groupsByRef[g.Reference]; exists {
		return feeledger.ErrGroupExists
	}

	cp := *g
	s.groups[g.ID.String()] = &cp
	s.groupsByRef[g.Reference] = g.ID.String()
	return nil
}

func (s *Store) GetGroup(_ context.Context, groupID id.GroupID) (*payment.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if g, ok := s.groups[groupID.String()]; ok {
		cp := *g
		return &cp, nil
	}
	return nil, feeledger.ErrGroupNotFound
}

func (s *Store) GetGroupByReference(_ context.Context, reference string) (*payment.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if gid, ok := s.groupsByRef[reference]; ok {
		cp := *s.groups[gid]
		return &cp, nil
	}
	return nil, feeledger.ErrGroupNotFound
}

// Fee Store implementation

func (s *Store) CreateFee(_ context.Context, f *fee.Fee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.fees[f.ID.String()]; exists {
		return feeledger.ErrDuplicateFee
	}
	if _, ok := s.groups[f.GroupID.String()]; !ok {
		return feeledger.ErrGroupNotFound
	}

	cp := *f
	s.fees[f.ID.String()] = &cp
	return nil
}

func (s *Store) GetFee(_ context.Context, feeID id.FeeID) (*fee.Fee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if f, ok := s.fees[feeID.String()]; ok {
		cp := *f
		return &cp, nil
	}
	return nil, feeledger.ErrFeeNotFound
}

func (s *Store) ListGroupFees(_ context.Context, groupID id.GroupID, opts fee.ListOpts) ([]*fee.Fee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*fee.Fee, 0)
	for _, f := range s.fees {
		if f.GroupID.String() != groupID.String() {
			continue
		}
		if f.Removed && !opts.IncludeRemoved {
			continue
		}
		cp := *f
		result = append(result, &cp)
	}

	// Insertion order: allocation depends on it.
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID.String() < result[j].ID.String()
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

func (s *Store) RemoveFee(_ context.Context, feeID id.FeeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.fees[feeID.String()]
	if !ok {
		return feeledger.ErrFeeNotFound
	}
	f.Removed = true
	f.Touch()
	return nil
}

// Payment Store implementation

func (s *Store) CreatePayment(_ context.Context, p *payment.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.payments[p.ID.String()]; exists {
		return feeledger.ErrPaymentExists
	}
	if _, exists := s.paymentsByRef[p.Reference]; p.Reference != "" && exists {
		return feeledger.ErrPaymentExists
	}
	if _, ok := s.groups[p.GroupID.String()]; !ok {
		return feeledger.ErrGroupNotFound
	}

	cp := *p
	s.payments[p.ID.String()] = &cp
	if p.Reference != "" {
		s.paymentsByRef[p.Reference] = p.ID.String()
	}
	return nil
}

func (s *Store) GetPayment(_ context.Context, paymentID id.PaymentID) (*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.payments[paymentID.String()]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, feeledger.ErrPaymentNotFound
}

func (s *Store) GetPaymentByReference(_ context.Context, reference string) (*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if pid, ok := s.paymentsByRef[reference]; ok {
		cp := *s.payments[pid]
		return &cp, nil
	}
	return nil, feeledger.ErrPaymentNotFound
}

func (s *Store) ListGroupPayments(_ context.Context, groupID id.GroupID, opts payment.ListOpts) ([]*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*payment.Payment, 0)
	for _, p := range s.payments {
		if p.GroupID.String() != groupID.String() {
			continue
		}
		if opts.Status != "" && p.Status != opts.Status {
			continue
		}
		cp := *p
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID.String() < result[j].ID.String()
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

func (s *Store) UpdatePaymentStatus(_ context.Context, paymentID id.PaymentID, status payment.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[paymentID.String()]
	if !ok {
		return feeledger.ErrPaymentNotFound
	}
	p.Status = status
	p.Touch()
	return nil
}

// Apportionment Record Store implementation

func (s *Store) ListPaymentRecords(_ context.Context, paymentID id.PaymentID) ([]*apportion.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*apportion.Record, 0)
	for _, r := range s.records {
		if r.PaymentID.String() == paymentID.String() && !r.PaymentID.IsNil() {
			cp := *r
			result = append(result, &cp)
		}
	}
	sortRecords(result)
	return result, nil
}

func (s *Store) ListFeeRecords(_ context.Context, feeID id.FeeID) ([]*apportion.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*apportion.Record, 0)
	for _, r := range s.records {
		if r.FeeID.String() == feeID.String() {
			cp := *r
			result = append(result, &cp)
		}
	}
	sortRecords(result)
	return result, nil
}

// Ledger commits

func (s *Store) CommitAllocation(_ context.Context, groupID id.GroupID, expectedVersion int64, fees []*fee.Fee, records []*apportion.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[groupID.String()]
	if !ok {
		return feeledger.ErrGroupNotFound
	}
	if g.Version != expectedVersion {
		return feeledger.ErrConcurrentModification
	}

	for _, f := range fees {
		if _, ok := s.fees[f.ID.String()]; !ok {
			return feeledger.ErrFeeNotFound
		}
	}

	for _, f := range fees {
		cp := *f
		s.fees[f.ID.String()] = &cp
	}
	for _, r := range records {
		cp := *r
		s.records = append(s.records, &cp)
	}

	g.Version++
	g.Touch()
	return nil
}

func (s *Store) CommitReadjustment(_ context.Context, groupID id.GroupID, expectedVersion int64, f *fee.Fee, record *apportion.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[groupID.String()]
	if !ok {
		return feeledger.ErrGroupNotFound
	}
	if g.Version != expectedVersion {
		return feeledger.ErrConcurrentModification
	}
	if _, ok := s.fees[f.ID.String()]; !ok {
		return feeledger.ErrFeeNotFound
	}

	fcp := *f
	s.fees[f.ID.String()] = &fcp

	rcp := *record
	s.records = append(s.records, &rcp)

	g.Version++
	g.Touch()
	return nil
}

// Core methods

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return feeledger.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

func sortRecords(records []*apportion.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID.String() < records[j].ID.String()
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
}
