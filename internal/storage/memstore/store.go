// Package memstore provides the in-memory coupon store. It is the default
// backend: volatile, but fully functional and safe for concurrent use.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/perkly/coupon-engine/internal/domain/coupon"
)

var _ coupon.Store = (*Store)(nil)

// Store keeps coupons and usage counters in maps guarded by a single RWMutex.
// Reads may run concurrently; each write holds the lock for the whole
// operation, which is all the atomicity the store promises.
type Store struct {
	mu      sync.RWMutex
	byCode  map[string]*coupon.Coupon
	ordered []string                  // insertion order of codes
	usage   map[string]map[string]int // couponID -> userID -> count

	now   func() time.Time
	newID func() string
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		byCode: make(map[string]*coupon.Coupon),
		usage:  make(map[string]map[string]int),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Create persists a new coupon from the given definition. It fails with
// coupon.ErrDuplicateCode when the code is already taken and leaves the store
// untouched in that case.
func (s *Store) Create(_ context.Context, def coupon.Definition) (*coupon.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byCode[def.Code]; exists {
		return nil, coupon.ErrDuplicateCode
	}

	now := s.now()
	c := &coupon.Coupon{
		ID:                s.newID(),
		Code:              def.Code,
		Description:       def.Description,
		DiscountType:      def.DiscountType,
		DiscountValue:     def.DiscountValue,
		MaxDiscountAmount: def.MaxDiscountAmount,
		StartDate:         def.StartDate,
		EndDate:           def.EndDate,
		UsageLimitPerUser: def.UsageLimitPerUser,
		Eligibility:       def.Eligibility,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	s.byCode[def.Code] = c
	s.ordered = append(s.ordered, def.Code)
	s.usage[c.ID] = make(map[string]int)

	cp := *c
	return &cp, nil
}

// FindAll returns every coupon in insertion order.
func (s *Store) FindAll(_ context.Context) ([]coupon.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]coupon.Coupon, 0, len(s.ordered))
	for _, code := range s.ordered {
		out = append(out, *s.byCode[code])
	}
	return out, nil
}

// FindByCode returns the coupon with the given code, or coupon.ErrNotFound.
func (s *Store) FindByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.byCode[code]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// FindAllValid returns coupons whose validity window contains asOf,
// inclusive on both ends.
func (s *Store) FindAllValid(_ context.Context, asOf time.Time) ([]coupon.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []coupon.Coupon
	for _, code := range s.ordered {
		c := s.byCode[code]
		if c.StartDate.After(asOf) || c.EndDate.Before(asOf) {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

// GetUsageCount returns how many times the user redeemed the coupon,
// zero when no record exists.
func (s *Store) GetUsageCount(_ context.Context, couponID, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.usage[couponID][userID], nil
}

// IncrementUsage bumps the user's redemption count for the coupon by one,
// creating the usage map lazily when absent.
func (s *Store) IncrementUsage(_ context.Context, couponID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.usage[couponID]
	if !ok {
		m = make(map[string]int)
		s.usage[couponID] = m
	}
	m[userID]++
	return nil
}

// DeleteByCode removes the coupon and its usage counters. It reports whether
// anything was deleted.
func (s *Store) DeleteByCode(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byCode[code]
	if !ok {
		return false, nil
	}

	delete(s.byCode, code)
	delete(s.usage, c.ID)
	for i, stored := range s.ordered {
		if stored == code {
			s.ordered = append(s.ordered[:i], s.ordered[i+1:]...)
			break
		}
	}
	return true, nil
}
