package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rohitsengarppv-gif/multimallpro/internal/cache"
	"github.com/rohitsengarppv-gif/multimallpro/internal/domain"
	"github.com/rohitsengarppv-gif/multimallpro/internal/repository"
)

var baseTime = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

// mockAddressRepo keeps the same default-address rules as the Mongo
// implementation, serialised by a mutex instead of a transaction.
type mockAddressRepo struct {
	mu        sync.RWMutex
	addresses map[string]*domain.Address
	seq       int
}

func newMockAddressRepo() *mockAddressRepo {
	return &mockAddressRepo{addresses: map[string]*domain.Address{}}
}

func (m *mockAddressRepo) Insert(_ context.Context, addr *domain.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	addr.ID = uuid.NewString()
	addr.CreatedAt = baseTime.Add(time.Duration(m.seq) * time.Second)
	addr.UpdatedAt = addr.CreatedAt

	owned := m.ownedLocked(addr.OwnerID)
	addr.IsDefault = addr.IsDefault || len(owned) == 0
	if addr.IsDefault {
		for _, a := range owned {
			a.IsDefault = false
		}
	}
	stored := *addr
	m.addresses[addr.ID] = &stored
	return nil
}

func (m *mockAddressRepo) Get(_ context.Context, ownerID, addressID string) (*domain.Address, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.addresses[addressID]
	if !ok || a.OwnerID != ownerID {
		return nil, repository.ErrAddressNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockAddressRepo) List(_ context.Context, ownerID string) ([]domain.Address, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	owned := m.ownedLocked(ownerID)
	sort.Slice(owned, func(i, j int) bool {
		if owned[i].IsDefault != owned[j].IsDefault {
			return owned[i].IsDefault
		}
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})
	out := make([]domain.Address, 0, len(owned))
	for _, a := range owned {
		out = append(out, *a)
	}
	return out, nil
}

func (m *mockAddressRepo) Update(_ context.Context, ownerID, addressID string, patch domain.AddressPatch) (*domain.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.addresses[addressID]
	if !ok || a.OwnerID != ownerID {
		return nil, repository.ErrAddressNotFound
	}
	patch.Apply(a)
	cp := *a
	return &cp, nil
}

func (m *mockAddressRepo) SetDefault(_ context.Context, ownerID, addressID string) (*domain.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	target, ok := m.addresses[addressID]
	if !ok || target.OwnerID != ownerID {
		return nil, repository.ErrAddressNotFound
	}
	for _, a := range m.ownedLocked(ownerID) {
		a.IsDefault = a.ID == addressID
	}
	cp := *target
	return &cp, nil
}

func (m *mockAddressRepo) Delete(_ context.Context, ownerID, addressID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	target, ok := m.addresses[addressID]
	if !ok || target.OwnerID != ownerID {
		return repository.ErrAddressNotFound
	}
	delete(m.addresses, addressID)

	if target.IsDefault {
		var newest *domain.Address
		for _, a := range m.ownedLocked(ownerID) {
			if newest == nil || a.CreatedAt.After(newest.CreatedAt) {
				newest = a
			}
		}
		if newest != nil {
			newest.IsDefault = true
		}
	}
	return nil
}

func (m *mockAddressRepo) ownedLocked(ownerID string) []*domain.Address {
	var out []*domain.Address
	for _, a := range m.addresses {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	return out
}

type mockCouponRepo struct {
	mu      sync.RWMutex
	coupons map[string]*domain.Coupon
	listed  int
}

func newMockCouponRepo(coupons ...*domain.Coupon) *mockCouponRepo {
	m := &mockCouponRepo{coupons: map[string]*domain.Coupon{}}
	for _, c := range coupons {
		c.Code = domain.NormalizeCode(c.Code)
		m.coupons[c.ID] = c
	}
	return m
}

func (m *mockCouponRepo) Create(_ context.Context, c *domain.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.Code = domain.NormalizeCode(c.Code)
	for _, existing := range m.coupons {
		if existing.VendorID == c.VendorID && existing.Code == c.Code {
			return repository.ErrDuplicateCoupon
		}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	cp := *c
	m.coupons[c.ID] = &cp
	return nil
}

func (m *mockCouponRepo) GetByID(_ context.Context, id string) (*domain.Coupon, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.coupons[id]
	if !ok {
		return nil, repository.ErrCouponNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockCouponRepo) FindByCode(_ context.Context, vendorID, code string) (*domain.Coupon, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	code = domain.NormalizeCode(code)
	for _, c := range m.coupons {
		if c.VendorID == vendorID && c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrCouponNotFound
}

func (m *mockCouponRepo) ListActive(_ context.Context, vendorID string, at time.Time) ([]domain.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listed++
	var out []domain.Coupon
	for _, c := range m.coupons {
		if (vendorID == "" || c.VendorID == vendorID) && c.RedeemableAt(at) && !c.Exhausted() {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockCouponRepo) IncrementUsage(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.incrementLocked(id)
}

func (m *mockCouponRepo) incrementLocked(id string) error {
	c, ok := m.coupons[id]
	if !ok || c.Status != domain.CouponStatusActive || c.Exhausted() {
		return repository.ErrUsageLimitReached
	}
	c.UsageCount++
	return nil
}

func (m *mockCouponRepo) listCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listed
}

type mockOrderRepo struct {
	mu       sync.RWMutex
	coupons  *mockCouponRepo
	orders   map[string]*domain.Order
	events   []*repository.OutboxEvent
	failures int
	writeErr error
	creates  int
}

func newMockOrderRepo(coupons *mockCouponRepo) *mockOrderRepo {
	return &mockOrderRepo{coupons: coupons, orders: map[string]*domain.Order{}}
}

func (m *mockOrderRepo) FindByIdempotencyKey(_ context.Context, ownerID, key string) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.orders {
		if o.OwnerID == ownerID && o.IdempotencyKey == key {
			cp := *o
			return &cp, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *mockOrderRepo) HasPriorOrders(_ context.Context, ownerID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.orders {
		if o.OwnerID == ownerID && o.Status != domain.OrderStatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockOrderRepo) CreateOrder(_ context.Context, order *domain.Order, event *repository.OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++

	if m.failures > 0 {
		m.failures--
		return m.writeErr
	}
	for _, o := range m.orders {
		if o.OwnerID == order.OwnerID && o.IdempotencyKey == order.IdempotencyKey {
			return repository.ErrDuplicateOrder
		}
	}
	if order.CouponID != "" {
		m.coupons.mu.Lock()
		err := m.coupons.incrementLocked(order.CouponID)
		m.coupons.mu.Unlock()
		if err != nil {
			return err
		}
	}

	order.CreatedAt = baseTime
	order.UpdatedAt = baseTime
	cp := *order
	m.orders[order.ID] = &cp
	if event != nil {
		m.events = append(m.events, event)
	}
	return nil
}

func (m *mockOrderRepo) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) ListOrders(_ context.Context, f repository.OrderFilter) ([]domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Order
	for _, o := range m.orders {
		if f.OwnerID != "" && o.OwnerID != f.OwnerID {
			continue
		}
		if f.VendorID != "" && !o.HasVendor(f.VendorID) {
			continue
		}
		out = append(out, *o)
	}
	return out, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id string, from, to domain.OrderStatus, tracking *domain.Tracking, event *repository.OutboxEvent) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != from {
		return nil, repository.ErrStatusConflict
	}
	o.Status = to
	if tracking != nil {
		o.Tracking = tracking
	}
	if event != nil {
		m.events = append(m.events, event)
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) orderCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.orders)
}

func (m *mockOrderRepo) eventTypes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.EventType)
	}
	return out
}

type mockCatalog struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
}

func newMockCatalog(products ...*domain.Product) *mockCatalog {
	m := &mockCatalog{products: map[string]*domain.Product{}}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *mockCatalog) GetProducts(_ context.Context, ids []string) (map[string]*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := map[string]*domain.Product{}
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

func (m *mockCatalog) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockCatalog) UpsertProduct(_ context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

type mockCache struct {
	mu      sync.RWMutex
	entries map[string][]domain.Coupon
	deleted []string
	getErr  error
}

func newMockCache() *mockCache {
	return &mockCache{entries: map[string][]domain.Coupon{}}
}

func (m *mockCache) Get(_ context.Context, vendorID string) ([]domain.Coupon, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	c, ok := m.entries[vendorID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return c, nil
}

func (m *mockCache) Set(_ context.Context, vendorID string, coupons []domain.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[vendorID] = coupons
	return nil
}

func (m *mockCache) Delete(_ context.Context, vendorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, vendorID)
	m.deleted = append(m.deleted, vendorID)
	return nil
}

func (m *mockCache) has(vendorID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[vendorID]
	return ok
}

func (m *mockCache) deletions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.deleted...)
}

// mockLocker is an in-process stand-in for the Redis locker.
type mockLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
	keys  []string
}

func newMockLocker() *mockLocker {
	return &mockLocker{locks: map[string]*sync.Mutex{}}
}

func (m *mockLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	m.keys = append(m.keys, key)
	m.mu.Unlock()

	l.Lock()
	defer l.Unlock()
	return fn(ctx)
}

func (m *mockLocker) usedKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.keys...)
}
