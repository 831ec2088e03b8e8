package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dejobratic/storefront/internal/checkout/domain"
	"github.com/dejobratic/storefront/internal/checkout/ports"
)

// Store provides in-memory catalog and order storage useful for local development and
// tests. Every primitive runs under one mutex, so each conditional update is atomic.
type Store struct {
	mu    sync.RWMutex
	state *state
	now   func() time.Time
}

type state struct {
	products map[string]domain.Product
	orders   map[string]domain.Order
	keys     map[string]string
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{
		state: &state{
			products: make(map[string]domain.Product),
			orders:   make(map[string]domain.Order),
			keys:     make(map[string]string),
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *state) clone() *state {
	out := &state{
		products: make(map[string]domain.Product, len(s.products)),
		orders:   make(map[string]domain.Order, len(s.orders)),
		keys:     make(map[string]string, len(s.keys)),
	}
	for id, p := range s.products {
		out.products[id] = p
	}
	for id, o := range s.orders {
		out.orders[id] = o.Clone()
	}
	for key, id := range s.keys {
		out.keys[key] = id
	}
	return out
}

// view is a handle on either the live state (guarded by mu) or a transaction snapshot
// (mu nil, owned by a single goroutine).
type view struct {
	mu    *sync.RWMutex
	state func() *state
	now   func() time.Time
}

func (v view) lock() func() {
	if v.mu == nil {
		return func() {}
	}
	v.mu.Lock()
	return v.mu.Unlock
}

func (v view) rlock() func() {
	if v.mu == nil {
		return func() {}
	}
	v.mu.RLock()
	return v.mu.RUnlock
}

func (s *Store) live() view {
	return view{mu: &s.mu, state: func() *state { return s.state }, now: s.now}
}

// Products returns the catalog repository.
func (s *Store) Products() *ProductRepository {
	return &ProductRepository{v: s.live()}
}

// Stock returns the conditional stock counter.
func (s *Store) Stock() *StockStore {
	return &StockStore{v: s.live()}
}

// Orders returns the order repository.
func (s *Store) Orders() *OrderRepository {
	return &OrderRepository{v: s.live()}
}

// Stores bundles the live stock and order stores.
func (s *Store) Stores() ports.Stores {
	return ports.Stores{Stock: s.Stock(), Orders: s.Orders()}
}

// WithinTx runs fn against a snapshot and swaps it in only when fn succeeds. Other
// writers are blocked for the duration of fn.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, stores ports.Stores) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	tx := view{state: func() *state { return snapshot }, now: s.now}
	stores := ports.Stores{
		Stock:  &StockStore{v: tx},
		Orders: &OrderRepository{v: tx},
	}

	if err := fn(ctx, stores); err != nil {
		return err
	}
	s.state = snapshot
	return nil
}

// ProductRepository is the in-memory catalog.
type ProductRepository struct {
	v view
}

// Save inserts or replaces a product, recomputing its availability.
func (r *ProductRepository) Save(_ context.Context, product domain.Product) error {
	if err := product.Validate(); err != nil {
		return err
	}
	defer r.v.lock()()
	st := r.v.state()
	now := r.v.now()
	if existing, ok := st.products[product.ID]; ok {
		product.CreatedAt = existing.CreatedAt
	} else if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	product.Recompute()
	st.products[product.ID] = product
	return nil
}

func (r *ProductRepository) Delete(_ context.Context, id string) error {
	defer r.v.lock()()
	st := r.v.state()
	if _, ok := st.products[id]; !ok {
		return ports.ErrNotFound
	}
	delete(st.products, id)
	return nil
}

func (r *ProductRepository) GetByID(_ context.Context, id string) (*domain.Product, error) {
	defer r.v.rlock()()
	product, ok := r.v.state().products[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &product, nil
}

// GetByIDs returns the products that exist; missing IDs are simply absent.
func (r *ProductRepository) GetByIDs(_ context.Context, ids []string) (map[string]domain.Product, error) {
	defer r.v.rlock()()
	st := r.v.state()
	out := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if product, ok := st.products[id]; ok {
			out[id] = product
		}
	}
	return out, nil
}

func (r *ProductRepository) List(_ context.Context, filter ports.ProductFilter) ([]domain.Product, error) {
	defer r.v.rlock()()
	var result []domain.Product
	for _, product := range r.v.state().products {
		if filter.Category != "" && product.Category != filter.Category {
			continue
		}
		if filter.AvailableOnly && !product.Available {
			continue
		}
		result = append(result, product)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// StockStore is the in-memory conditional counter.
type StockStore struct {
	v view
}

func (s *StockStore) Decrement(_ context.Context, productID string, quantity int) (bool, error) {
	defer s.v.lock()()
	st := s.v.state()
	product, ok := st.products[productID]
	if !ok || !product.Available || product.Stock < quantity {
		return false, nil
	}
	product.Stock -= quantity
	product.UpdatedAt = s.v.now()
	product.Recompute()
	st.products[productID] = product
	return true, nil
}

func (s *StockStore) Increment(_ context.Context, productID string, quantity int) error {
	defer s.v.lock()()
	st := s.v.state()
	product, ok := st.products[productID]
	if !ok {
		return ports.ErrNotFound
	}
	product.Stock += quantity
	product.UpdatedAt = s.v.now()
	product.Recompute()
	st.products[productID] = product
	return nil
}

// OrderRepository is the in-memory order store. The idempotency key index is checked
// and written under the same lock as the insert.
type OrderRepository struct {
	v view
}

func (r *OrderRepository) Create(_ context.Context, order domain.Order) error {
	defer r.v.lock()()
	st := r.v.state()
	if order.IdempotencyKey != "" {
		if _, taken := st.keys[order.IdempotencyKey]; taken {
			return ports.ErrDuplicateIdempotencyKey
		}
		st.keys[order.IdempotencyKey] = order.ID
	}
	st.orders[order.ID] = order.Clone()
	return nil
}

func (r *OrderRepository) GetByID(_ context.Context, id string) (*domain.Order, error) {
	defer r.v.rlock()()
	order, ok := r.v.state().orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	clone := order.Clone()
	return &clone, nil
}

func (r *OrderRepository) GetByIdempotencyKey(_ context.Context, key string) (*domain.Order, error) {
	defer r.v.rlock()()
	st := r.v.state()
	id, ok := st.keys[key]
	if !ok {
		return nil, ports.ErrNotFound
	}
	clone := st.orders[id].Clone()
	return &clone, nil
}

// List returns orders newest first. Pagination is 1-based.
func (r *OrderRepository) List(_ context.Context, filter ports.ListFilter) ([]domain.Order, error) {
	defer r.v.rlock()()

	var result []domain.Order
	for _, order := range r.v.state().orders {
		if filter.Status != nil && order.Status != *filter.Status {
			continue
		}
		result = append(result, order.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	start := (page - 1) * pageSize
	if start >= len(result) {
		return []domain.Order{}, nil
	}
	end := min(start+pageSize, len(result))
	return result[start:end], nil
}

func (r *OrderRepository) Update(_ context.Context, order domain.Order, expectedVersion int) error {
	defer r.v.lock()()
	st := r.v.state()
	current, ok := st.orders[order.ID]
	if !ok {
		return ports.ErrNotFound
	}
	if current.Version != expectedVersion {
		return ports.ErrConcurrentUpdate
	}

	current.Status = order.Status
	current.Payment = order.Payment
	if order.PaidAt != nil {
		paidAt := *order.PaidAt
		current.PaidAt = &paidAt
	}
	current.UpdatedAt = order.UpdatedAt
	current.Version = expectedVersion + 1
	st.orders[order.ID] = current
	return nil
}
