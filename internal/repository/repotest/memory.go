// Package repotest provides an in-memory repository.Store for tests.
package repotest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"storefront-service/internal/model"
	"storefront-service/internal/repository"
)

// MemoryStore is a map-backed repository.Store. It applies the same model hooks
// the database layer runs and supports rollback of failed transactions.
type MemoryStore struct {
	mu sync.Mutex

	users      map[uint]model.User
	businesses map[uint]model.Business
	products   map[uint]model.Product
	nextID     uint

	nextErr map[string]error
}

// NewMemoryStore returns an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[uint]model.User),
		businesses: make(map[uint]model.Business),
		products:   make(map[uint]model.Product),
		nextErr:    make(map[string]error),
	}
}

// FailNext makes the next call of op return err
func (s *MemoryStore) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextErr[op] = err
}

func (s *MemoryStore) takeErr(op string) error {
	if err, ok := s.nextErr[op]; ok {
		delete(s.nextErr, op)
		return err
	}
	return nil
}

func (s *MemoryStore) id() uint {
	s.nextID++
	return s.nextID
}

// Users returns a snapshot of all stored users
func (s *MemoryStore) Users() []model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Businesses returns a snapshot of all stored businesses
func (s *MemoryStore) Businesses() []model.Business {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Business, 0, len(s.businesses))
	for _, b := range s.businesses {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemoryStore) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	s.mu.Lock()
	users := copyMap(s.users)
	businesses := copyMap(s.businesses)
	products := copyMap(s.products)
	nextID := s.nextID
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.users, s.businesses, s.products, s.nextID = users, businesses, products, nextID
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *MemoryStore) CreateUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr("CreateUser"); err != nil {
		return err
	}
	for _, u := range s.users {
		if u.Username == user.Username || u.Email == user.Email {
			return fmt.Errorf("create user: %w", repository.ErrDuplicate)
		}
	}
	_ = user.BeforeCreate(nil)
	user.ID = s.id()
	s.users[user.ID] = *user
	return nil
}

func (s *MemoryStore) UserExists(_ context.Context, username, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr("UserExists"); err != nil {
		return false, err
	}
	for _, u := range s.users {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) FindUserByID(_ context.Context, id uint) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr("FindUserByID"); err != nil {
		return nil, err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("find user: %w", repository.ErrNotFound)
	}
	return &u, nil
}

func (s *MemoryStore) FindUserByUsername(_ context.Context, username string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr("FindUserByUsername"); err != nil {
		return nil, err
	}
	for _, u := range s.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("find user: %w", repository.ErrNotFound)
}

func (s *MemoryStore) MarkUserVerified(_ context.Context, id uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr("MarkUserVerified"); err != nil {
		return false, err
	}
	u, ok := s.users[id]
	if !ok || u.IsVerified {
		return false, nil
	}
	u.IsVerified = true
	s.users[id] = u
	return true, nil
}

func (s *MemoryStore) CreateBusiness(_ context.Context, business *model.Business) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr("CreateBusiness"); err != nil {
		return err
	}
	for _, b := range s.businesses {
		if b.OwnerID == business.OwnerID {
			return fmt.Errorf("create business: %w", repository.ErrDuplicate)
		}
	}
	_ = business.BeforeCreate(nil)
	business.ID = s.id()
	s.businesses[business.ID] = *business
	return nil
}

func (s *MemoryStore) FindBusinessByID(_ context.Context, id uint) (*model.Business, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr("FindBusinessByID"); err != nil {
		return nil, err
	}
	b, ok := s.businesses[id]
	if !ok {
		return nil, fmt.Errorf("find business: %w", repository.ErrNotFound)
	}
	return &b, nil
}

func (s *MemoryStore) FindBusinessByOwner(_ context.Context, ownerID uint) (*model.Business, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr("FindBusinessByOwner"); err != nil {
		return nil, err
	}
	for _, b := range s.businesses {
		if b.OwnerID == ownerID {
			return &b, nil
		}
	}
	return nil, fmt.Errorf("find business by owner: %w", repository.ErrNotFound)
}

func (s *MemoryStore) SaveBusiness(_ context.Context, business *model.Business) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr("SaveBusiness"); err != nil {
		return err
	}
	stored := *business
	stored.Owner = nil
	s.businesses[business.ID] = stored
	return nil
}

func (s *MemoryStore) CreateProduct(_ context.Context, product *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr("CreateProduct"); err != nil {
		return err
	}
	_ = product.BeforeCreate(nil)
	product.ID = s.id()
	stored := *product
	stored.Business = nil
	s.products[product.ID] = stored
	return nil
}

func (s *MemoryStore) ListProducts(_ context.Context) ([]model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr("ListProducts"); err != nil {
		return nil, err
	}
	out := make([]model.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) FindProductByID(_ context.Context, id uint) (*model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr("FindProductByID"); err != nil {
		return nil, err
	}
	p, ok := s.products[id]
	if !ok {
		return nil, fmt.Errorf("find product: %w", repository.ErrNotFound)
	}
	return &p, nil
}

func (s *MemoryStore) FindProductOwnership(_ context.Context, id uint) (*repository.ProductOwnership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr("FindProductOwnership"); err != nil {
		return nil, err
	}
	p, ok := s.products[id]
	if !ok {
		return nil, fmt.Errorf("find product: %w", repository.ErrNotFound)
	}
	b, ok := s.businesses[p.BusinessID]
	if !ok {
		return nil, fmt.Errorf("find product business: %w", repository.ErrNotFound)
	}
	u, ok := s.users[b.OwnerID]
	if !ok {
		return nil, fmt.Errorf("find product owner: %w", repository.ErrNotFound)
	}
	return &repository.ProductOwnership{Product: p, Business: b, Owner: u}, nil
}

func (s *MemoryStore) SaveProduct(_ context.Context, product *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr("SaveProduct"); err != nil {
		return err
	}
	stored := *product
	stored.Business = nil
	s.products[product.ID] = stored
	return nil
}

func (s *MemoryStore) DeleteProduct(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr("DeleteProduct"); err != nil {
		return err
	}
	if _, ok := s.products[id]; !ok {
		return fmt.Errorf("delete product: %w", repository.ErrNotFound)
	}
	delete(s.products, id)
	return nil
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

var _ repository.Store = (*MemoryStore)(nil)
