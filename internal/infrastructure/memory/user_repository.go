package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oksasatya/user-service/internal/domain/entity"
	"github.com/oksasatya/user-service/internal/domain/repository"
)

// UserRepository is an in-memory implementation of repository.UserRepository.
// Transactions are serialized and roll back by restoring a snapshot.
// Reads outside a transaction may observe its uncommitted writes.
type UserRepository struct {
	txMu sync.Mutex

	mu      sync.RWMutex
	nextID  int64
	store   map[int64]*entity.User
	byEmail map[string]int64

	now func() time.Time
}

var _ repository.UserRepository = (*UserRepository)(nil)

func NewUserRepository() *UserRepository {
	return &UserRepository{
		nextID:  1,
		store:   make(map[int64]*entity.User),
		byEmail: make(map[string]int64),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.store[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u.Clone(), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.store[id].Clone(), nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byEmail[email]
	return ok, nil
}

func (r *UserRepository) Save(ctx context.Context, u *entity.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if u.IsNew() {
		if _, taken := r.byEmail[u.Email]; taken {
			return repository.ErrDuplicateEmail
		}
		u.ID = r.nextID
		r.nextID++
		u.CreatedAt = now
		u.UpdatedAt = now
		r.store[u.ID] = u.Clone()
		r.byEmail[u.Email] = u.ID
		return nil
	}

	prev, ok := r.store[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if owner, taken := r.byEmail[u.Email]; taken && owner != u.ID {
		return repository.ErrDuplicateEmail
	}
	u.CreatedAt = prev.CreatedAt
	u.UpdatedAt = now
	delete(r.byEmail, prev.Email)
	r.store[u.ID] = u.Clone()
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *UserRepository) DeleteByID(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.store[id]
	if !ok {
		return repository.ErrNotFound
	}
	delete(r.byEmail, u.Email)
	delete(r.store, id)
	return nil
}

func (r *UserRepository) WithinTx(ctx context.Context, fn func(tx repository.UserRepository) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.txMu.Lock()
	defer r.txMu.Unlock()

	snap := r.snapshot()
	defer func() {
		if p := recover(); p != nil {
			r.restore(snap)
			panic(p)
		}
		if err != nil {
			r.restore(snap)
		}
	}()
	return fn(txRepository{r})
}

// Len reports the number of stored users.
func (r *UserRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.store)
}

type snapshot struct {
	nextID  int64
	store   map[int64]*entity.User
	byEmail map[string]int64
}

// snapshot copies the maps only; stored users are replaced, never mutated.
func (r *UserRepository) snapshot() snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := snapshot{
		nextID:  r.nextID,
		store:   make(map[int64]*entity.User, len(r.store)),
		byEmail: make(map[string]int64, len(r.byEmail)),
	}
	for k, v := range r.store {
		s.store[k] = v
	}
	for k, v := range r.byEmail {
		s.byEmail[k] = v
	}
	return s
}

func (r *UserRepository) restore(s snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID = s.nextID
	r.store = s.store
	r.byEmail = s.byEmail
}

// txRepository joins the running transaction instead of opening a new one.
type txRepository struct {
	*UserRepository
}

func (t txRepository) WithinTx(_ context.Context, fn func(tx repository.UserRepository) error) error {
	return fn(t)
}
