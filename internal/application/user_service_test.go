package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/user-service/internal/application"
	"github.com/oksasatya/user-service/internal/domain/apperror"
	"github.com/oksasatya/user-service/internal/domain/entity"
	"github.com/oksasatya/user-service/internal/domain/repository"
	"github.com/oksasatya/user-service/internal/infrastructure/cache"
	"github.com/oksasatya/user-service/internal/infrastructure/memory"
	"github.com/oksasatya/user-service/pkg/helpers"
)

// countingRepo counts store calls and lets tests inject failures or hooks.
type countingRepo struct {
	inner repository.UserRepository
	state *repoState
}

type repoState struct {
	mu         sync.Mutex
	calls      map[string]int
	failDelete  error
	afterSave   func()
	afterDelete func()
}

func newCountingRepo(inner repository.UserRepository) *countingRepo {
	return &countingRepo{inner: inner, state: &repoState{calls: map[string]int{}}}
}

func (r *countingRepo) count(op string) {
	r.state.mu.Lock()
	r.state.calls[op]++
	r.state.mu.Unlock()
}

func (r *countingRepo) calls(op string) int {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	return r.state.calls[op]
}

func (r *countingRepo) FindByID(ctx context.Context, id int64) (*entity.User, error) {
	r.count("FindByID")
	return r.inner.FindByID(ctx, id)
}

func (r *countingRepo) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.count("FindByEmail")
	return r.inner.FindByEmail(ctx, email)
}

func (r *countingRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	r.count("ExistsByEmail")
	return r.inner.ExistsByEmail(ctx, email)
}

func (r *countingRepo) Save(ctx context.Context, u *entity.User) error {
	r.count("Save")
	if err := r.inner.Save(ctx, u); err != nil {
		return err
	}
	if r.state.afterSave != nil {
		r.state.afterSave()
	}
	return nil
}

func (r *countingRepo) DeleteByID(ctx context.Context, id int64) error {
	r.count("DeleteByID")
	if r.state.failDelete != nil {
		return r.state.failDelete
	}
	if err := r.inner.DeleteByID(ctx, id); err != nil {
		return err
	}
	if r.state.afterDelete != nil {
		r.state.afterDelete()
	}
	return nil
}

func (r *countingRepo) WithinTx(ctx context.Context, fn func(tx repository.UserRepository) error) error {
	return r.inner.WithinTx(ctx, func(tx repository.UserRepository) error {
		return fn(&countingRepo{inner: tx, state: r.state})
	})
}

type recordingPublisher struct {
	mu      sync.Mutex
	events  []application.Event
	ctxErrs []error
	err     error
}

func (p *recordingPublisher) Publish(ctx context.Context, ev application.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	p.ctxErrs = append(p.ctxErrs, ctx.Err())
	return p.err
}

func (p *recordingPublisher) types() []application.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]application.EventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	svc    *application.Service
	store  *memory.UserRepository
	repo   *countingRepo
	cache  *cache.LRU[application.UserDTO]
	events *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewUserRepository()
	repo := newCountingRepo(store)
	c := cache.NewLRU[application.UserDTO](128, 0)
	events := &recordingPublisher{}
	svc := application.NewService(repo, c, helpers.NewBcryptHasher(bcrypt.MinCost), events, nil)
	return &fixture{svc: svc, store: store, repo: repo, cache: c, events: events}
}

func (f *fixture) create(t *testing.T, email, first string) *application.UserDTO {
	t.Helper()
	dto, err := f.svc.Create(context.Background(), application.CreateUserInput{
		FirstName: first,
		LastName:  "Smith",
		Email:     email,
		Password:  "initial-pass",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return dto
}

func (f *fixture) cached(t *testing.T, name, key string) (*application.UserDTO, bool) {
	t.Helper()
	dto, ok, err := f.cache.Get(context.Background(), name, key)
	if err != nil {
		t.Fatalf("cache get: %v", err)
	}
	return dto, ok
}

func TestGetNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Get(context.Background(), 404)

	var nf *apperror.NotFoundError
	if !errors.As(err, &nf) || nf.Field != "id" || nf.Value != "404" {
		t.Fatalf("expected not found by id, got %v", err)
	}
	if _, ok := f.cached(t, application.CacheUser, "404"); ok {
		t.Fatal("failed lookup populated the cache")
	}

	_, err = f.svc.GetByEmail(context.Background(), "nobody@x.com")
	if !errors.As(err, &nf) || nf.Field != "email" {
		t.Fatalf("expected not found by email, got %v", err)
	}
	if f.cache.Len() != 0 {
		t.Fatalf("failed lookups populated %d entries", f.cache.Len())
	}
}

func TestGetIsReadThrough(t *testing.T) {
	f := newFixture(t)
	u := f.create(t, "a@x.com", "Ann")
	ctx := context.Background()

	first, err := f.svc.Get(ctx, u.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	second, err := f.svc.Get(ctx, u.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if *first != *second {
		t.Fatalf("DTOs differ: %+v vs %+v", first, second)
	}
	if n := f.repo.calls("FindByID"); n != 1 {
		t.Fatalf("store hit %d times, want 1", n)
	}

	_, _ = f.svc.GetByEmail(ctx, "a@x.com")
	_, _ = f.svc.GetByEmail(ctx, "a@x.com")
	if n := f.repo.calls("FindByEmail"); n != 1 {
		t.Fatalf("store hit %d times by email, want 1", n)
	}
}

func TestCreateDoesNotCache(t *testing.T) {
	f := newFixture(t)
	u := f.create(t, "a@x.com", "Ann")

	if u.Role != entity.RoleUser {
		t.Fatalf("default role = %q", u.Role)
	}
	if u.EmailConfirmed {
		t.Fatal("new user starts confirmed")
	}
	if f.cache.Len() != 0 {
		t.Fatal("create populated the cache")
	}
	stored, _ := f.store.FindByID(context.Background(), u.ID)
	if stored.Password == "initial-pass" || !helpers.CompareHashAndPassword(stored.Password, "initial-pass") {
		t.Fatal("password not stored as bcrypt hash")
	}
	if got := f.events.types(); len(got) != 1 || got[0] != application.EventUserCreated {
		t.Fatalf("events = %v", got)
	}
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.create(t, "a@x.com", "Ann")

	_, err := f.svc.Create(context.Background(), application.CreateUserInput{
		FirstName: "Bob", LastName: "Stone", Email: "a@x.com", Password: "whatever1",
	})
	var ae *apperror.AlreadyExistsError
	if !errors.As(err, &ae) || ae.Email != "a@x.com" {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
	if f.store.Len() != 1 {
		t.Fatalf("store has %d users", f.store.Len())
	}
}

func TestCreateRejectsUnknownRole(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), application.CreateUserInput{
		FirstName: "Ann", LastName: "Lee", Email: "a@x.com", Password: "password1", Role: "ROLE_ROOT",
	})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateInvalidatesBothKeys(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.create(t, "a@x.com", "A")

	// warm both caches
	if _, err := f.svc.Get(ctx, u.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.GetByEmail(ctx, "a@x.com"); err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.Update(ctx, u.ID, application.UpdateUserInput{FirstName: "B", LastName: "Smith"}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	byID, err := f.svc.Get(ctx, u.ID)
	if err != nil || byID.FirstName != "B" {
		t.Fatalf("Get after update: %+v, %v", byID, err)
	}
	byEmail, err := f.svc.GetByEmail(ctx, "a@x.com")
	if err != nil || byEmail.FirstName != "B" {
		t.Fatalf("GetByEmail after update: %+v, %v", byEmail, err)
	}
}

func TestUpdateEvictsEntriesRefilledDuringWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.create(t, "a@x.com", "A")
	stale := *u

	// a concurrent reader refills both keys with the old value before commit
	f.repo.state.afterSave = func() {
		_ = f.cache.Put(ctx, application.CacheUser, "1", &stale)
		_ = f.cache.Put(ctx, application.CacheEmail, "a@x.com", &stale)
	}
	if _, err := f.svc.Update(ctx, u.ID, application.UpdateUserInput{FirstName: "B", LastName: "Smith"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	f.repo.state.afterSave = nil

	if _, ok := f.cached(t, application.CacheUser, "1"); ok {
		t.Fatal("stale id entry survived update")
	}
	if _, ok := f.cached(t, application.CacheEmail, "a@x.com"); ok {
		t.Fatal("stale email entry survived update")
	}
}

func TestDeleteEvictsEntryRefilledDuringWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.create(t, "a@x.com", "A")
	stale := *u

	// a concurrent reader refills the id key after the first eviction
	f.repo.state.afterDelete = func() {
		_ = f.cache.Put(ctx, application.CacheUser, "1", &stale)
	}
	if err := f.svc.Delete(ctx, u.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	f.repo.state.afterDelete = nil

	if got, err := f.svc.Get(ctx, u.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("deleted user still served: %+v, %v", got, err)
	}
}

func TestEventsPublishedAfterCallerCancels(t *testing.T) {
	f := newFixture(t)
	u := f.create(t, "a@x.com", "A")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// the caller goes away once the delete is written but before commit
	f.repo.state.afterDelete = cancel
	if err := f.svc.Delete(ctx, u.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	f.events.mu.Lock()
	defer f.events.mu.Unlock()
	last := len(f.events.events) - 1
	if last < 0 || f.events.events[last].Type != application.EventUserDeleted {
		t.Fatalf("events = %v", f.events.events)
	}
	if err := f.events.ctxErrs[last]; err != nil {
		t.Fatalf("publisher got a canceled context: %v", err)
	}
}

func TestUpdatePreservesIdentityFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.create(t, "a@x.com", "Ann")
	if err := f.svc.UpdateEmailConfirmedStatus(ctx, "a@x.com"); err != nil {
		t.Fatal(err)
	}
	before, _ := f.store.FindByID(ctx, u.ID)

	got, err := f.svc.Update(ctx, u.ID, application.UpdateUserInput{
		FirstName: "Bea", LastName: "Jones", Email: "A@X.com",
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Email != "a@x.com" || !got.EmailConfirmed || got.Role != entity.RoleUser {
		t.Fatalf("identity fields changed: %+v", got)
	}
	after, _ := f.store.FindByID(ctx, u.ID)
	if after.Password != before.Password {
		t.Fatal("empty password replaced the stored hash")
	}

	if _, err := f.svc.Update(ctx, u.ID, application.UpdateUserInput{FirstName: "Bea", LastName: "Jones", Password: "$2a$04$prehashed"}); err != nil {
		t.Fatal(err)
	}
	after, _ = f.store.FindByID(ctx, u.ID)
	if after.Password != "$2a$04$prehashed" {
		t.Fatalf("password not taken verbatim: %q", after.Password)
	}
}

func TestUpdateRejectsEmailChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.create(t, "a@x.com", "Ann")

	_, err := f.svc.Update(ctx, u.ID, application.UpdateUserInput{FirstName: "Bea", LastName: "Jones", Email: "other@x.com"})
	var im *apperror.ImmutableFieldError
	if !errors.As(err, &im) || im.Field != "email" || !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected immutable email error, got %v", err)
	}
	if n := f.repo.calls("Save"); n != 1 {
		t.Fatalf("Save called %d times, want only the create", n)
	}
	got, err := f.svc.Get(ctx, u.ID)
	if err != nil || got.FirstName != "Ann" {
		t.Fatalf("user changed: %+v, %v", got, err)
	}
}

func TestUpdateNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Update(context.Background(), 9, application.UpdateUserInput{FirstName: "Bo", LastName: "Li"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if n := f.repo.calls("Save"); n != 0 {
		t.Fatalf("Save called %d times", n)
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.create(t, "a@x.com", "Ann")
	_, _ = f.svc.Get(ctx, u.ID)
	_, _ = f.svc.GetByEmail(ctx, "a@x.com")

	if err := f.svc.Delete(ctx, u.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.svc.Get(ctx, u.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("Get after delete: %v", err)
	}
	if _, err := f.svc.GetByEmail(ctx, "a@x.com"); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("GetByEmail after delete: %v", err)
	}
	types := f.events.types()
	if types[len(types)-1] != application.EventUserDeleted {
		t.Fatalf("events = %v", types)
	}
}

func TestDeleteAbsentIssuesNoStoreDelete(t *testing.T) {
	f := newFixture(t)
	err := f.svc.Delete(context.Background(), 77)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if n := f.repo.calls("DeleteByID"); n != 0 {
		t.Fatalf("DeleteByID called %d times", n)
	}
}

func TestDeleteFailureSelfHeals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.create(t, "a@x.com", "Ann")
	_, _ = f.svc.Get(ctx, u.ID)

	boom := errors.New("disk on fire")
	f.repo.state.failDelete = boom
	if err := f.svc.Delete(ctx, u.ID); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
	f.repo.state.failDelete = nil

	if _, ok := f.cached(t, application.CacheUser, "1"); ok {
		t.Fatal("id entry not evicted on entry")
	}
	got, err := f.svc.Get(ctx, u.ID)
	if err != nil || got.ID != u.ID {
		t.Fatalf("Get after failed delete: %+v, %v", got, err)
	}
}

func TestUpdateEmailConfirmedStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.create(t, "a@x.com", "Ann")

	cached, _ := f.svc.GetByEmail(ctx, "a@x.com")
	_, _ = f.svc.Get(ctx, u.ID)
	if cached.EmailConfirmed {
		t.Fatal("precondition: cached as unconfirmed")
	}

	if err := f.svc.UpdateEmailConfirmedStatus(ctx, "a@x.com"); err != nil {
		t.Fatalf("UpdateEmailConfirmedStatus: %v", err)
	}
	byEmail, _ := f.svc.GetByEmail(ctx, "a@x.com")
	byID, _ := f.svc.Get(ctx, u.ID)
	if !byEmail.EmailConfirmed || !byID.EmailConfirmed {
		t.Fatalf("stale confirmation flag: email=%v id=%v", byEmail.EmailConfirmed, byID.EmailConfirmed)
	}

	if err := f.svc.UpdateEmailConfirmedStatus(ctx, "nobody@x.com"); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdatePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.create(t, "a@x.com", "Ann")
	_, _ = f.svc.Get(ctx, u.ID)
	_, _ = f.svc.GetByEmail(ctx, "a@x.com")

	if err := f.svc.UpdatePassword(ctx, "a@x.com", "brand-new-pass"); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}
	stored, _ := f.store.FindByEmail(ctx, "a@x.com")
	if stored.Password == "brand-new-pass" {
		t.Fatal("plaintext stored")
	}
	if !helpers.CompareHashAndPassword(stored.Password, "brand-new-pass") {
		t.Fatal("stored hash does not verify")
	}
	if _, ok := f.cached(t, application.CacheUser, "1"); ok {
		t.Fatal("id entry not evicted")
	}
	if _, ok := f.cached(t, application.CacheEmail, "a@x.com"); ok {
		t.Fatal("email entry not evicted")
	}

	if err := f.svc.UpdatePassword(ctx, "nobody@x.com", "whatever-pass"); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("broker down")
	u := f.create(t, "a@x.com", "Ann")
	if _, err := f.svc.Update(context.Background(), u.ID, application.UpdateUserInput{FirstName: "Bo", LastName: "Li"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
}

func TestEvictionSurvivesCanceledContext(t *testing.T) {
	f := newFixture(t)
	u := f.create(t, "a@x.com", "Ann")
	_, _ = f.svc.Get(context.Background(), u.ID)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// the store rejects the canceled context, but the entry eviction still ran
	_ = f.svc.Delete(ctx, u.ID)
	if _, ok := f.cached(t, application.CacheUser, "1"); ok {
		t.Fatal("id entry not evicted")
	}
}

func TestConcurrentReadsAndWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.create(t, "a@x.com", "A")

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					_, _ = f.svc.Get(ctx, u.ID)
					_, _ = f.svc.GetByEmail(ctx, "a@x.com")
				}
			}
		}()
	}
	for _, name := range []string{"B", "C", "D", "E"} {
		if _, err := f.svc.Update(ctx, u.ID, application.UpdateUserInput{FirstName: name, LastName: "Smith"}); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}
	close(stop)
	wg.Wait()

	// a reader that loaded before the last commit may still have refilled a
	// key, so the final write runs with the readers quiet
	if _, err := f.svc.Update(ctx, u.ID, application.UpdateUserInput{FirstName: "F", LastName: "Smith"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	byID, _ := f.svc.Get(ctx, u.ID)
	byEmail, _ := f.svc.GetByEmail(ctx, "a@x.com")
	if byID.FirstName != "F" || byEmail.FirstName != "F" {
		t.Fatalf("stale read after writes: id=%q email=%q", byID.FirstName, byEmail.FirstName)
	}
}
