package application

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/oksasatya/user-service/internal/domain/apperror"
	"github.com/oksasatya/user-service/internal/domain/entity"
	repo "github.com/oksasatya/user-service/internal/domain/repository"
)

var (
	tracer = otel.Tracer("github.com/oksasatya/user-service/internal/application")

	// CacheStats counts hits and misses per cache name; published under /api/debug/vars.
	CacheStats = expvar.NewMap("user_cache")

	discardLogger = func() *logrus.Logger {
		l := logrus.New()
		l.SetOutput(io.Discard)
		return l
	}()
)

// Service owns the user record. Every write runs inside one store transaction
// and evicts both cache keys of the affected user once the transaction has
// committed, so readers never see a stale DTO after a write returns.
type Service struct {
	Repo      repo.UserRepository
	Cache     Cache
	Hasher    PasswordHasher
	Validator *UniquenessValidator
	Events    EventPublisher
	Logger    *logrus.Logger
	Now       func() time.Time
}

func NewService(r repo.UserRepository, cache Cache, hasher PasswordHasher, events EventPublisher, logger *logrus.Logger) *Service {
	return &Service{
		Repo:      r,
		Cache:     cache,
		Hasher:    hasher,
		Validator: NewUniquenessValidator(r),
		Events:    events,
		Logger:    logger,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) log() *logrus.Logger {
	if s.Logger == nil {
		return discardLogger
	}
	return s.Logger
}

// Get returns the user with the given id, served from the user cache when present.
func (s *Service) Get(ctx context.Context, id int64) (_ *UserDTO, err error) {
	ctx, span := tracer.Start(ctx, "UserService.Get", trace.WithAttributes(attribute.Int64("user.id", id)))
	defer func() { endSpan(span, err) }()

	key := idKey(id)
	if dto, ok, err := s.lookup(ctx, CacheUser, key); err != nil || ok {
		return dto, err
	}

	u, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundByID(err, id)
	}
	dto := ToDTO(u)
	if err := s.Cache.Put(ctx, CacheUser, key, dto); err != nil {
		return nil, fmt.Errorf("cache put: %w", err)
	}
	return dto, nil
}

// GetByEmail returns the user with the given email, served from the email cache when present.
func (s *Service) GetByEmail(ctx context.Context, email string) (_ *UserDTO, err error) {
	ctx, span := tracer.Start(ctx, "UserService.GetByEmail")
	defer func() { endSpan(span, err) }()

	if dto, ok, err := s.lookup(ctx, CacheEmail, email); err != nil || ok {
		return dto, err
	}

	u, err := s.Repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, notFoundByEmail(err, email)
	}
	dto := ToDTO(u)
	if err := s.Cache.Put(ctx, CacheEmail, email, dto); err != nil {
		return nil, fmt.Errorf("cache put: %w", err)
	}
	return dto, nil
}

func (s *Service) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.Repo.ExistsByEmail(ctx, email)
}

// Create registers a new user. The password is hashed here; the caches are
// left untouched and fill on the first read.
func (s *Service) Create(ctx context.Context, in CreateUserInput) (_ *UserDTO, err error) {
	ctx, span := tracer.Start(ctx, "UserService.Create")
	defer func() { endSpan(span, err) }()

	role := in.Role
	if role == "" {
		role = entity.RoleUser
	}
	if !role.Valid() {
		return nil, &apperror.ValidationError{Fields: map[string]string{"role": "role must be one of ROLE_USER, ROLE_ADMIN"}}
	}
	if err := s.Validator.ValidateEmailIsFree(ctx, in.Email); err != nil {
		return nil, err
	}
	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &entity.User{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Password:  hash,
		Role:      role,
	}
	err = s.Repo.WithinTx(ctx, func(tx repo.UserRepository) error {
		return tx.Save(ctx, u)
	})
	if err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, &apperror.AlreadyExistsError{Email: in.Email}
		}
		return nil, err
	}

	dto := ToDTO(u)
	s.log().WithField("user_id", u.ID).Info("user created")
	s.publish(ctx, EventUserCreated, dto)
	return dto, nil
}

// Update replaces the names (and optionally the stored password hash) of a user.
// Email, confirmation flag and role are preserved; a different email in the
// input is rejected.
func (s *Service) Update(ctx context.Context, id int64, in UpdateUserInput) (_ *UserDTO, err error) {
	ctx, span := tracer.Start(ctx, "UserService.Update", trace.WithAttributes(attribute.Int64("user.id", id)))
	defer func() { endSpan(span, err) }()

	if err := s.evict(ctx, CacheUser, idKey(id)); err != nil {
		return nil, err
	}

	var saved *entity.User
	err = s.Repo.WithinTx(ctx, func(tx repo.UserRepository) error {
		u, err := tx.FindByID(ctx, id)
		if err != nil {
			return notFoundByID(err, id)
		}
		if in.Email != "" && !strings.EqualFold(in.Email, u.Email) {
			return &apperror.ImmutableFieldError{Field: "email"}
		}
		next := u.Clone()
		next.FirstName = in.FirstName
		next.LastName = in.LastName
		if in.Password != "" {
			next.Password = in.Password
		}
		if err := tx.Save(ctx, next); err != nil {
			return err
		}
		saved = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	// a reader may have refilled either key between the first eviction and commit
	if err := s.evictBoth(ctx, saved.ID, saved.Email); err != nil {
		return nil, err
	}

	dto := ToDTO(saved)
	s.log().WithField("user_id", id).Info("user updated")
	s.publish(ctx, EventUserUpdated, dto)
	return dto, nil
}

// Delete removes a user. The id entry is evicted even when the delete fails;
// the next Get refills it from the store.
func (s *Service) Delete(ctx context.Context, id int64) (err error) {
	ctx, span := tracer.Start(ctx, "UserService.Delete", trace.WithAttributes(attribute.Int64("user.id", id)))
	defer func() { endSpan(span, err) }()

	if err := s.evict(ctx, CacheUser, idKey(id)); err != nil {
		return err
	}

	var email string
	err = s.Repo.WithinTx(ctx, func(tx repo.UserRepository) error {
		u, err := tx.FindByID(ctx, id)
		if err != nil {
			return notFoundByID(err, id)
		}
		if err := tx.DeleteByID(ctx, id); err != nil {
			return notFoundByID(err, id)
		}
		email = u.Email
		return nil
	})
	if err != nil {
		return err
	}

	// a reader may have refilled the id key between the first eviction and commit
	if err := s.evictBoth(ctx, id, email); err != nil {
		return err
	}

	s.log().WithField("user_id", id).Info("user deleted")
	s.publishEvent(ctx, Event{Type: EventUserDeleted, UserID: id, Email: email, OccurredAt: s.now()})
	return nil
}

// UpdateEmailConfirmedStatus marks the user's email as confirmed.
func (s *Service) UpdateEmailConfirmedStatus(ctx context.Context, email string) (err error) {
	ctx, span := tracer.Start(ctx, "UserService.UpdateEmailConfirmedStatus")
	defer func() { endSpan(span, err) }()

	saved, err := s.mutateByEmail(ctx, email, func(u *entity.User) error {
		u.EmailConfirmed = true
		return nil
	})
	if err != nil {
		return err
	}

	s.log().WithField("user_id", saved.ID).Info("user email confirmed")
	s.publish(ctx, EventUserEmailConfirmed, ToDTO(saved))
	return nil
}

// UpdatePassword hashes and stores a new password for the user with the given email.
func (s *Service) UpdatePassword(ctx context.Context, email, newPassword string) (err error) {
	ctx, span := tracer.Start(ctx, "UserService.UpdatePassword")
	defer func() { endSpan(span, err) }()

	saved, err := s.mutateByEmail(ctx, email, func(u *entity.User) error {
		hash, err := s.Hasher.Hash(newPassword)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		u.Password = hash
		return nil
	})
	if err != nil {
		return err
	}

	s.log().WithField("user_id", saved.ID).Info("user password updated")
	s.publish(ctx, EventUserPasswordChanged, ToDTO(saved))
	return nil
}

// mutateByEmail loads, changes and saves one user in a transaction, then
// evicts both of its cache keys.
func (s *Service) mutateByEmail(ctx context.Context, email string, mutate func(u *entity.User) error) (*entity.User, error) {
	var saved *entity.User
	err := s.Repo.WithinTx(ctx, func(tx repo.UserRepository) error {
		u, err := tx.FindByEmail(ctx, email)
		if err != nil {
			return notFoundByEmail(err, email)
		}
		if err := mutate(u); err != nil {
			return err
		}
		if err := tx.Save(ctx, u); err != nil {
			return err
		}
		saved = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.evictBoth(ctx, saved.ID, saved.Email); err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *Service) lookup(ctx context.Context, name, key string) (*UserDTO, bool, error) {
	dto, ok, err := s.Cache.Get(ctx, name, key)
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	if ok {
		CacheStats.Add(name+"_hits", 1)
		return dto, true, nil
	}
	CacheStats.Add(name+"_misses", 1)
	return nil, false, nil
}

// evict runs even when the caller has gone away; a skipped eviction after
// a commit would leave a stale entry behind.
func (s *Service) evict(ctx context.Context, name, key string) error {
	if err := s.Cache.Evict(context.WithoutCancel(ctx), name, key); err != nil {
		return fmt.Errorf("cache evict %s: %w", name, err)
	}
	s.log().WithFields(logrus.Fields{"cache": name}).Debug("cache evicted")
	return nil
}

func (s *Service) evictBoth(ctx context.Context, id int64, email string) error {
	if err := s.evict(ctx, CacheUser, idKey(id)); err != nil {
		return err
	}
	return s.evict(ctx, CacheEmail, email)
}

func (s *Service) publish(ctx context.Context, typ EventType, dto *UserDTO) {
	s.publishEvent(ctx, Event{Type: typ, UserID: dto.ID, Email: dto.Email, User: dto, OccurredAt: s.now()})
}

func (s *Service) publishEvent(ctx context.Context, ev Event) {
	if s.Events == nil {
		return
	}
	// the write is committed; a departing caller must not cancel the fan-out
	if err := s.Events.Publish(context.WithoutCancel(ctx), ev); err != nil {
		s.log().WithError(err).WithFields(logrus.Fields{
			"event":   ev.Type,
			"user_id": ev.UserID,
		}).Warn("publish user event failed")
	}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now()
}

func notFoundByID(err error, id int64) error {
	if errors.Is(err, repo.ErrNotFound) {
		return apperror.UserNotFoundByID(id)
	}
	return err
}

func notFoundByEmail(err error, email string) error {
	if errors.Is(err, repo.ErrNotFound) {
		return apperror.UserNotFoundByEmail(email)
	}
	return err
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
