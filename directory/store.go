package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	goSession "github.com/MrEthical07/goSession"
)

const defaultPrefix = "gs:user"

// Store keeps user records in Redis.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewStore returns a Store. An empty prefix selects "gs:user".
func NewStore(rdb redis.UniversalClient, prefix string) *Store {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{
		redis:  rdb,
		prefix: prefix,
		now:    time.Now,
	}
}

// Create reserves the email and writes the record. It returns
// goSession.ErrDuplicateEmail when the email is already reserved.
func (s *Store) Create(ctx context.Context, in goSession.CreateUserInput) (goSession.UserRecord, error) {
	email := normalize(in.Email)
	if email == "" {
		return goSession.UserRecord{}, fmt.Errorf("%w: email required", goSession.ErrInvalidInput)
	}

	rec := goSession.UserRecord{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         in.Name,
		PasswordHash: in.PasswordHash,
		Roles:        append([]string(nil), in.Roles...),
		CreatedAt:    s.now().UTC(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return goSession.UserRecord{}, err
	}

	ok, err := s.redis.SetNX(ctx, s.emailKey(email), rec.ID, 0).Result()
	if err != nil {
		return goSession.UserRecord{}, unavailable(err)
	}
	if !ok {
		return goSession.UserRecord{}, goSession.ErrDuplicateEmail
	}

	if err := s.redis.Set(ctx, s.userKey(rec.ID), data, 0).Err(); err != nil {
		// Release the reservation so the email can be retried.
		_ = s.redis.Del(ctx, s.emailKey(email)).Err()
		return goSession.UserRecord{}, unavailable(err)
	}

	return rec, nil
}

// FindByEmail resolves the email index, then loads the record.
func (s *Store) FindByEmail(ctx context.Context, email string) (goSession.UserRecord, error) {
	id, err := s.redis.Get(ctx, s.emailKey(normalize(email))).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return goSession.UserRecord{}, goSession.ErrUserNotFound
		}
		return goSession.UserRecord{}, unavailable(err)
	}
	return s.FindByID(ctx, id)
}

// FindByID loads one record.
func (s *Store) FindByID(ctx context.Context, id string) (goSession.UserRecord, error) {
	data, err := s.redis.Get(ctx, s.userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return goSession.UserRecord{}, goSession.ErrUserNotFound
		}
		return goSession.UserRecord{}, unavailable(err)
	}

	var rec goSession.UserRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return goSession.UserRecord{}, fmt.Errorf("decode user %s: %w", id, err)
	}
	return rec, nil
}

// UpdatePasswordHash replaces the stored hash of user id. The record is
// rewritten under WATCH so a concurrent Delete is not undone.
func (s *Store) UpdatePasswordHash(ctx context.Context, id, encodedHash string) error {
	key := s.userKey(id)
	var decodeErr error
	err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return goSession.ErrUserNotFound
			}
			return err
		}

		var rec goSession.UserRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			decodeErr = fmt.Errorf("decode user %s: %w", id, err)
			return decodeErr
		}
		rec.PasswordHash = encodedHash
		next, err := json.Marshal(rec)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		return err
	}, key)
	switch {
	case err == nil:
		return nil
	case decodeErr != nil, errors.Is(err, goSession.ErrUserNotFound):
		return err
	case errors.Is(err, redis.TxFailedErr):
		return fmt.Errorf("%w: user %s changed during update", goSession.ErrStoreUnavailable, id)
	default:
		return unavailable(err)
	}
}

var _ goSession.PasswordHashUpdater = (*Store)(nil)

// Delete removes the record and its email reservation. Deleting a missing
// user is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	rec, err := s.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, goSession.ErrUserNotFound) {
			return nil
		}
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.userKey(id))
		pipe.Del(ctx, s.emailKey(rec.Email))
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) userKey(id string) string {
	return s.prefix + ":user:" + id
}

func (s *Store) emailKey(email string) string {
	return s.prefix + ":email:" + email
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", goSession.ErrStoreUnavailable, err)
}
