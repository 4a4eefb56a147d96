package credential

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresStore keeps credentials in one PostgreSQL row per user.
//
// The pgx pool is owned by the caller; the store never closes it.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
	table  string
	ttl    time.Duration
	now    func() time.Time
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore) error

// WithPostgresTable sets the schema and table name (default "public"."gosession_credentials").
func WithPostgresTable(schema, table string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		table = strings.TrimSpace(table)
		if !pgIdentRe.MatchString(schema) || !pgIdentRe.MatchString(table) {
			return errors.New("credential: invalid postgres identifier")
		}
		s.schema = schema
		s.table = table
		return nil
	}
}

// WithPostgresTTL makes rows unreadable ttl after their last write.
func WithPostgresTTL(ttl time.Duration) PostgresOption {
	return func(s *PostgresStore) error {
		if ttl < 0 {
			return errors.New("credential: negative ttl")
		}
		s.ttl = ttl
		return nil
	}
}

// NewPostgresStore constructs a store over pool.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	s := &PostgresStore{
		pool:   pool,
		schema: "public",
		table:  "gosession_credentials",
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.pool == nil {
		return nil, errors.New("credential: nil pool")
	}
	return s, nil
}

func (s *PostgresStore) ident() string {
	return pgx.Identifier{s.schema, s.table}.Sanitize()
}

// EnsureSchema creates the credential table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+s.ident()+` (
		user_id      TEXT PRIMARY KEY,
		public_key   BYTEA NOT NULL,
		private_key  BYTEA NOT NULL,
		refresh_hash BYTEA NOT NULL,
		used_hashes  BYTEA[] NOT NULL DEFAULT '{}',
		version      BIGINT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL,
		rotated_at   TIMESTAMPTZ NOT NULL,
		expires_at   TIMESTAMPTZ
	)`)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPostgresUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) expiry(now time.Time) *time.Time {
	if s.ttl <= 0 {
		return nil
	}
	exp := now.Add(s.ttl)
	return &exp
}

// Create upserts the credential and resets its used set.
func (s *PostgresStore) Create(ctx context.Context, userID string, publicKey, privateKey []byte, refreshToken string) error {
	if userID == "" {
		return errors.New("user id is required")
	}
	now := s.now().UTC()
	digest := HashRefreshToken(refreshToken)

	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+s.ident()+` (
		     user_id, public_key, private_key, refresh_hash, used_hashes, version, created_at, rotated_at, expires_at
		   ) VALUES ($1, $2, $3, $4, '{}', 1, $5, $5, $6)
		   ON CONFLICT (user_id) DO UPDATE SET
		     public_key = EXCLUDED.public_key,
		     private_key = EXCLUDED.private_key,
		     refresh_hash = EXCLUDED.refresh_hash,
		     used_hashes = '{}',
		     version = 1,
		     created_at = EXCLUDED.created_at,
		     rotated_at = EXCLUDED.rotated_at,
		     expires_at = EXCLUDED.expires_at`,
		userID, publicKey, privateKey, digest[:], now, s.expiry(now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPostgresUnavailable, err)
	}
	return nil
}

// FindByUserID loads a live credential.
func (s *PostgresStore) FindByUserID(ctx context.Context, userID string) (*Credential, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT public_key, private_key, refresh_hash, used_hashes, version, created_at, rotated_at
		   FROM `+s.ident()+`
		  WHERE user_id = $1 AND (expires_at IS NULL OR expires_at > $2)`,
		userID, s.now().UTC(),
	)
	c, err := scanCredential(userID, row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// Rotate performs the compare-and-swap as one conditional UPDATE. A concurrent
// rotation that commits first changes refresh_hash, so the row no longer
// matches and this statement updates nothing.
func (s *PostgresStore) Rotate(ctx context.Context, userID, presented, next string) (*Credential, error) {
	now := s.now().UTC()
	oldDigest := HashRefreshToken(presented)
	newDigest := HashRefreshToken(next)

	row := s.pool.QueryRow(ctx,
		`UPDATE `+s.ident()+`
		    SET refresh_hash = $3,
		        used_hashes = array_append(used_hashes, $2),
		        version = version + 1,
		        rotated_at = $4,
		        expires_at = $5
		  WHERE user_id = $1
		    AND refresh_hash = $2
		    AND $2 <> $3
		    AND NOT ($3 = ANY(used_hashes))
		    AND (expires_at IS NULL OR expires_at > $4)
		RETURNING public_key, private_key, refresh_hash, used_hashes, version, created_at, rotated_at`,
		userID, oldDigest[:], newDigest[:], now, s.expiry(now),
	)
	c, err := scanCredential(userID, row)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	return nil, s.classifyRotateMiss(ctx, userID, oldDigest, newDigest, now)
}

func (s *PostgresStore) classifyRotateMiss(ctx context.Context, userID string, oldDigest, newDigest Digest, now time.Time) error {
	var reused, current, invalid bool
	err := s.pool.QueryRow(ctx,
		`SELECT $2 = ANY(used_hashes), refresh_hash = $2, $2 = $3 OR $3 = ANY(used_hashes)
		   FROM `+s.ident()+`
		  WHERE user_id = $1 AND (expires_at IS NULL OR expires_at > $4)`,
		userID, oldDigest[:], newDigest[:], now,
	).Scan(&reused, &current, &invalid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrPostgresUnavailable, err)
	}

	switch {
	case reused:
		return errors.Join(ErrRotationConflict, ErrRefreshReused)
	case current && invalid:
		return ErrInvalidRotation
	default:
		return ErrRotationConflict
	}
}

// DeleteByUserID removes the credential row. Missing rows are not an error.
func (s *PostgresStore) DeleteByUserID(ctx context.Context, userID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM `+s.ident()+` WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("%w: %v", ErrPostgresUnavailable, err)
	}
	return nil
}

func scanCredential(userID string, row pgx.Row) (*Credential, error) {
	var (
		pub, priv, current []byte
		used               [][]byte
		version            int64
		created, rotated   time.Time
	)
	if err := row.Scan(&pub, &priv, &current, &used, &version, &created, &rotated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPostgresUnavailable, err)
	}
	if len(current) != len(Digest{}) || version < 1 {
		return nil, ErrCorrupt
	}

	c := &Credential{
		UserID:     userID,
		PublicKey:  pub,
		PrivateKey: priv,
		Used:       make(map[Digest]struct{}, len(used)),
		Version:    uint64(version),
		CreatedAt:  created,
		RotatedAt:  rotated,
	}
	copy(c.RefreshHash[:], current)
	for _, h := range used {
		if len(h) != len(Digest{}) {
			return nil, ErrCorrupt
		}
		var d Digest
		copy(d[:], h)
		c.Used[d] = struct{}{}
	}
	return c, nil
}
