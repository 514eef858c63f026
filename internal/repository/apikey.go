package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/academy-checkout/internal/domain/auth"
)

const (
	getAPIKeyByHashSQL = `SELECT id, key_hash, subject_id, roles
		FROM api_keys WHERE key_hash = $1 AND active = TRUE`

	upsertAPIKeySQL = `INSERT INTO api_keys (id, key_hash, subject_id, roles)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET key_hash = EXCLUDED.key_hash,
			subject_id = EXCLUDED.subject_id, roles = EXCLUDED.roles, active = TRUE`
)

var _ auth.Repository = (*APIKeyRepository)(nil)

// APIKeyRepository provides API key lookups backed by PostgreSQL.
type APIKeyRepository struct {
	pool *pgxpool.Pool
}

// NewAPIKeyRepository returns an APIKeyRepository that uses the given pool.
func NewAPIKeyRepository(pool *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{pool: pool}
}

// FindByHash looks up an active API key by its HMAC-SHA256 hash.
func (r *APIKeyRepository) FindByHash(ctx context.Context, hash string) (*auth.APIKeyInfo, error) {
	var (
		info  auth.APIKeyInfo
		roles []string
	)
	err := conn(ctx, r.pool).QueryRow(ctx, getAPIKeyByHashSQL, hash).Scan(
		&info.ID, &info.KeyHash, &info.SubjectID, &roles,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrKeyNotFound
		}
		return nil, errors.Wrap(err, "find api key by hash")
	}
	for _, role := range roles {
		info.Roles = append(info.Roles, auth.Role(role))
	}
	return &info, nil
}

// Upsert stores an API key. Used by seeding.
func (r *APIKeyRepository) Upsert(ctx context.Context, info auth.APIKeyInfo) error {
	roles := make([]string, len(info.Roles))
	for i, role := range info.Roles {
		roles[i] = string(role)
	}
	_, err := conn(ctx, r.pool).Exec(ctx, upsertAPIKeySQL, info.ID, info.KeyHash, info.SubjectID, roles)
	if err != nil {
		return errors.Wrapf(err, "upsert api key %q", info.ID)
	}
	return nil
}
