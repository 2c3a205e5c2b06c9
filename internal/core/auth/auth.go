// Package auth provides HMAC-based API key authentication for gRPC services.
package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// contextKey is a typed key for context values to avoid collisions.
type contextKey string

// clientKey is the context key for the authenticated client name.
const clientKey = contextKey("client")

// Queries defines the named-query operations authentication needs.
// Implemented by *db.Queries.
type Queries interface {
	Get(ctx context.Context, name string, dest interface{}, args ...interface{}) error
	Exec(ctx context.Context, name string, args ...interface{}) (sql.Result, error)
}

// Authenticator validates API keys using HMAC-SHA256 signatures.
// Holds in-memory secret map for O(1) lookup and queries for key verification.
type Authenticator struct {
	secrets map[string][]byte
	queries Queries
	now     func() time.Time
}

// NewAuthenticator creates an authenticator with HMAC secrets and query interface.
func NewAuthenticator(secrets map[string][]byte, queries Queries) *Authenticator {
	return &Authenticator{
		secrets: secrets,
		queries: queries,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Authenticate validates an API key and returns the client name it was
// issued to.
func (a *Authenticator) Authenticate(ctx context.Context, apiKey string) (string, error) {
	key, err := ParseAPIKey(apiKey)
	if err != nil {
		return "", err
	}

	secret, ok := a.secrets[key.SecretID]
	if !ok {
		return "", ErrUnknownKey
	}

	computedHash := key.Sign(secret)

	var result struct {
		APIKeyID   string       `db:"api_key_id"`
		Name       string       `db:"name"`
		RevokedAt  sql.NullTime `db:"revoked_at"`
		LastUsedAt sql.NullTime `db:"last_used_at"`
	}

	err = a.queries.Get(ctx, "get-api-key-by-hash", &result, computedHash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidKey
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if result.RevokedAt.Valid {
		return "", ErrKeyRevoked
	}

	// Throttled to one write per minute per key.
	if shouldUpdateLastUsed(result.LastUsedAt, a.now()) {
		_, _ = a.queries.Exec(ctx, "update-last-used", a.now(), result.APIKeyID)
	}

	return result.Name, nil
}

func shouldUpdateLastUsed(lastUsed sql.NullTime, now time.Time) bool {
	if !lastUsed.Valid {
		return true
	}
	return now.Sub(lastUsed.Time) > time.Minute
}

// IssuedKey is a freshly generated API key. Key is shown once; only its
// HMAC is stored.
type IssuedKey struct {
	ID   string
	Name string
	Key  string
}

// Issue generates a key signed with the given secret and stores its hash.
func Issue(ctx context.Context, queries Queries, secretID string, secret []byte, name string) (IssuedKey, error) {
	random := make([]byte, 32)
	if _, err := rand.Read(random); err != nil {
		return IssuedKey{}, fmt.Errorf("failed to generate key: %w", err)
	}
	key := NewAPIKey(secretID, random)
	if _, err := ParseAPIKey(key.String()); err != nil {
		return IssuedKey{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return IssuedKey{}, fmt.Errorf("failed to generate key id: %w", err)
	}
	if _, err := queries.Exec(ctx, "create-api-key", id.String(), name, key.Sign(secret), time.Now().UTC()); err != nil {
		return IssuedKey{}, fmt.Errorf("failed to store key: %w", err)
	}
	return IssuedKey{ID: id.String(), Name: name, Key: key.String()}, nil
}

// Revoke marks a key as revoked. Revoking an unknown or already revoked key
// returns ErrInvalidKey.
func Revoke(ctx context.Context, queries Queries, apiKeyID string) error {
	res, err := queries.Exec(ctx, "revoke-api-key", time.Now().UTC(), apiKeyID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrInvalidKey
	}
	return nil
}

// UnaryInterceptor returns gRPC interceptor that authenticates requests.
// Methods listed in skip (full method names) are served without a key.
func (a *Authenticator) UnaryInterceptor(skip ...string) grpc.UnaryServerInterceptor {
	open := make(map[string]bool, len(skip))
	for _, m := range skip {
		open[m] = true
	}
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if open[info.FullMethod] {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		apiKeys := md.Get("x-api-key")
		if len(apiKeys) == 0 {
			return nil, status.Error(codes.Unauthenticated, ErrMissingKey.Error())
		}

		client, err := a.Authenticate(ctx, apiKeys[0])
		if err != nil {
			switch {
			case errors.Is(err, ErrKeyRevoked):
				return nil, status.Error(codes.PermissionDenied, err.Error())
			case errors.Is(err, ErrDatabase):
				return nil, status.Error(codes.Unavailable, err.Error())
			default:
				return nil, status.Error(codes.Unauthenticated, err.Error())
			}
		}

		return handler(context.WithValue(ctx, clientKey, client), req)
	}
}

// ClientFromContext returns the authenticated client name, or "" when the
// request was not authenticated.
func ClientFromContext(ctx context.Context) string {
	if client, ok := ctx.Value(clientKey).(string); ok {
		return client
	}
	return ""
}
