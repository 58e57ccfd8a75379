package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"muhtaref/internal/cache"
)

const (
	refreshTokenKeyPrefix   = "refresh_token:"
	accessTokenKeyPrefix    = "blacklist:access_token:"
	resetTokenKeyPrefix     = "password_reset:"
	resetTokenUserKeyPrefix = "password_reset_user:"
	sessionsRevokedPrefix   = "sessions_revoked:"

	// ResetTokenExpiry is how long a password reset link stays usable.
	ResetTokenExpiry = time.Hour

	resetTokenBytes = 32
)

// ErrResetTokenInvalid is returned when a reset token is unknown, used or expired.
var ErrResetTokenInvalid = errors.New("reset token invalid or expired")

// ErrAccessTokenRevoked is returned for access tokens blacklisted at logout.
var ErrAccessTokenRevoked = errors.New("access token revoked")

// ErrRefreshTokenNotFound is returned when a refresh token is not stored.
var ErrRefreshTokenNotFound = errors.New("refresh token not found")

// TokenStoreInterface defines the interface for session token storage operations.
type TokenStoreInterface interface {
	StoreRefreshToken(ctx context.Context, tokenID string, userID uuid.UUID, ttl time.Duration) error
	GetRefreshToken(ctx context.Context, tokenID string) (uuid.UUID, error)
	DeleteRefreshToken(ctx context.Context, tokenID string) error
	BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error
	IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error)
	RevokeSessions(ctx context.Context, userID uuid.UUID) error
}

// ResetTokenStore issues and redeems single-use password reset tokens.
type ResetTokenStore interface {
	IssueResetToken(ctx context.Context, userID uuid.UUID, email string, ttl time.Duration) (string, error)
	RedeemResetToken(ctx context.Context, token string) (*ResetToken, error)
}

// ResetToken is what a redeemed reset token resolves to.
type ResetToken struct {
	UserID   uuid.UUID `json:"user_id"`
	Email    string    `json:"email"`
	IssuedAt time.Time `json:"issued_at"`
}

type refreshTokenData struct {
	UserID   uuid.UUID `json:"user_id"`
	IssuedAt time.Time `json:"issued_at"`
}

// TokenStore handles storage and retrieval of tokens in Redis.
type TokenStore struct {
	cache *cache.Client
}

var (
	_ TokenStoreInterface = (*TokenStore)(nil)
	_ ResetTokenStore     = (*TokenStore)(nil)
)

// NewTokenStore creates a new token store.
func NewTokenStore(cache *cache.Client) *TokenStore {
	return &TokenStore{cache: cache}
}

// StoreRefreshToken stores a refresh token in Redis with TTL.
func (s *TokenStore) StoreRefreshToken(ctx context.Context, tokenID string, userID uuid.UUID, ttl time.Duration) error {
	payload, err := json.Marshal(refreshTokenData{UserID: userID, IssuedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal token data: %w", err)
	}
	return s.cache.Put(ctx, refreshTokenKeyPrefix+tokenID, payload, ttl)
}

// GetRefreshToken retrieves the user a refresh token belongs to.
func (s *TokenStore) GetRefreshToken(ctx context.Context, tokenID string) (uuid.UUID, error) {
	data, err := s.cache.Get(ctx, refreshTokenKeyPrefix+tokenID)
	if err != nil || data == nil {
		return uuid.Nil, ErrRefreshTokenNotFound
	}

	var tokenData refreshTokenData
	if err := json.Unmarshal(data, &tokenData); err != nil {
		return uuid.Nil, fmt.Errorf("unmarshal token data: %w", err)
	}

	if revoked, _ := s.cache.Get(ctx, sessionsRevokedPrefix+tokenData.UserID.String()); revoked != nil {
		revokedAt, err := time.Parse(time.RFC3339Nano, string(revoked))
		if err != nil || !tokenData.IssuedAt.After(revokedAt) {
			return uuid.Nil, ErrRefreshTokenNotFound
		}
	}
	return tokenData.UserID, nil
}

// RevokeSessions invalidates every refresh token issued to the user so far.
// Tokens issued afterwards are unaffected.
func (s *TokenStore) RevokeSessions(ctx context.Context, userID uuid.UUID) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	return s.cache.Put(ctx, sessionsRevokedPrefix+userID.String(), []byte(now), RefreshTokenExpiry)
}

// DeleteRefreshToken removes a refresh token from Redis.
func (s *TokenStore) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	return s.cache.Delete(ctx, refreshTokenKeyPrefix+tokenID)
}

// BlacklistAccessToken adds an access token to the blacklist until it
// expires. Write failures are reported so logout never silently succeeds.
func (s *TokenStore) BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.cache.Put(ctx, accessTokenKeyPrefix+tokenID, []byte("1"), ttl)
}

// IsAccessTokenBlacklisted checks if an access token is blacklisted.
func (s *TokenStore) IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	data, err := s.cache.Get(ctx, accessTokenKeyPrefix+tokenID)
	if err != nil {
		return false, nil // Not blacklisted if error (fail safe)
	}
	return data != nil, nil
}

// IssueResetToken creates a reset token for the user and returns its plain
// value. Only the SHA-256 digest is stored. Any token previously issued to
// the same user stops working.
func (s *TokenStore) IssueResetToken(ctx context.Context, userID uuid.UUID, email string, ttl time.Duration) (string, error) {
	raw := make([]byte, resetTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	token := hex.EncodeToString(raw)
	digest := digestToken(token)

	payload, err := json.Marshal(ResetToken{UserID: userID, Email: email, IssuedAt: time.Now().UTC()})
	if err != nil {
		return "", fmt.Errorf("marshal reset token: %w", err)
	}
	if err := s.cache.Put(ctx, resetTokenKeyPrefix+digest, payload, ttl); err != nil {
		return "", err
	}

	prev, err := s.cache.Swap(ctx, resetTokenUserKeyPrefix+userID.String(), []byte(digest), ttl)
	if err != nil {
		return "", err
	}
	if len(prev) > 0 && string(prev) != digest {
		_ = s.cache.Delete(ctx, resetTokenKeyPrefix+string(prev))
	}
	return token, nil
}

// RedeemResetToken consumes the token. A token can be redeemed once; expired
// or unknown tokens yield ErrResetTokenInvalid.
func (s *TokenStore) RedeemResetToken(ctx context.Context, token string) (*ResetToken, error) {
	if token == "" {
		return nil, ErrResetTokenInvalid
	}
	digest := digestToken(token)

	data, err := s.cache.Take(ctx, resetTokenKeyPrefix+digest)
	if errors.Is(err, cache.ErrMiss) {
		return nil, ErrResetTokenInvalid
	}
	if err != nil {
		return nil, err
	}

	var rt ResetToken
	if err := json.Unmarshal(data, &rt); err != nil {
		return nil, fmt.Errorf("unmarshal reset token: %w", err)
	}

	indexKey := resetTokenUserKeyPrefix + rt.UserID.String()
	if current, _ := s.cache.Get(ctx, indexKey); string(current) == digest {
		_ = s.cache.Delete(ctx, indexKey)
	}
	return &rt, nil
}

func digestToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
