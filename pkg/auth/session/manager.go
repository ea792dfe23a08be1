package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garageworks/garage-backend/pkg/config"
	redisclient "github.com/garageworks/garage-backend/pkg/redis"
	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
)

const refreshTokenBytes = 32

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AddMember(ctx context.Context, key, member string, ttl time.Duration) error
	RemoveMembers(ctx context.Context, key string, members ...string) error
	Members(ctx context.Context, key string) ([]string, error)
}

type sessionKeyer interface {
	AccessSessionKey(accessID string) string
	UserSessionsKey(userID string) string
}

// record is the value persisted per access token. Only a hash of the refresh token is kept.
type record struct {
	UserID      uuid.UUID `json:"user_id"`
	RefreshHash string    `json:"refresh_hash"`
	IssuedAt    time.Time `json:"issued_at"`
}

// Issued is a freshly minted access id / refresh token pair.
type Issued struct {
	AccessID     string
	RefreshToken string
}

// Manager handles refresh token creation, storage and rotation.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
	now   func() time.Time
}

// AccessSessionChecker exposes the read-only surface needed by middleware.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	ttl := cfg.RefreshTokenTTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("refresh token ttl must be positive")
	}
	accessTTL := time.Duration(cfg.ExpirationMinutes) * time.Minute
	if ttl <= accessTTL {
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, accessTTL)
	}
	return &Manager{store: client, keyer: client, ttl: ttl, now: time.Now}, nil
}

// Generate opens a session for userID and returns the access id (JWT jti) plus its refresh token.
func (m *Manager) Generate(ctx context.Context, userID uuid.UUID) (Issued, error) {
	if userID == uuid.Nil {
		return Issued{}, fmt.Errorf("user id is required")
	}
	return m.open(ctx, userID)
}

// Rotate checks the refresh token for oldAccessID, closes that session and opens a new one for the same user.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, provided string) (uuid.UUID, Issued, error) {
	if strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(provided) == "" {
		return uuid.Nil, Issued{}, ErrInvalidRefreshToken
	}

	key := m.keyer.AccessSessionKey(oldAccessID)
	rec, err := m.load(ctx, key)
	if err != nil {
		return uuid.Nil, Issued{}, err
	}
	if subtle.ConstantTimeCompare([]byte(rec.RefreshHash), []byte(hashToken(provided))) != 1 {
		return uuid.Nil, Issued{}, ErrInvalidRefreshToken
	}

	issued, err := m.open(ctx, rec.UserID)
	if err != nil {
		return uuid.Nil, Issued{}, err
	}
	if err := m.close(ctx, rec.UserID, oldAccessID); err != nil {
		return uuid.Nil, Issued{}, err
	}
	return rec.UserID, issued, nil
}

// Revoke deletes the session tied to the access identifier. Unknown or
// already expired sessions are not an error.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return fmt.Errorf("access id is required")
	}
	rec, err := m.load(ctx, m.keyer.AccessSessionKey(accessID))
	if errors.Is(err, ErrInvalidRefreshToken) {
		return m.store.Del(ctx, m.keyer.AccessSessionKey(accessID))
	}
	if err != nil {
		return err
	}
	return m.close(ctx, rec.UserID, accessID)
}

// RevokeAllExcept closes every open session of userID other than keep and
// returns how many were closed. Used after a password change.
func (m *Manager) RevokeAllExcept(ctx context.Context, userID uuid.UUID, keep string) (int, error) {
	if userID == uuid.Nil {
		return 0, fmt.Errorf("user id is required")
	}
	userKey := m.keyer.UserSessionsKey(userID.String())
	accessIDs, err := m.store.Members(ctx, userKey)
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}
	var (
		keys   []string
		closed []string
	)
	for _, accessID := range accessIDs {
		if accessID == keep {
			continue
		}
		keys = append(keys, m.keyer.AccessSessionKey(accessID))
		closed = append(closed, accessID)
	}
	if len(closed) == 0 {
		return 0, nil
	}
	if err := m.store.Del(ctx, keys...); err != nil {
		return 0, err
	}
	if err := m.store.RemoveMembers(ctx, userKey, closed...); err != nil {
		return 0, err
	}
	return len(closed), nil
}

// HasSession reports whether the access ID still has an active refresh session.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, fmt.Errorf("access id is required")
	}
	if _, err := m.store.Get(ctx, m.keyer.AccessSessionKey(accessID)); err != nil {
		if errors.Is(err, redislib.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// NewAccessID produces the identifier used as the JWT jti and Redis key suffix.
func NewAccessID() string {
	return uuid.NewString()
}

func (m *Manager) open(ctx context.Context, userID uuid.UUID) (Issued, error) {
	token, err := generateRefreshToken()
	if err != nil {
		return Issued{}, err
	}
	payload, err := json.Marshal(record{UserID: userID, RefreshHash: hashToken(token), IssuedAt: m.now().UTC()})
	if err != nil {
		return Issued{}, fmt.Errorf("encode session: %w", err)
	}
	accessID := NewAccessID()
	if err := m.store.Set(ctx, m.keyer.AccessSessionKey(accessID), string(payload), m.ttl); err != nil {
		return Issued{}, err
	}
	if err := m.store.AddMember(ctx, m.keyer.UserSessionsKey(userID.String()), accessID, m.ttl); err != nil {
		return Issued{}, err
	}
	return Issued{AccessID: accessID, RefreshToken: token}, nil
}

func (m *Manager) close(ctx context.Context, userID uuid.UUID, accessID string) error {
	if err := m.store.Del(ctx, m.keyer.AccessSessionKey(accessID)); err != nil {
		return err
	}
	return m.store.RemoveMembers(ctx, m.keyer.UserSessionsKey(userID.String()), accessID)
}

func (m *Manager) load(ctx context.Context, key string) (record, error) {
	raw, err := m.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return record{}, ErrInvalidRefreshToken
		}
		return record{}, err
	}
	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return record{}, ErrInvalidRefreshToken
	}
	return rec, nil
}

func generateRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
