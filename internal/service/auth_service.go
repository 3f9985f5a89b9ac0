package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/bitfantasy/nimo-mes/internal/config"
)

// 认证错误
var (
	ErrInvalidToken = errors.New("invalid access token")
	ErrInvalidCSRF  = errors.New("invalid csrf token")
)

const csrfKeyPrefix = "mes:csrf:"

// AuthService 认证服务: static access token, JWT sessions, redis-backed
// CSRF tokens. With an empty access token the instance is open and every
// check passes.
type AuthService struct {
	cfg config.AuthConfig
	jwt config.JWTConfig
	rdb *redis.Client
}

// NewAuthService 创建认证服务
func NewAuthService(cfg config.AuthConfig, jwtCfg config.JWTConfig, rdb *redis.Client) *AuthService {
	return &AuthService{cfg: cfg, jwt: jwtCfg, rdb: rdb}
}

// Enabled reports whether access control is configured.
func (s *AuthService) Enabled() bool {
	return s.cfg.Token != ""
}

// VerifyToken checks a presented access token in constant time.
func (s *AuthService) VerifyToken(token string) bool {
	if !s.Enabled() {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.Token)) == 1
}

// SessionClaims JWT 会话声明
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// IssueSession mints a short-lived session JWT after a successful token
// login, so browsers do not keep the access token around.
func (s *AuthService) IssueSession() (string, time.Time, error) {
	expiresAt := time.Now().Add(s.jwt.SessionExpire)
	claims := SessionClaims{
		SessionID: uuid.New().String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.jwt.Issuer,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwt.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expiresAt, nil
}

// VerifySession parses and validates a session JWT.
func (s *AuthService) VerifySession(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.jwt.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IssueCSRFToken stores a fresh 64-hex CSRF token in redis. The TTL matches
// the session lifetime.
func (s *AuthService) IssueCSRFToken(ctx context.Context) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate csrf token: %w", err)
	}
	token := hex.EncodeToString(raw)
	key := csrfKeyPrefix + token
	if err := s.rdb.Set(ctx, key, "1", s.jwt.SessionExpire).Err(); err != nil {
		return "", fmt.Errorf("store csrf token: %w", err)
	}
	return token, nil
}

// VerifyCSRFToken checks a presented CSRF token against redis. Tokens are
// not consumed on use; they expire with the session.
func (s *AuthService) VerifyCSRFToken(ctx context.Context, token string) error {
	if !s.Enabled() {
		return nil
	}
	if token == "" {
		return ErrInvalidCSRF
	}
	n, err := s.rdb.Exists(ctx, csrfKeyPrefix+token).Result()
	if err != nil {
		return fmt.Errorf("check csrf token: %w", err)
	}
	if n == 0 {
		return ErrInvalidCSRF
	}
	return nil
}
