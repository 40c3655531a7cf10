// Package identity 负责注册、登录和服务端会话；调用方身份全部由此确立。
// Package identity handles registration, login and server-side sessions; it
// is the only place a caller identity ever comes from.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"todod/internal/storage"
)

var (
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthenticated    = errors.New("authentication required")
)

type Service struct {
	store *storage.Store
	cost  int
	ttl   time.Duration
}

// New 创建身份服务；cost 为 bcrypt 代价因子，ttl 为会话有效期。
// New builds the identity service; cost is the bcrypt cost factor and ttl the
// session lifetime.
func New(store *storage.Store, cost int, ttl time.Duration) *Service {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{store: store, cost: cost, ttl: ttl}
}

// Register 创建新用户；密码只保存 bcrypt 哈希。用户名冲突返回
// ErrDuplicateUsername，其它存储错误原样上抛，不混为一谈。
// Register creates a new user, storing only the bcrypt hash of the password.
// A username collision returns ErrDuplicateUsername; any other storage
// failure is surfaced as-is instead of being conflated with it.
func (s *Service) Register(ctx context.Context, username, password string) (storage.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return storage.User{}, ErrInvalidCredentials
	}
	if password == "" {
		return storage.User{}, ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return storage.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, username, string(hash))
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return storage.User{}, ErrDuplicateUsername
		}
		return storage.User{}, err
	}
	return user, nil
}

// Login 校验凭据并签发会话。未知用户与错误密码返回同一个错误，不泄露存在性。
// Login checks the credentials and issues a session. Unknown user and wrong
// password produce the same error so existence never leaks.
func (s *Service) Login(ctx context.Context, username, password string) (storage.Session, error) {
	user, err := s.store.UserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Session{}, ErrInvalidCredentials
		}
		return storage.Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return storage.Session{}, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	sess := storage.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now.Format(time.RFC3339),
		ExpiresAt: now.Add(s.ttl).Format(time.RFC3339),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return storage.Session{}, err
	}
	return sess, nil
}

// Authenticate 将不透明 token 解析为用户 ID；过期会话当场删除。
// Authenticate resolves an opaque token to a user id; expired sessions are
// deleted on sight.
func (s *Service) Authenticate(ctx context.Context, token string) (int64, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, ErrUnauthenticated
	}
	sess, err := s.store.SessionByToken(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, ErrUnauthenticated
		}
		return 0, err
	}
	expires, err := time.Parse(time.RFC3339, sess.ExpiresAt)
	if err != nil || !expires.After(time.Now().UTC()) {
		_ = s.store.DeleteSession(ctx, token)
		return 0, ErrUnauthenticated
	}
	return sess.UserID, nil
}

// Logout 作废会话；token 不存在也算成功。
// Logout invalidates the session; an unknown token still succeeds.
func (s *Service) Logout(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return s.store.DeleteSession(ctx, token)
}

// SessionTTL 返回配置的会话有效期，供 HTTP 层设置 cookie MaxAge。
// SessionTTL reports the configured session lifetime for cookie MaxAge.
func (s *Service) SessionTTL() time.Duration {
	return s.ttl
}
