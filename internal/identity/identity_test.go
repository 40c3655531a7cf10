package identity

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"todod/internal/storage"
)

func newTestService(t *testing.T) (*Service, *storage.Store) {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return New(store, bcrypt.MinCost, time.Hour), store
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "pw1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Username != "alice" {
		t.Fatalf("username=%q", user.Username)
	}
	if user.PasswordHash == "pw1" || user.PasswordHash == "" {
		t.Fatalf("password stored in plaintext or empty")
	}

	sess, err := svc.Login(ctx, "alice", "pw1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.Token == "" {
		t.Fatal("empty session token")
	}

	userID, err := svc.Authenticate(ctx, sess.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if userID != user.ID {
		t.Fatalf("userID=%d, want %d", userID, user.ID)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "pw1"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err := svc.Register(ctx, "alice", "pw2")
	if !errors.Is(err, ErrDuplicateUsername) {
		t.Fatalf("err=%v, want ErrDuplicateUsername", err)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "pw1"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// 未知用户与错误密码返回同一个错误 / unknown user and wrong password look identical
	if _, err := svc.Login(ctx, "ghost", "pw1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user err=%v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password err=%v, want ErrInvalidCredentials", err)
	}
}

func TestAuthenticateRejectsUnknownAndEmpty(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Authenticate(ctx, ""); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("empty token err=%v", err)
	}
	if _, err := svc.Authenticate(ctx, "no-such-token"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("unknown token err=%v", err)
	}
}

func TestAuthenticateExpiredSessionDeleted(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "pw1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	past := time.Now().UTC().Add(-time.Minute).Format(time.RFC3339)
	sess := storage.Session{Token: "expired_tok", UserID: user.ID, CreatedAt: past, ExpiresAt: past}
	if err := store.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if _, err := svc.Authenticate(ctx, "expired_tok"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expired err=%v, want ErrUnauthenticated", err)
	}
	// 过期会话应当已被删除 / the expired row must be gone
	if _, err := store.SessionByToken(ctx, "expired_tok"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expired session still present, err=%v", err)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "pw1"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	sess, err := svc.Login(ctx, "alice", "pw1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := svc.Logout(ctx, sess.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.Authenticate(ctx, sess.Token); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("after logout err=%v, want ErrUnauthenticated", err)
	}

	// 重复登出不算错误 / logging out twice is fine
	if err := svc.Logout(ctx, sess.Token); err != nil {
		t.Fatalf("second Logout: %v", err)
	}
}

func TestRegisterRejectsEmptyCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "  ", "pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("blank username err=%v", err)
	}
	if _, err := svc.Register(ctx, "alice", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("empty password err=%v", err)
	}
}
