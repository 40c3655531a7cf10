package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// CreateUser 插入新用户；用户名冲突返回 ErrDuplicate，不与其它存储错误混淆。
// CreateUser inserts a new user. A username collision yields ErrDuplicate,
// kept distinct from any other storage failure.
func (q queries) CreateUser(ctx context.Context, username, passwordHash string) (User, error) {
	var user User
	err := sqlx.GetContext(ctx, q.ext, &user, `
		INSERT INTO users (username, password_hash, created_at)
		VALUES (?, ?, ?)
		RETURNING id, username, password_hash, created_at`,
		username, passwordHash, nowUTC())
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrDuplicate
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (q queries) UserByUsername(ctx context.Context, username string) (User, error) {
	var user User
	err := sqlx.GetContext(ctx, q.ext, &user, `
		SELECT id, username, password_hash, created_at
		FROM users WHERE username = ?`, username)
	if err != nil {
		return User{}, translateGetErr(err, "load user")
	}
	return user, nil
}

// --- Session operations ---

func (q queries) CreateSession(ctx context.Context, sess Session) error {
	if _, err := q.ext.ExecContext(ctx, `
		INSERT INTO sessions (token, user_id, created_at, expires_at)
		VALUES (?, ?, ?, ?)`,
		sess.Token, sess.UserID, sess.CreatedAt, sess.ExpiresAt); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (q queries) SessionByToken(ctx context.Context, token string) (Session, error) {
	var sess Session
	err := sqlx.GetContext(ctx, q.ext, &sess, `
		SELECT token, user_id, created_at, expires_at
		FROM sessions WHERE token = ?`, token)
	if err != nil {
		return Session{}, translateGetErr(err, "load session")
	}
	return sess, nil
}

// DeleteSession 删除会话；不存在时静默成功。
// DeleteSession removes a session; deleting a missing token is not an error.
func (q queries) DeleteSession(ctx context.Context, token string) error {
	if _, err := q.ext.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
