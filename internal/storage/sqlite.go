package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// 存储层哨兵错误；上层负责翻译成各自的领域错误。
// Storage-level sentinel errors; callers translate them into domain errors.
var (
	ErrNotFound  = errors.New("row not found")
	ErrDuplicate = errors.New("duplicate row")
)

// Store 基于 SQLite (WAL 模式) 的持久化实现
// Store implements persistence using SQLite with WAL mode
type Store struct {
	db   *sqlx.DB
	path string
	queries
}

// Open 创建并初始化 SQLite 数据库
// Open creates and initializes the SQLite database
func Open(dbPath string) (*Store, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite db path is empty")
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// 启用 WAL 模式和优化 PRAGMA / Enable WAL and performance PRAGMAs
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	store := &Store{db: db, path: dbPath}
	store.queries = queries{ext: db}
	if err := store.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return store, nil
}

func (s *Store) ensureSchema() error {
	// todo_items.parent_id 不加外键约束：悬挂的父指针必须可表达
	// （删除父项后子项成为孤儿，创建时也不校验父项），外键会拒绝这两种行为。
	// todo_items.parent_id carries no FK constraint: dangling parent pointers
	// must stay representable (orphans after delete, unvalidated parent at
	// creation) and an FK would reject both.
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		username      TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS todo_lists (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		title      TEXT NOT NULL,
		user_id    INTEGER NOT NULL REFERENCES users(id),
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS todo_items (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		content     TEXT NOT NULL,
		completed   INTEGER NOT NULL DEFAULT 0,
		is_expanded INTEGER NOT NULL DEFAULT 1,
		list_id     INTEGER NOT NULL REFERENCES todo_lists(id),
		parent_id   INTEGER,
		created_at  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		token      TEXT PRIMARY KEY,
		user_id    INTEGER NOT NULL REFERENCES users(id),
		created_at TEXT NOT NULL,
		expires_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_lists_user ON todo_lists(user_id);
	CREATE INDEX IF NOT EXISTS idx_items_list ON todo_items(list_id);
	CREATE INDEX IF NOT EXISTS idx_items_parent ON todo_items(parent_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close 关闭数据库连接 / Close the database connection
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Tx 在单个事务中执行 fn；fn 返回错误时回滚，否则提交。
// Tx runs fn inside a single transaction, rolling back on error.
func (s *Store) Tx(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	t := &Tx{queries: queries{ext: tx}}
	if err := fn(t); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Tx 事务句柄，暴露和 Store 相同的查询方法集
// Tx is a transaction handle exposing the same query set as Store
type Tx struct {
	queries
}

// queries 在 *sqlx.DB 和 *sqlx.Tx 上共享全部 SQL 操作
// queries shares all SQL operations between *sqlx.DB and *sqlx.Tx
type queries struct {
	ext sqlx.ExtContext
}

func nowUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// isUniqueViolation 判断是否为 UNIQUE 约束冲突
// isUniqueViolation reports whether err is a UNIQUE constraint violation
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

func translateGetErr(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
