package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

func (q queries) CreateList(ctx context.Context, userID int64, title string) (List, error) {
	var list List
	err := sqlx.GetContext(ctx, q.ext, &list, `
		INSERT INTO todo_lists (title, user_id, created_at)
		VALUES (?, ?, ?)
		RETURNING id, title, user_id, created_at`,
		title, userID, nowUTC())
	if err != nil {
		return List{}, fmt.Errorf("insert list: %w", err)
	}
	return list, nil
}

// ListForUser 所有权约束的单行查询：不存在和属于他人都返回 ErrNotFound。
// ListForUser is the ownership-constrained lookup: absent and foreign rows
// both come back as ErrNotFound.
func (q queries) ListForUser(ctx context.Context, userID, listID int64) (List, error) {
	var list List
	err := sqlx.GetContext(ctx, q.ext, &list, `
		SELECT id, title, user_id, created_at
		FROM todo_lists WHERE id = ? AND user_id = ?`, listID, userID)
	if err != nil {
		return List{}, translateGetErr(err, "load list")
	}
	return list, nil
}

// ListsForUser 按插入顺序返回用户的全部清单
// ListsForUser returns every list owned by the user in insertion order
func (q queries) ListsForUser(ctx context.Context, userID int64) ([]List, error) {
	var lists []List
	err := sqlx.SelectContext(ctx, q.ext, &lists, `
		SELECT id, title, user_id, created_at
		FROM todo_lists WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list lists: %w", err)
	}
	return lists, nil
}

func (q queries) RenameList(ctx context.Context, listID int64, title string) error {
	if _, err := q.ext.ExecContext(ctx,
		`UPDATE todo_lists SET title = ? WHERE id = ?`, title, listID); err != nil {
		return fmt.Errorf("rename list: %w", err)
	}
	return nil
}

func (q queries) DeleteList(ctx context.Context, listID int64) error {
	if _, err := q.ext.ExecContext(ctx,
		`DELETE FROM todo_lists WHERE id = ?`, listID); err != nil {
		return fmt.Errorf("delete list: %w", err)
	}
	return nil
}

// DeleteItemsInList 删除清单内全部待办项（含孤儿），供级联删除使用。
// DeleteItemsInList removes every item carrying the list id (orphans
// included); used by cascading list deletion.
func (q queries) DeleteItemsInList(ctx context.Context, listID int64) error {
	if _, err := q.ext.ExecContext(ctx,
		`DELETE FROM todo_items WHERE list_id = ?`, listID); err != nil {
		return fmt.Errorf("delete items in list: %w", err)
	}
	return nil
}
