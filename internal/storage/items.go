package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// CreateItem 插入新待办项。parentID 不做存在性或所有权校验，
// 悬挂或他人父指针原样入库。
// CreateItem inserts a new item. parentID is NOT validated for existence or
// ownership; dangling and foreign parent pointers are stored as given.
func (q queries) CreateItem(ctx context.Context, listID int64, content string, parentID *int64) (Item, error) {
	var item Item
	err := sqlx.GetContext(ctx, q.ext, &item, `
		INSERT INTO todo_items (content, completed, is_expanded, list_id, parent_id, created_at)
		VALUES (?, 0, 1, ?, ?, ?)
		RETURNING id, content, completed, is_expanded, list_id, parent_id, created_at`,
		content, listID, parentID, nowUTC())
	if err != nil {
		return Item{}, fmt.Errorf("insert item: %w", err)
	}
	return item, nil
}

// ItemForUser 通过清单联结做所有权约束查询；缺席与越权同样返回 ErrNotFound。
// ItemForUser joins through todo_lists to constrain by owner; absent and
// foreign rows both yield ErrNotFound.
func (q queries) ItemForUser(ctx context.Context, userID, itemID int64) (Item, error) {
	var item Item
	err := sqlx.GetContext(ctx, q.ext, &item, `
		SELECT i.id, i.content, i.completed, i.is_expanded, i.list_id, i.parent_id, i.created_at
		FROM todo_items i
		JOIN todo_lists l ON l.id = i.list_id
		WHERE i.id = ? AND l.user_id = ?`, itemID, userID)
	if err != nil {
		return Item{}, translateGetErr(err, "load item")
	}
	return item, nil
}

// ItemsForUser 返回用户全部待办项，按插入顺序。树装配需要跨清单可见：
// 跨清单移动后，子项可能挂在另一张清单的父项下。
// ItemsForUser returns all of the user's items in insertion order. Tree
// assembly needs cross-list visibility: after a cross-list move a child can
// hang under a parent that lives in another list.
func (q queries) ItemsForUser(ctx context.Context, userID int64) ([]Item, error) {
	var items []Item
	err := sqlx.SelectContext(ctx, q.ext, &items, `
		SELECT i.id, i.content, i.completed, i.is_expanded, i.list_id, i.parent_id, i.created_at
		FROM todo_items i
		JOIN todo_lists l ON l.id = i.list_id
		WHERE l.user_id = ? ORDER BY i.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// UpdateItem 一次性应用 patch 中出现的全部字段；全部缺席则为空操作。
// UpdateItem applies every field present in the patch in one statement; an
// all-absent patch is a no-op.
func (q queries) UpdateItem(ctx context.Context, itemID int64, patch ItemPatch) error {
	sets := make([]string, 0, 5)
	args := make([]any, 0, 6)
	if patch.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *patch.Content)
	}
	if patch.Completed != nil {
		sets = append(sets, "completed = ?")
		args = append(args, *patch.Completed)
	}
	if patch.IsExpanded != nil {
		sets = append(sets, "is_expanded = ?")
		args = append(args, *patch.IsExpanded)
	}
	if patch.ListID != nil {
		sets = append(sets, "list_id = ?")
		args = append(args, *patch.ListID)
	}
	if patch.Parent.Set {
		// nil ID 落库为 NULL，即脱离为根节点 / nil ID lands as NULL (detach to root)
		sets = append(sets, "parent_id = ?")
		args = append(args, patch.Parent.ID)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, itemID)
	query := "UPDATE todo_items SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	if _, err := q.ext.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// DeleteItem 只删除这一行；引用它的子项保持原样成为孤儿。
// DeleteItem removes exactly this row; children referencing it are left
// orphaned rather than cascaded or re-parented.
func (q queries) DeleteItem(ctx context.Context, itemID int64) error {
	if _, err := q.ext.ExecContext(ctx,
		`DELETE FROM todo_items WHERE id = ?`, itemID); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}
