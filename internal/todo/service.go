// Package todo 实现核心：所有权解析、清单注册表和树引擎。
// 所有涉及结构变更的入口都先过所有权解析，再执行树操作。
// Package todo implements the core: ownership resolution, the list registry
// and the tree engine. Every structural mutation resolves ownership first and
// only then touches the tree.
package todo

import (
	"context"
	"errors"
	"strings"

	"todod/internal/storage"
)

type Service struct {
	store *storage.Store
}

func New(store *storage.Store) *Service {
	return &Service{store: store}
}

// --- Ownership resolver ---

// ResolveList 将 (用户, 清单) 解析为清单行；缺席与越权统一为 ErrNotFound，无副作用。
// ResolveList resolves (user, list) to the list row; absent and foreign both
// collapse to ErrNotFound. No side effects.
func (s *Service) ResolveList(ctx context.Context, userID, listID int64) (storage.List, error) {
	list, err := s.store.ListForUser(ctx, userID, listID)
	if err != nil {
		return storage.List{}, resolveErr(err, ErrNotFound)
	}
	return list, nil
}

// ResolveItem 同 ResolveList，针对待办项（经清单联结判定所有权）。
// ResolveItem is ResolveList for items (ownership decided via the list join).
func (s *Service) ResolveItem(ctx context.Context, userID, itemID int64) (storage.Item, error) {
	item, err := s.store.ItemForUser(ctx, userID, itemID)
	if err != nil {
		return storage.Item{}, resolveErr(err, ErrNotFound)
	}
	return item, nil
}

// --- List registry ---

func (s *Service) Lists(ctx context.Context, userID int64) ([]storage.List, error) {
	return s.store.ListsForUser(ctx, userID)
}

func (s *Service) CreateList(ctx context.Context, userID int64, title string) (storage.List, error) {
	return s.store.CreateList(ctx, userID, strings.TrimSpace(title))
}

func (s *Service) RenameList(ctx context.Context, userID, listID int64, title string) (storage.List, error) {
	list, err := s.ResolveList(ctx, userID, listID)
	if err != nil {
		return storage.List{}, err
	}
	title = strings.TrimSpace(title)
	if err := s.store.RenameList(ctx, list.ID, title); err != nil {
		return storage.List{}, err
	}
	list.Title = title
	return list, nil
}

// DeleteList 级联删除：同一事务里先清掉携带该 list_id 的全部待办项
// （含孤儿），再删除清单本身。
// DeleteList cascades: within one transaction it removes every item carrying
// the list id (orphans included), then the list itself.
func (s *Service) DeleteList(ctx context.Context, userID, listID int64) error {
	return s.store.Tx(ctx, func(tx *storage.Tx) error {
		list, err := tx.ListForUser(ctx, userID, listID)
		if err != nil {
			return resolveErr(err, ErrNotFound)
		}
		if err := tx.DeleteItemsInList(ctx, list.ID); err != nil {
			return err
		}
		return tx.DeleteList(ctx, list.ID)
	})
}

// --- Tree engine ---

// CreateItem 在清单内插入根节点或子节点。只校验目标清单的所有权；
// parentID 不校验存在性或归属，悬挂父指针产生的待办项从任何根都不可达。
// CreateItem inserts a root or child item. Only list ownership is checked;
// parentID is not validated for existence or ownership, and a dangling
// parent pointer yields an item unreachable from any root.
func (s *Service) CreateItem(ctx context.Context, userID, listID int64, content string, parentID *int64) (storage.Item, error) {
	list, err := s.ResolveList(ctx, userID, listID)
	if err != nil {
		return storage.Item{}, err
	}
	return s.store.CreateItem(ctx, list.ID, content, parentID)
}

// UpdateItem 校验后一次性提交部分更新。整个校验-提交序列在单个事务内：
// 环检测逐跳查最新行，且结构只有在全部校验通过后才被修改。
// UpdateItem validates and then commits a partial update atomically. The
// whole validate-then-commit sequence runs in one transaction: the cycle
// guard re-reads a fresh row per hop and the structure is mutated only after
// every check has passed.
func (s *Service) UpdateItem(ctx context.Context, userID, itemID int64, patch storage.ItemPatch) error {
	return s.store.Tx(ctx, func(tx *storage.Tx) error {
		item, err := tx.ItemForUser(ctx, userID, itemID)
		if err != nil {
			return resolveErr(err, ErrNotFound)
		}
		if patch.ListID != nil {
			// 目标清单必须属于调用者；子项与新清单的一致性不做复查。
			// The destination list must belong to the caller; children are not
			// re-checked against the new list.
			if _, err := tx.ListForUser(ctx, userID, *patch.ListID); err != nil {
				return resolveErr(err, ErrTargetListNotFound)
			}
		}
		if patch.Parent.Set && patch.Parent.ID != nil {
			if err := checkReparent(ctx, tx, userID, item.ID, *patch.Parent.ID); err != nil {
				return err
			}
		}
		return tx.UpdateItem(ctx, item.ID, patch)
	})
}

// checkReparent 重挂载守卫：父项必须可解析、不能是自身、沿祖先链向上
// 不得遇到被移动项本身。祖先行走无深度上限，逐跳新查询。
// checkReparent guards a reparent: the candidate parent must resolve, must
// not be the item itself, and walking its ancestor chain upward must never
// meet the moving item. The walk is unbounded and does a fresh lookup per hop.
func checkReparent(ctx context.Context, tx *storage.Tx, userID, itemID, parentID int64) error {
	parent, err := tx.ItemForUser(ctx, userID, parentID)
	if err != nil {
		return resolveErr(err, ErrParentNotFound)
	}
	if parent.ID == itemID {
		return ErrInvalidOperation
	}
	cur := parent
	for cur.ParentID != nil {
		if *cur.ParentID == itemID {
			return ErrCircularReference
		}
		next, err := tx.ItemForUser(ctx, userID, *cur.ParentID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				// 悬挂父指针：链在孤儿边界终止 / Dangling pointer: the chain ends at the orphan boundary.
				return nil
			}
			return err
		}
		cur = next
	}
	return nil
}

// DeleteItem 精确删除一行；子项保持 parent_id 指向已删除项，成为孤儿。
// DeleteItem removes exactly one row; children keep pointing at the deleted
// id and become orphans.
func (s *Service) DeleteItem(ctx context.Context, userID, itemID int64) error {
	item, err := s.ResolveItem(ctx, userID, itemID)
	if err != nil {
		return err
	}
	return s.store.DeleteItem(ctx, item.ID)
}

func resolveErr(err, notFound error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return notFound
	}
	return err
}
