package todo

import (
	"context"

	"todod/internal/storage"
)

// ItemNode 递归序列化结果；children 顺序为插入顺序。
// ItemNode is the recursive serialization; children follow insertion order.
type ItemNode struct {
	ID         int64      `json:"id"`
	Content    string     `json:"content"`
	Completed  bool       `json:"completed"`
	IsExpanded bool       `json:"is_expanded"`
	Children   []ItemNode `json:"children"`
}

// ItemTree 返回清单的根节点森林，子项递归内联。一次按插入顺序取出用户
// 全部待办项再内存装配：子项按 parent_id 挂载且跨清单可见（跨清单移动后
// 子项可能属于另一张清单），孤儿从任何根都不可达，自然被省略。
// 终止性依赖 UpdateItem 维护的无环不变量。
// ItemTree returns the list's root forest with children inlined recursively.
// It loads all of the user's items in insertion order once and assembles in
// memory: children attach purely by parent_id and are visible across lists
// (after a cross-list move a child may belong to another list), and orphans
// are unreachable from any root, so they drop out naturally. Termination
// relies on the acyclic invariant maintained by UpdateItem.
func (s *Service) ItemTree(ctx context.Context, userID, listID int64) ([]ItemNode, error) {
	list, err := s.ResolveList(ctx, userID, listID)
	if err != nil {
		return nil, err
	}

	items, err := s.store.ItemsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	children := make(map[int64][]storage.Item)
	roots := make([]storage.Item, 0, len(items))
	for _, it := range items {
		if it.ParentID != nil {
			children[*it.ParentID] = append(children[*it.ParentID], it)
			continue
		}
		if it.ListID == list.ID {
			roots = append(roots, it)
		}
	}

	var build func(it storage.Item) ItemNode
	build = func(it storage.Item) ItemNode {
		node := ItemNode{
			ID:         it.ID,
			Content:    it.Content,
			Completed:  it.Completed,
			IsExpanded: it.IsExpanded,
			Children:   []ItemNode{},
		}
		for _, child := range children[it.ID] {
			node.Children = append(node.Children, build(child))
		}
		return node
	}

	nodes := make([]ItemNode, 0, len(roots))
	for _, root := range roots {
		nodes = append(nodes, build(root))
	}
	return nodes, nil
}
