package todo

import "errors"

// 失败分类；HTTP 层用 errors.Is 映射到状态码。
// Failure taxonomy; the HTTP layer maps these to status codes with errors.Is.
var (
	// ErrNotFound 清单或待办项缺席/越权的统一信号，不区分两者以免向他人泄露存在性。
	// ErrNotFound is the single signal for an absent OR foreign list/item;
	// collapsing the two leaks nothing about other users' data.
	ErrNotFound = errors.New("not found")

	ErrTargetListNotFound = errors.New("target list not found")
	ErrParentNotFound     = errors.New("parent item not found")

	// ErrInvalidOperation 拒绝把待办项设为自己的父项。
	// ErrInvalidOperation rejects making an item its own parent.
	ErrInvalidOperation = errors.New("cannot make item its own parent")

	// ErrCircularReference 拒绝会成环的重挂载。
	// ErrCircularReference rejects a reparent that would create a cycle.
	ErrCircularReference = errors.New("cannot create circular reference")
)
