package storage

// User 注册用户；密码只保存单向哈希
// User is a registered account; the password is stored only as a one-way hash
type User struct {
	ID           int64  `db:"id" json:"id"`
	Username     string `db:"username" json:"username"`
	PasswordHash string `db:"password_hash" json:"-"`
	CreatedAt    string `db:"created_at" json:"created_at"`
}

// List 单用户所有的命名清单
// List is a named todo list with exactly one owner
type List struct {
	ID        int64  `db:"id" json:"id"`
	Title     string `db:"title" json:"title"`
	UserID    int64  `db:"user_id" json:"-"`
	CreatedAt string `db:"created_at" json:"-"`
}

// Item 清单内的待办项；parent_id 为空表示根节点
// Item is a todo entry inside a list; a nil parent_id marks a root
type Item struct {
	ID         int64  `db:"id" json:"id"`
	Content    string `db:"content" json:"content"`
	Completed  bool   `db:"completed" json:"completed"`
	IsExpanded bool   `db:"is_expanded" json:"is_expanded"`
	ListID     int64  `db:"list_id" json:"list_id"`
	ParentID   *int64 `db:"parent_id" json:"parent_id"`
	CreatedAt  string `db:"created_at" json:"-"`
}

// Session 服务端持有的会话；客户端只拿到不透明 token
// Session is a server-side session; clients hold only the opaque token
type Session struct {
	Token     string `db:"token"`
	UserID    int64  `db:"user_id"`
	CreatedAt string `db:"created_at"`
	ExpiresAt string `db:"expires_at"`
}

// ItemPatch 部分更新描述：nil 指针表示“字段缺席”，与显式 null 区分。
// ItemPatch describes a partial update: a nil pointer means "field absent",
// which is distinct from an explicit null.
type ItemPatch struct {
	Content    *string
	Completed  *bool
	IsExpanded *bool
	ListID     *int64
	Parent     ParentPatch
}

// ParentPatch 两级可选：Set 表示请求里出现了 parent_id；ID 为 nil 表示显式置空（脱离为根节点）。
// ParentPatch is a two-level option: Set means parent_id appeared in the
// request; a nil ID means an explicit null (detach to root).
type ParentPatch struct {
	Set bool
	ID  *int64
}
