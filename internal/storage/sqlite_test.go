package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestCreateUserDuplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, "alice", "hash1")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.ID == 0 || user.Username != "alice" {
		t.Fatalf("unexpected user: %+v", user)
	}

	_, err = store.CreateUser(ctx, "alice", "hash2")
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate username err=%v, want ErrDuplicate", err)
	}
}

func TestUserByUsernameNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.UserByUsername(context.Background(), "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, "alice", "hash")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	sess := Session{Token: "tok_1", UserID: user.ID, CreatedAt: "2026-01-01T00:00:00Z", ExpiresAt: "2027-01-01T00:00:00Z"}
	if err := store.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	loaded, err := store.SessionByToken(ctx, "tok_1")
	if err != nil {
		t.Fatalf("SessionByToken: %v", err)
	}
	if loaded.UserID != user.ID || loaded.ExpiresAt != sess.ExpiresAt {
		t.Fatalf("unexpected session: %+v", loaded)
	}

	if err := store.DeleteSession(ctx, "tok_1"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := store.SessionByToken(ctx, "tok_1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("after delete err=%v, want ErrNotFound", err)
	}

	// 删除不存在的 token 也应成功 / deleting a missing token still succeeds
	if err := store.DeleteSession(ctx, "tok_1"); err != nil {
		t.Fatalf("DeleteSession missing: %v", err)
	}
}

func TestListOwnershipScope(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice, _ := store.CreateUser(ctx, "alice", "h")
	bob, _ := store.CreateUser(ctx, "bob", "h")

	list, err := store.CreateList(ctx, alice.ID, "groceries")
	if err != nil {
		t.Fatalf("CreateList: %v", err)
	}

	if _, err := store.ListForUser(ctx, alice.ID, list.ID); err != nil {
		t.Fatalf("owner lookup: %v", err)
	}
	if _, err := store.ListForUser(ctx, bob.ID, list.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign lookup err=%v, want ErrNotFound", err)
	}
	if _, err := store.ListForUser(ctx, alice.ID, list.ID+100); !errors.Is(err, ErrNotFound) {
		t.Fatalf("absent lookup err=%v, want ErrNotFound", err)
	}
}

func TestItemPatchApplication(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice, _ := store.CreateUser(ctx, "alice", "h")
	list, _ := store.CreateList(ctx, alice.ID, "work")

	item, err := store.CreateItem(ctx, list.ID, "write report", nil)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.Completed || !item.IsExpanded || item.ParentID != nil {
		t.Fatalf("unexpected defaults: %+v", item)
	}

	content := "write the report"
	completed := true
	if err := store.UpdateItem(ctx, item.ID, ItemPatch{Content: &content, Completed: &completed}); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	loaded, err := store.ItemForUser(ctx, alice.ID, item.ID)
	if err != nil {
		t.Fatalf("ItemForUser: %v", err)
	}
	if loaded.Content != "write the report" || !loaded.Completed {
		t.Fatalf("patch not applied: %+v", loaded)
	}
	if !loaded.IsExpanded {
		t.Fatalf("absent field mutated: %+v", loaded)
	}

	// 显式 null：脱离为根节点 / explicit null detaches to root
	child, _ := store.CreateItem(ctx, list.ID, "child", &item.ID)
	if err := store.UpdateItem(ctx, child.ID, ItemPatch{Parent: ParentPatch{Set: true}}); err != nil {
		t.Fatalf("UpdateItem detach: %v", err)
	}
	loaded, _ = store.ItemForUser(ctx, alice.ID, child.ID)
	if loaded.ParentID != nil {
		t.Fatalf("detach failed: %+v", loaded)
	}

	// 空 patch 为空操作 / an all-absent patch is a no-op
	if err := store.UpdateItem(ctx, item.ID, ItemPatch{}); err != nil {
		t.Fatalf("empty patch: %v", err)
	}
}

func TestItemsForUserInsertionOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice, _ := store.CreateUser(ctx, "alice", "h")
	list, _ := store.CreateList(ctx, alice.ID, "work")

	for _, content := range []string{"first", "second", "third"} {
		if _, err := store.CreateItem(ctx, list.ID, content, nil); err != nil {
			t.Fatalf("CreateItem %q: %v", content, err)
		}
	}

	items, err := store.ItemsForUser(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ItemsForUser: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("count=%d, want 3", len(items))
	}
	for i, want := range []string{"first", "second", "third"} {
		if items[i].Content != want {
			t.Fatalf("items[%d]=%q, want %q", i, items[i].Content, want)
		}
	}
}

func TestTxRollbackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice, _ := store.CreateUser(ctx, "alice", "h")
	list, _ := store.CreateList(ctx, alice.ID, "work")
	item, _ := store.CreateItem(ctx, list.ID, "keep me", nil)

	boom := errors.New("boom")
	content := "mutated"
	err := store.Tx(ctx, func(tx *Tx) error {
		if err := tx.UpdateItem(ctx, item.ID, ItemPatch{Content: &content}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Tx err=%v, want boom", err)
	}

	loaded, _ := store.ItemForUser(ctx, alice.ID, item.ID)
	if loaded.Content != "keep me" {
		t.Fatalf("rollback failed, content=%q", loaded.Content)
	}
}
