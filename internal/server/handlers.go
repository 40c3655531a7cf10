package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"todod/internal/storage"
)

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type titleRequest struct {
	Title string `json:"title" binding:"required"`
}

type createItemRequest struct {
	Content  string `json:"content" binding:"required"`
	ParentID *int64 `json:"parent_id"`
}

// updateItemRequest 部分更新载荷。parent_id 用 RawMessage 保留
// “缺席 / 显式 null / 数值”三种形态。
// updateItemRequest is the partial-update payload. parent_id stays a
// RawMessage so absent, explicit null and a value remain three distinct
// shapes.
type updateItemRequest struct {
	Content    *string         `json:"content"`
	Completed  *bool           `json:"completed"`
	IsExpanded *bool           `json:"is_expanded"`
	ListID     *int64          `json:"list_id"`
	ParentID   json.RawMessage `json:"parent_id"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := s.identity.Register(c.Request.Context(), req.Username, req.Password); err != nil {
		s.respondError(c, err, "")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "User created successfully"})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, err := s.identity.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.respondError(c, err, "")
		return
	}
	maxAge := int(s.identity.SessionTTL().Seconds())
	c.SetCookie(s.cookieName, sess.Token, maxAge, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged in successfully"})
}

func (s *Server) handleLogout(c *gin.Context) {
	token, _ := c.Cookie(s.cookieName)
	if err := s.identity.Logout(c.Request.Context(), token); err != nil {
		s.respondError(c, err, "")
		return
	}
	c.SetCookie(s.cookieName, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (s *Server) handleLists(c *gin.Context) {
	lists, err := s.todos.Lists(c.Request.Context(), currentUserID(c))
	if err != nil {
		s.respondError(c, err, "")
		return
	}
	if lists == nil {
		lists = []storage.List{}
	}
	c.JSON(http.StatusOK, lists)
}

func (s *Server) handleCreateList(c *gin.Context) {
	var req titleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	list, err := s.todos.CreateList(c.Request.Context(), currentUserID(c), req.Title)
	if err != nil {
		s.respondError(c, err, "")
		return
	}
	c.JSON(http.StatusCreated, list)
}

func (s *Server) handleRenameList(c *gin.Context) {
	listID, ok := pathID(c, "listID", "Invalid list ID")
	if !ok {
		return
	}
	var req titleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	list, err := s.todos.RenameList(c.Request.Context(), currentUserID(c), listID, req.Title)
	if err != nil {
		s.respondError(c, err, "List not found")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleDeleteList(c *gin.Context) {
	listID, ok := pathID(c, "listID", "Invalid list ID")
	if !ok {
		return
	}
	if err := s.todos.DeleteList(c.Request.Context(), currentUserID(c), listID); err != nil {
		s.respondError(c, err, "List not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "List deleted successfully"})
}

func (s *Server) handleItemTree(c *gin.Context) {
	listID, ok := pathID(c, "listID", "Invalid list ID")
	if !ok {
		return
	}
	nodes, err := s.todos.ItemTree(c.Request.Context(), currentUserID(c), listID)
	if err != nil {
		s.respondError(c, err, "List not found")
		return
	}
	c.JSON(http.StatusOK, nodes)
}

func (s *Server) handleCreateItem(c *gin.Context) {
	listID, ok := pathID(c, "listID", "Invalid list ID")
	if !ok {
		return
	}
	var req createItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	item, err := s.todos.CreateItem(c.Request.Context(), currentUserID(c), listID, req.Content, req.ParentID)
	if err != nil {
		s.respondError(c, err, "List not found")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":          item.ID,
		"content":     item.Content,
		"completed":   item.Completed,
		"is_expanded": item.IsExpanded,
	})
}

func (s *Server) handleUpdateItem(c *gin.Context) {
	itemID, ok := pathID(c, "itemID", "Invalid item ID")
	if !ok {
		return
	}
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	patch := storage.ItemPatch{
		Content:    req.Content,
		Completed:  req.Completed,
		IsExpanded: req.IsExpanded,
		ListID:     req.ListID,
	}
	if req.ParentID != nil {
		patch.Parent.Set = true
		if raw := bytes.TrimSpace(req.ParentID); string(raw) != "null" {
			var parentID int64
			if err := json.Unmarshal(raw, &parentID); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid parent ID"})
				return
			}
			patch.Parent.ID = &parentID
		}
	}

	if err := s.todos.UpdateItem(c.Request.Context(), currentUserID(c), itemID, patch); err != nil {
		s.respondError(c, err, "Item not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item updated successfully"})
}

func (s *Server) handleDeleteItem(c *gin.Context) {
	itemID, ok := pathID(c, "itemID", "Invalid item ID")
	if !ok {
		return
	}
	if err := s.todos.DeleteItem(c.Request.Context(), currentUserID(c), itemID); err != nil {
		s.respondError(c, err, "Item not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item deleted successfully"})
}

func pathID(c *gin.Context, name, badMsg string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": badMsg})
		return 0, false
	}
	return id, true
}
