// Package server 提供 HTTP/JSON 外层：路由、会话中间件和错误映射。
// Package server provides the HTTP/JSON surface: routing, the session
// middleware and error mapping.
package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"todod/internal/config"
	"todod/internal/identity"
	"todod/internal/todo"
)

type Server struct {
	engine     *gin.Engine
	logger     *log.Logger
	identity   *identity.Service
	todos      *todo.Service
	cookieName string
}

func New(cfg config.ServerConfig, logger *log.Logger, ids *identity.Service, todos *todo.Service) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		engine:     gin.New(),
		logger:     logger,
		identity:   ids,
		todos:      todos,
		cookieName: cfg.CookieName,
	}
	s.engine.Use(s.requestLog(), gin.Recovery())
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.engine.Group("/api")
	api.POST("/register", s.handleRegister)
	api.POST("/login", s.handleLogin)

	auth := api.Group("", s.requireSession())
	auth.POST("/logout", s.handleLogout)
	auth.GET("/lists", s.handleLists)
	auth.POST("/lists", s.handleCreateList)
	auth.PUT("/lists/:listID", s.handleRenameList)
	auth.DELETE("/lists/:listID", s.handleDeleteList)
	auth.GET("/lists/:listID/items", s.handleItemTree)
	auth.POST("/lists/:listID/items", s.handleCreateItem)
	auth.PUT("/items/:itemID", s.handleUpdateItem)
	auth.DELETE("/items/:itemID", s.handleDeleteItem)
}

// Handler 暴露底层 handler，测试用 / Handler exposes the engine for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).Round(time.Microsecond),
		}
		if userID, ok := c.Get(ctxUserID); ok {
			fields = append(fields, "user", userID)
		}
		s.logger.Info("request", fields...)
	}
}

// ctxUserID gin context 里当前用户的键；身份显式随请求传递，不用全局状态。
// ctxUserID keys the current user in the gin context; identity travels with
// the request explicitly instead of through globals.
const ctxUserID = "user_id"

// requireSession 解析会话 cookie 并确立调用者身份；失败统一 401。
// requireSession resolves the session cookie and establishes the caller;
// every failure is a uniform 401.
func (s *Server) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(s.cookieName)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		userID, err := s.identity.Authenticate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, identity.ErrUnauthenticated) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
				return
			}
			s.logger.Error("authenticate session", "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.Set(ctxUserID, userID)
		c.Next()
	}
}

func currentUserID(c *gin.Context) int64 {
	return c.GetInt64(ctxUserID)
}

// respondError 把领域错误映射为状态码；notFoundMsg 区分清单/待办项的 404 文案。
// respondError maps domain errors to status codes; notFoundMsg selects the
// 404 wording for the endpoint at hand.
func (s *Server) respondError(c *gin.Context, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, identity.ErrDuplicateUsername):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username already exists"})
	case errors.Is(err, identity.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
	case errors.Is(err, identity.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	case errors.Is(err, todo.ErrTargetListNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Target list not found"})
	case errors.Is(err, todo.ErrParentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Parent item not found"})
	case errors.Is(err, todo.ErrInvalidOperation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot make item its own parent"})
	case errors.Is(err, todo.ErrCircularReference):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot create circular reference"})
	case errors.Is(err, todo.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundMsg})
	default:
		s.logger.Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
