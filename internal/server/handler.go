package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"messagely/internal/auth"
	"messagely/internal/metrics"
	"messagely/internal/service"
	"messagely/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Handler 聚合所有 HTTP handler，依赖注入 service 层与通知 hub。
type Handler struct {
	userSvc *service.UserService
	msgSvc  *service.MessageService
	hub     *ws.Hub
}

func NewHandler(userSvc *service.UserService, msgSvc *service.MessageService, hub *ws.Hub) *Handler {
	return &Handler{userSvc: userSvc, msgSvc: msgSvc, hub: hub}
}

type registerRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type createMessageRequest struct {
	ToUsername string `json:"to_username"`
	Body       string `json:"body"`
}

// writeError 把业务错误映射为固定的 HTTP 状态码。
func writeError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrUsernameTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "username taken"})
	default:
		log.Error().Err(err).Msg(msg)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

// Register 注册新账号，成功即视为登录并返回令牌。
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if req.Username == "" || req.Password == "" || req.FirstName == "" || req.LastName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if len(req.Username) < 2 || len(req.Username) > 64 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid username"})
		return
	}
	if len(req.Password) > 72 { // bcrypt 明文上限 72 字节
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid password"})
		return
	}
	profile, token, err := h.userSvc.Register(service.RegisterInput{
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		writeError(c, err, "failed to create user")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"user": gin.H{
			"username":   profile.Username,
			"first_name": profile.FirstName,
			"last_name":  profile.LastName,
			"phone":      profile.Phone,
		},
		"token": token,
	})
}

// Login 校验凭证并返回令牌，失败信息不区分用户不存在与密码错误。
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	token, err := h.userSvc.Login(req.Username, req.Password)
	if err != nil {
		writeError(c, err, "login failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// ListUsers 按用户名升序返回全部账号的基础信息。
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.userSvc.List()
	if err != nil {
		writeError(c, err, "failed to list users")
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// GetUser 返回单个账号的完整档案，仅限本人访问。
func (h *Handler) GetUser(c *gin.Context) {
	profile, err := h.userSvc.Get(c.Param("username"))
	if err != nil {
		writeError(c, err, "failed to get user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profile})
}

// MessagesToUser 返回发给该账号的消息，仅限本人访问。
func (h *Handler) MessagesToUser(c *gin.Context) {
	msgs, err := h.msgSvc.MessagesTo(c.Param("username"))
	if err != nil {
		writeError(c, err, "failed to list messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// MessagesFromUser 返回该账号发出的消息，仅限本人访问。
func (h *Handler) MessagesFromUser(c *gin.Context) {
	msgs, err := h.msgSvc.MessagesFrom(c.Param("username"))
	if err != nil {
		writeError(c, err, "failed to list messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// CreateMessage 以认证身份为发件人创建消息，并异步推送给在线的收件人。
func (h *Handler) CreateMessage(c *gin.Context) {
	var req createMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	from := auth.CurrentUsername(c)
	msg, err := h.msgSvc.Create(from, req.ToUsername, req.Body)
	if err != nil {
		writeError(c, err, "failed to create message")
		return
	}
	metrics.MessagesSentTotal.Inc()
	if h.hub != nil {
		evt := ws.MessageEvent{
			Type:         "message",
			ID:           msg.ID,
			FromUsername: msg.FromUsername,
			ToUsername:   msg.ToUsername,
			Body:         msg.Body,
			SentAt:       msg.SentAt,
		}
		if b, err := json.Marshal(evt); err == nil {
			h.hub.Notify(msg.ToUsername, b)
		}
	}
	c.JSON(http.StatusCreated, gin.H{"message": gin.H{
		"id":            msg.ID,
		"from_username": msg.FromUsername,
		"to_username":   msg.ToUsername,
		"body":          msg.Body,
		"sent_at":       msg.SentAt,
	}})
}

// GetMessage 返回单条消息，仅收发双方可见。
func (h *Handler) GetMessage(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}
	detail, err := h.msgSvc.Get(uint(id))
	if err != nil {
		writeError(c, err, "failed to get message")
		return
	}
	current := auth.CurrentUsername(c)
	if current != detail.FromUser.Username && current != detail.ToUser.Username {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": detail})
}

// MarkMessageRead 把消息标记为已读，仅收件人可操作，重复调用为幂等空操作。
func (h *Handler) MarkMessageRead(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}
	msg, err := h.msgSvc.MarkRead(uint(id), auth.CurrentUsername(c))
	if err != nil {
		writeError(c, err, "failed to mark message read")
		return
	}
	metrics.MessagesReadTotal.Inc()
	c.JSON(http.StatusOK, gin.H{"message": gin.H{"id": msg.ID, "read_at": msg.ReadAt}})
}
