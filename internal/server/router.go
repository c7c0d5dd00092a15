package server

import (
	"net/http"

	"messagely/internal/auth"
	"messagely/internal/config"
	"messagely/internal/metrics"
	"messagely/internal/mw"
	"messagely/internal/service"
	"messagely/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// SetupRouter 统一初始化 Gin 中间件、REST API 以及通知 WebSocket 端点。
func SetupRouter(cfg config.Config, db *gorm.DB, hub *ws.Hub) *gin.Engine {
	hasher := auth.NewHasher(cfg.BcryptCost)
	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTLMinutes)
	userSvc := service.NewUserService(db, hasher, issuer)
	msgSvc := service.NewMessageService(db)
	h := NewHandler(userSvc, msgSvc, hub)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.GinMiddleware())
	r.Use(mw.RequestID())
	r.Use(mw.CORS(cfg.Env))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")

	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)

	// 需要 Bearer Token 的业务接口。
	authed := api.Group("")
	authed.Use(auth.Middleware(issuer, db))

	authed.GET("/users", h.ListUsers)

	// 档案与收发件箱仅限本人。
	self := authed.Group("/users/:username")
	self.Use(auth.RequireSelf())
	self.GET("", h.GetUser)
	self.GET("/to", h.MessagesToUser)
	self.GET("/from", h.MessagesFromUser)

	authed.POST("/messages", h.CreateMessage)
	authed.GET("/messages/:id", h.GetMessage)
	authed.POST("/messages/:id/read", h.MarkMessageRead)

	r.GET("/ws", ws.Serve(hub, db, issuer))

	return r
}
