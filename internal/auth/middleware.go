package auth

import (
	"net/http"
	"strings"

	"messagely/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Middleware 完成请求级认证：校验 Bearer 令牌签名，再把令牌里的用户名
// 解析为现存账号。任一步失败即终止请求，账号已不存在的令牌同样拒绝。
func Middleware(issuer *TokenIssuer, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])
		username, err := issuer.Verify(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		var user models.User
		if err := db.Where("username = ?", username).First(&user).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}
		c.Set("username", user.Username)
		c.Next()
	}
}

// RequireSelf 要求路径参数 :username 与已认证身份一致，不一致返回 403。
func RequireSelf() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Param("username") != CurrentUsername(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// CurrentUsername 返回认证中间件写入的当前用户名，未认证时为空串。
func CurrentUsername(c *gin.Context) string {
	if v, ok := c.Get("username"); ok {
		if name, ok2 := v.(string); ok2 {
			return name
		}
	}
	return ""
}
