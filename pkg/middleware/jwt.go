package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fitcoach/coachapi/pkg/auth"
)

// identityKey はGinコンテキストにIdentityを格納するキー。
const identityKey = "identity"

// JWTAuth はBearerトークンを検証するGinミドルウェアを返す。
// 検証に成功した場合、Ginコンテキストとリクエストコンテキストの両方にIdentityを設定する。
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header is required",
			})
			return
		}

		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header must use the Bearer scheme",
			})
			return
		}

		id, err := auth.ParseToken(secret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			return
		}

		SetIdentity(c, id)
		c.Next()
	}
}

// RequireRole は指定ロール以外のリクエストを403で拒否するミドルウェアを返す。
// JWTAuthの後に適用する。
func RequireRole(role auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := GetIdentity(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			return
		}
		if id.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": string(role) + " authorization required",
			})
			return
		}
		c.Next()
	}
}

// SetIdentity はIdentityをGinコンテキストとリクエストコンテキストに設定する。
func SetIdentity(c *gin.Context, id auth.Identity) {
	c.Set(identityKey, id)
	c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
}

// GetIdentity はGinコンテキストからIdentityを取得する。
// JWTAuthミドルウェアが事前に適用されている必要がある。
func GetIdentity(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok
}
