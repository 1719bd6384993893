package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/user/knowledger/internal/model"
	"github.com/user/knowledger/internal/utils"
)

// TokenCookie JWT 所在的 Cookie 名
const TokenCookie = "token"

// Claims JWT 声明
type Claims struct {
	UserID int        `json:"user_id"`
	Email  string     `json:"email"`
	Role   model.Role `json:"role"`
	jwt.RegisteredClaims
}

// RoleSource 按用户 ID 读取当前角色，found 为 false 表示用户已不存在
type RoleSource interface {
	CurrentRole(ctx context.Context, userID int) (role model.Role, found bool, err error)
}

// RequireAuth 必须登录中间件，角色以数据库为准
func RequireAuth(jwtSecret string, roles RoleSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := extractClaims(c, jwtSecret)
		if err != nil {
			utils.Unauthorized(c, "")
			c.Abort()
			return
		}
		found, err := setClaims(c, claims, jwtSecret, roles)
		if err != nil {
			utils.HandleError(c, err)
			c.Abort()
			return
		}
		if !found {
			utils.Unauthorized(c, "用户不存在")
			c.Abort()
			return
		}
		c.Next()
	}
}

// OptionalAuth 可选登录中间件（不强制要求登录）
func OptionalAuth(jwtSecret string, roles RoleSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := extractClaims(c, jwtSecret); err == nil {
			if _, err := setClaims(c, claims, jwtSecret, roles); err != nil {
				utils.HandleError(c, err)
				c.Abort()
				return
			}
		}
		c.Next()
	}
}

// RequireRoles 角色校验，需放在 RequireAuth 之后
func RequireRoles(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := GetRole(c)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		utils.Forbidden(c, "没有权限访问该资源")
		c.Abort()
	}
}

// setClaims 读取当前角色后将用户信息存入上下文，并在需要时滑动续期
func setClaims(c *gin.Context, claims *Claims, jwtSecret string, roles RoleSource) (bool, error) {
	role, found, err := roles.CurrentRole(c.Request.Context(), claims.UserID)
	if err != nil || !found {
		return false, err
	}
	claims.Role = role

	c.Set("user_id", claims.UserID)
	c.Set("email", claims.Email)
	c.Set("role", role)

	// 滑动续期逻辑：如果 Token 过期时间消耗超过一半，则刷新
	if shouldRefresh(claims) {
		expiry := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
		newToken, err := GenerateToken(claims.UserID, claims.Email, role, jwtSecret, expiry)
		if err == nil {
			SetTokenCookie(c, newToken, expiry)
		}
	}
	return true, nil
}

// extractClaims 从 Cookie 或 Header 中提取 JWT Claims
func extractClaims(c *gin.Context, jwtSecret string) (*Claims, error) {
	var tokenString string

	// 优先从 Cookie 获取
	if cookie, err := c.Cookie(TokenCookie); err == nil && cookie != "" {
		tokenString = cookie
	} else {
		// 从 Authorization Header 获取
		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}

	if tokenString == "" {
		return nil, jwt.ErrTokenMalformed
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(jwtSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return claims, nil
}

// GetUserID 从上下文获取用户 ID（未登录返回 0）
func GetUserID(c *gin.Context) int {
	if userID, exists := c.Get("user_id"); exists {
		return userID.(int)
	}
	return 0
}

// GetRole 从上下文获取角色（未登录返回空）
func GetRole(c *gin.Context) model.Role {
	if role, exists := c.Get("role"); exists {
		return role.(model.Role)
	}
	return ""
}

// GenerateToken 生成 JWT Token
func GenerateToken(userID int, email string, role model.Role, jwtSecret string, expiry time.Duration) (string, error) {
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// SetTokenCookie 写入 JWT Cookie
func SetTokenCookie(c *gin.Context, token string, expiry time.Duration) {
	c.SetCookie(TokenCookie, token, int(expiry.Seconds()), "/", "", false, true)
}

// ClearTokenCookie 清除 JWT Cookie
func ClearTokenCookie(c *gin.Context) {
	c.SetCookie(TokenCookie, "", -1, "/", "", false, true)
}

// shouldRefresh 判断是否需要刷新 Token
// 逻辑：如果已经消耗了总有效期的 50% 以上，则建议刷新
func shouldRefresh(claims *Claims) bool {
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return false
	}

	totalDuration := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	elapsedDuration := time.Since(claims.IssuedAt.Time)

	return elapsedDuration > totalDuration/2
}
