package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"gigboard_backend/internal/auth"
	"gigboard_backend/internal/logger"
	"gigboard_backend/internal/models"
	"gigboard_backend/pkg/apperrors"
	"gigboard_backend/pkg/contextkeys"
)

// TokenParser - то, что нужно AuthMiddleware от auth.TokenManager
type TokenParser interface {
	ParseToken(tokenStr string) (*auth.Claims, error)
}

// AuthMiddleware - middleware проверки JWT
func AuthMiddleware(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			abortWith(c, apperrors.NewUnauthorizedError("Authorization header missing or invalid"))
			return
		}
		if authenticate(c, tokens, tokenStr) {
			c.Next()
		}
	}
}

// OptionalAuthMiddleware пропускает анонимов (публичные файлы), но
// предъявленный токен обязан быть валидным.
func OptionalAuthMiddleware(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" || authenticate(c, tokens, tokenStr) {
			c.Next()
		}
	}
}

func authenticate(c *gin.Context, tokens TokenParser, tokenStr string) bool {
	claims, err := tokens.ParseToken(tokenStr)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			abortWith(c, apperrors.New(apperrors.CodeTokenExpired, "auth", "Token expired", 401))
			return false
		}
		abortWith(c, apperrors.New(apperrors.CodeInvalidToken, "auth", "Invalid token", 401))
		return false
	}

	c.Set(contextkeys.UserIDKey, claims.UserID)
	c.Set(contextkeys.RoleKey, claims.Role)
	c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), claims.UserID))
	return true
}

// bearerToken берёт токен из заголовка; для WebSocket браузер не умеет
// заголовки, поэтому допускается ?token=
func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	if c.IsWebsocket() {
		return c.Query("token")
	}
	return ""
}

// RequireRoles - middleware для проверки нескольких возможных ролей
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	roleSet := make(map[models.UserRole]bool)
	for _, r := range roles {
		roleSet[r] = true
	}

	return func(c *gin.Context) {
		role, ok := GetRole(c)
		if !ok || !roleSet[role] {
			abortWith(c, apperrors.NewForbiddenError("Access denied: insufficient role"))
			return
		}
		c.Next()
	}
}

// RequirePermission пропускает роли, у которых есть разрешение (auth.Permissions)
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := GetRole(c)
		if !ok || !auth.HasPermission(role, permission) {
			abortWith(c, apperrors.ErrInsufficientPermissions)
			return
		}
		c.Next()
	}
}

// GetUserID извлекает ID пользователя из контекста
func GetUserID(c *gin.Context) string {
	return c.GetString(contextkeys.UserIDKey)
}

func GetRole(c *gin.Context) (models.UserRole, bool) {
	roleVal, exists := c.Get(contextkeys.RoleKey)
	if !exists {
		return "", false
	}
	switch r := roleVal.(type) {
	case models.UserRole:
		return r, true
	case string:
		return models.UserRole(r), true
	}
	return "", false
}

func abortWith(c *gin.Context, err *apperrors.AppError) {
	c.AbortWithStatusJSON(err.HTTPCode, apperrors.ErrorResponse{Error: err})
}
