package contextkeys

// Используем кастомный тип, чтобы избежать коллизий
type contextKey string

// DBContextKey - ключ, по которому хранится *gorm.DB в gin.Context
const DBContextKey = contextKey("db")

// Ключи gin.Context, которые выставляет AuthMiddleware
const (
	UserIDKey = "userID"
	RoleKey   = "role"
)
