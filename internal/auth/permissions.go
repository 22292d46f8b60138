package auth

import "gigboard_backend/internal/models"

// Разрешения, проверяемые middleware.RequirePermission
const (
	PermMediaWrite         = "media:write"
	PermMediaRead          = "media:read"
	PermApplicationsRead   = "applications:read"
	PermApplicationsReview = "applications:review"
	PermScreeningRun       = "screening:run"
	PermSystemAdmin        = "system:admin"
)

// Permissions список разрешений по ролям
var Permissions = map[models.UserRole][]string{
	models.UserRoleAdmin: {
		PermMediaWrite,
		PermMediaRead,
		PermApplicationsRead,
		PermApplicationsReview,
		PermScreeningRun,
		PermSystemAdmin,
	},
	// площадки и организаторы публикуют вакансии и разбирают заявки
	models.UserRoleVenue: {
		PermMediaWrite,
		PermMediaRead,
		PermApplicationsRead,
		PermApplicationsReview,
		PermScreeningRun,
	},
	models.UserRoleArtist: {
		PermMediaWrite,
		PermMediaRead,
	},
}

// HasPermission проверяет есть ли у роли указанное разрешение
func HasPermission(role models.UserRole, permission string) bool {
	for _, p := range Permissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// IsAdmin проверяет является ли пользователь администратором
func IsAdmin(claims *Claims) bool {
	return claims != nil && claims.Role == models.UserRoleAdmin
}
