package handlers

import "github.com/gin-gonic/gin"

// AppHandlers содержит все хэндлеры приложения.
type AppHandlers struct {
	MediaHandler       *MediaHandler
	FileHandler        *FileHandler
	ScreeningHandler   *ScreeningHandler
	ApplicationHandler *ApplicationHandler
	WSHandler          *WSHandler
}

// RouteMiddleware - middleware, которые хэндлеры навешивают на свои группы
type RouteMiddleware struct {
	Auth         gin.HandlerFunc
	OptionalAuth gin.HandlerFunc
	// UploadLimit - ограничение частоты загрузок; nil - без ограничения
	UploadLimit gin.HandlerFunc
}

func (m *RouteMiddleware) uploadLimit() gin.HandlerFunc {
	if m.UploadLimit == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return m.UploadLimit
}
