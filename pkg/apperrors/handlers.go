package apperrors

import (
	"github.com/gin-gonic/gin"

	"gigboard_backend/internal/logger"
)

// ErrorResponse - стандартный ответ об ошибке
type ErrorResponse struct {
	Error *AppError `json:"error"`
}

// GinErrorHandler - обработчик ошибок для Gin
type GinErrorHandler struct {
	Debug bool
}

// debugErrors включается в development (см. app.Run)
var debugErrors = false

// SetDebug переключает вывод деталей внутренних ошибок.
func SetDebug(debug bool) {
	debugErrors = debug
}

// HandleGinError - основная логика обработки ошибок для Gin
func (h *GinErrorHandler) HandleGinError(c *gin.Context, err error) {
	appErr, ok := AsAppError(err)
	if !ok {
		appErr = InternalError(err)
		if h.Debug {
			appErr = appErr.WithDetails(err.Error())
		}
	}

	if appErr.HTTPCode >= 500 {
		logger.CtxWithError(c.Request.Context(), "Server error", err,
			"path", c.FullPath(),
			"code", appErr.Code,
		)
	}

	c.JSON(appErr.HTTPCode, ErrorResponse{Error: appErr})
}

// HandleError - быстрая функция-помощник для Gin
func HandleError(c *gin.Context, err error) {
	handler := &GinErrorHandler{Debug: debugErrors}
	handler.HandleGinError(c, err)
}

// AsAppError - пытается преобразовать error в *AppError
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
