package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gigboard_backend/internal/auth"
	"gigboard_backend/internal/logger"
	"gigboard_backend/internal/middleware"
	"gigboard_backend/internal/services"
	"gigboard_backend/internal/services/dto"
	"gigboard_backend/internal/types"
	"gigboard_backend/pkg/apperrors"
)

// ============================================
// MEDIA HANDLER
// ============================================

type MediaHandler struct {
	*BaseHandler
	mediaService       services.MediaService
	maxMultipartMemory int64
	// maxRequestBytes - предел тела запроса загрузки; 0 - без предела
	maxRequestBytes int64
}

func NewMediaHandler(base *BaseHandler, mediaService services.MediaService, maxMultipartMemory, maxRequestBytes int64) *MediaHandler {
	if maxMultipartMemory <= 0 {
		maxMultipartMemory = 32 << 20
	}
	return &MediaHandler{
		BaseHandler:        base,
		mediaService:       mediaService,
		maxMultipartMemory: maxMultipartMemory,
		maxRequestBytes:    maxRequestBytes,
	}
}

var errUploadTooLarge = apperrors.New(apperrors.CodeFileTooLarge, "media", "Upload request is too large", http.StatusRequestEntityTooLarge)

// ============================================
// ROUTES
// ============================================

func (h *MediaHandler) RegisterRoutes(r *gin.RouterGroup, mw *RouteMiddleware) {
	mediaGroup := r.Group("/media")
	mediaGroup.Use(mw.Auth)
	{
		// Загрузка
		mediaGroup.POST("", middleware.RequirePermission(auth.PermMediaWrite), mw.uploadLimit(), h.UploadMedia)
		mediaGroup.POST("/embed", middleware.RequirePermission(auth.PermMediaWrite), h.CreateEmbedded)
		mediaGroup.GET("/batches/:batchId/progress", h.GetBatchProgress)

		// Получение информации
		mediaGroup.GET("/user/me", h.GetMyMedia)
		mediaGroup.GET("/storage/usage", h.GetStorageUsage)
		mediaGroup.GET("/:mediaId", middleware.RequirePermission(auth.PermMediaRead), h.GetMedia)

		// Удаление
		mediaGroup.DELETE("/:mediaId", middleware.RequirePermission(auth.PermMediaWrite), h.DeleteMedia)
	}
}

// ============================================
// HANDLERS
// ============================================

// UploadMedia - пакетная загрузка файлов из поля "files".
// 201 - всё загружено, 207 - часть файлов отклонена или не загрузилась.
func (h *MediaHandler) UploadMedia(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	if h.maxRequestBytes > 0 {
		// объявленный размер проверяем сразу, chunked-тело обрежет MaxBytesReader
		if c.Request.ContentLength > h.maxRequestBytes {
			logger.CtxWarn(c.Request.Context(), "upload request too large",
				"content_length", c.Request.ContentLength,
				"limit", h.maxRequestBytes,
			)
			apperrors.HandleError(c, errUploadTooLarge)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxRequestBytes)
	}

	if err := c.Request.ParseMultipartForm(h.maxMultipartMemory); err != nil {
		logger.CtxWarn(c.Request.Context(), "failed to parse upload form", "error", err.Error())
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			apperrors.HandleError(c, errUploadTooLarge)
			return
		}
		apperrors.HandleError(c, apperrors.New(apperrors.CodeValidationFailed, "media", "Failed to parse multipart form", http.StatusBadRequest))
		return
	}

	var req dto.MediaUploadRequest
	if err := c.ShouldBind(&req); err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Invalid form data: "+err.Error()))
		return
	}
	if !h.Validate(c, &req) {
		return
	}

	req.UserID = userID
	form := c.Request.MultipartForm
	req.Files = append(req.Files, form.File["files"]...)
	req.Files = append(req.Files, form.File["file"]...)

	response, err := h.mediaService.UploadBatch(c.Request.Context(), h.GetDB(c), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	status := http.StatusCreated
	if !response.Complete() {
		status = http.StatusMultiStatus
	}
	c.JSON(status, response)
}

// CreateEmbedded - ссылка на YouTube/SoundCloud вместо файла
func (h *MediaHandler) CreateEmbedded(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.EmbedMediaRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	response, err := h.mediaService.CreateEmbedded(h.GetDB(c), userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response)
}

func (h *MediaHandler) GetMedia(c *gin.Context) {
	m, err := h.mediaService.GetMedia(h.GetDB(c), h.Viewer(c), c.Param("mediaId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewMediaResponse(m))
}

func (h *MediaHandler) GetMyMedia(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var filters types.MediaFilters
	if !h.BindAndValidate_Query(c, &filters) {
		return
	}

	response, err := h.mediaService.ListUserMedia(h.GetDB(c), userID, &filters)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

func (h *MediaHandler) DeleteMedia(c *gin.Context) {
	if err := h.mediaService.DeleteMedia(h.GetDB(c), h.Viewer(c), c.Param("mediaId")); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *MediaHandler) GetStorageUsage(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	usage, err := h.mediaService.GetUserStorageUsage(h.GetDB(c), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, usage)
}

// GetBatchProgress - опрос прогресса для клиентов без websocket
func (h *MediaHandler) GetBatchProgress(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	snap, err := h.mediaService.GetBatchProgress(c.Request.Context(), userID, c.Param("batchId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}
