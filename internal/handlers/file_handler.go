package handlers

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gigboard_backend/internal/logger"
	"gigboard_backend/internal/services"
)

// FileHandler отдаёт объекты хранилища: публичные всем, приватные владельцу и админу
type FileHandler struct {
	*BaseHandler
	mediaService services.MediaService
}

func NewFileHandler(base *BaseHandler, mediaService services.MediaService) *FileHandler {
	return &FileHandler{
		BaseHandler:  base,
		mediaService: mediaService,
	}
}

func (h *FileHandler) RegisterRoutes(r *gin.RouterGroup, mw *RouteMiddleware) {
	files := r.Group("/files")
	{
		files.GET("/:mediaId", mw.OptionalAuth, h.ServeFile)
		files.HEAD("/:mediaId", mw.OptionalAuth, h.ServeFile)
		files.GET("/:mediaId/signed-url", mw.Auth, h.GetSignedURL)
	}
}

// ServeFile стримит файл. Если хранилище отдаёт io.ReadSeeker (локальный диск),
// работают Range и If-Modified-Since через http.ServeContent.
func (h *FileHandler) ServeFile(c *gin.Context) {
	obj, err := h.mediaService.OpenFile(
		c.Request.Context(),
		h.GetDB(c),
		h.Viewer(c),
		c.Param("mediaId"),
		c.Query("thumbnail") == "true",
	)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	defer obj.Body.Close()

	m := obj.Media
	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("ETag", fmt.Sprintf(`"%s"`, m.ID))
	if m.IsPublic {
		c.Header("Cache-Control", "public, max-age=31536000")
	} else {
		c.Header("Cache-Control", "private, no-store")
	}

	disposition := "inline"
	if c.Query("download") == "true" {
		disposition = "attachment"
	}
	c.Header("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": obj.Name}))

	if rs, ok := obj.Body.(io.ReadSeeker); ok {
		http.ServeContent(c.Writer, c.Request, obj.Name, m.UpdatedAt, rs)
		return
	}

	if c.Query("thumbnail") != "true" && m.Size > 0 {
		c.Header("Content-Length", strconv.FormatInt(m.Size, 10))
	}
	c.Status(http.StatusOK)
	if c.Request.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(c.Writer, obj.Body); err != nil {
		// заголовки уже отправлены
		logger.CtxWarn(c.Request.Context(), "file stream interrupted", "media_id", m.ID, "error", err.Error())
	}
}

func (h *FileHandler) GetSignedURL(c *gin.Context) {
	resp, err := h.mediaService.GetSignedURL(c.Request.Context(), h.GetDB(c), h.Viewer(c), c.Param("mediaId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
