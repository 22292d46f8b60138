package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gigboard_backend/internal/auth"
	"gigboard_backend/internal/middleware"
	"gigboard_backend/internal/services"
	"gigboard_backend/internal/services/dto"
)

type ScreeningHandler struct {
	*BaseHandler
	screeningService services.ScreeningService
}

func NewScreeningHandler(base *BaseHandler, screeningService services.ScreeningService) *ScreeningHandler {
	return &ScreeningHandler{
		BaseHandler:      base,
		screeningService: screeningService,
	}
}

func (h *ScreeningHandler) RegisterRoutes(r *gin.RouterGroup, mw *RouteMiddleware) {
	screening := r.Group("/screening")
	screening.Use(mw.Auth, middleware.RequirePermission(auth.PermScreeningRun))
	{
		screening.POST("/run", h.RunScreening)
		screening.POST("/applications/:applicationId", h.ScreenApplication)
	}
}

// RunScreening прогоняет отфильтрованные заявки через авто-скрининг
func (h *ScreeningHandler) RunScreening(c *gin.Context) {
	var req dto.RunScreeningRequest
	if c.Request.ContentLength != 0 {
		if !h.BindAndValidate_JSON(c, &req) {
			return
		}
	}

	resp, err := h.screeningService.RunScreening(h.GetDB(c), h.Viewer(c), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ScreeningHandler) ScreenApplication(c *gin.Context) {
	result, err := h.screeningService.ScreenApplication(h.GetDB(c), h.Viewer(c), c.Param("applicationId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
