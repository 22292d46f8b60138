package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gigboard_backend/internal/auth"
	"gigboard_backend/internal/middleware"
	"gigboard_backend/internal/services"
	"gigboard_backend/internal/services/dto"
	"gigboard_backend/internal/types"
)

type ApplicationHandler struct {
	*BaseHandler
	applicationService services.ApplicationService
}

func NewApplicationHandler(base *BaseHandler, applicationService services.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{
		BaseHandler:        base,
		applicationService: applicationService,
	}
}

func (h *ApplicationHandler) RegisterRoutes(r *gin.RouterGroup, mw *RouteMiddleware) {
	applications := r.Group("/applications")
	applications.Use(mw.Auth)
	{
		applications.GET("", middleware.RequirePermission(auth.PermApplicationsRead), h.ListApplications)
		// Заявитель может отозвать свою заявку, права проверяет сервис
		applications.PATCH("/:applicationId/status", h.UpdateStatus)
	}
}

func (h *ApplicationHandler) ListApplications(c *gin.Context) {
	var filters types.ApplicationFilters
	if !h.BindAndValidate_Query(c, &filters) {
		return
	}

	resp, err := h.applicationService.List(h.GetDB(c), h.Viewer(c), &filters)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ApplicationHandler) UpdateStatus(c *gin.Context) {
	if _, ok := h.GetAndAuthorizeUserID(c); !ok {
		return
	}

	var req dto.UpdateApplicationStatusRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	app, err := h.applicationService.UpdateStatus(h.GetDB(c), h.Viewer(c), c.Param("applicationId"), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}
