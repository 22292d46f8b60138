package handlers

import (
	"github.com/gin-gonic/gin"

	"gigboard_backend/ws"
)

// WSHandler подключает клиента к хабу; события (прогресс загрузок) идут по userID
type WSHandler struct {
	*BaseHandler
	manager *ws.WebSocketManager
}

func NewWSHandler(base *BaseHandler, manager *ws.WebSocketManager) *WSHandler {
	return &WSHandler{BaseHandler: base, manager: manager}
}

func (h *WSHandler) RegisterRoutes(r gin.IRoutes, mw *RouteMiddleware) {
	r.GET("/ws", mw.Auth, h.ServeWS)
}

func (h *WSHandler) ServeWS(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	ws.ServeWS(h.manager, c.Writer, c.Request, userID)
}
