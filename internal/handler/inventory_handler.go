package handler

import (
	"net/http"
	"time"

	"stocknet/internal/domain/model"
	"stocknet/internal/middleware"
	"stocknet/internal/repository"
	"stocknet/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 在庫操作（スタッフのみ）と監査ログ
type InventoryHandler struct {
	uc    *usecase.InventoryUsecase
	audit *usecase.AuditLogUsecase
}

func NewInventoryHandler(uc *usecase.InventoryUsecase, audit *usecase.AuditLogUsecase) *InventoryHandler {
	return &InventoryHandler{uc: uc, audit: audit}
}

type RestockRequest struct {
	ProductID int64  `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	Reason    string `json:"reason"`
}

type AdjustInventoryRequest struct {
	Quantity *int64 `json:"quantity"`
	Reason   string `json:"reason"`
}

type OnboardProductRequest struct {
	ProductID int64 `json:"product_id"`
}

func (h *InventoryHandler) RegisterRoutes(e *echo.Echo, auth echo.MiddlewareFunc) {
	g := e.Group("/inventory")
	g.Use(auth)
	g.Use(middleware.StaffOnly())

	g.POST("/main/restock", h.restock)
	g.POST("/main/products", h.onboardProduct)
	g.PUT("/:warehouse_id/:product_id", h.adjust)
	g.GET("/logs", h.listLogs)

	e.GET("/audit-logs", h.listAuditLogs, auth, middleware.StaffOnly())
	e.GET("/audit-logs/:resource_type/:resource_id", h.auditTrail, auth, middleware.StaffOnly())
}

func (h *InventoryHandler) restock(c echo.Context) error {
	var req RestockRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	item, err := h.uc.Restock(c.Request().Context(), userID, usecase.RestockInput{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Reason:    req.Reason,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *InventoryHandler) onboardProduct(c echo.Context) error {
	var req OnboardProductRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	item, err := h.uc.OnboardProduct(c.Request().Context(), req.ProductID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *InventoryHandler) adjust(c echo.Context) error {
	warehouseID, ok := parseIDParam(c, "warehouse_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid warehouse_id"})
	}
	productID, ok := parseIDParam(c, "product_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product_id"})
	}

	var req AdjustInventoryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	//0は有効な値なので未指定と区別する
	if req.Quantity == nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "quantity is required"})
	}

	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	item, err := h.uc.Adjust(c.Request().Context(), userID, usecase.AdjustInput{
		WarehouseID: warehouseID,
		ProductID:   productID,
		NewQuantity: *req.Quantity,
		Reason:      req.Reason,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *InventoryHandler) listLogs(c echo.Context) error {
	warehouseID, ok := parseOptionalInt64Query(c, "warehouse_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid warehouse_id"})
	}
	productID, ok := parseOptionalInt64Query(c, "product_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product_id"})
	}
	limit, ok := parseIntQuery(c, "limit", 50)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
	}
	offset, ok := parseIntQuery(c, "offset", 0)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid offset"})
	}

	logs, err := h.uc.ListLogs(c.Request().Context(), usecase.ListLogsInput{
		WarehouseID: warehouseID,
		ProductID:   productID,
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, logs)
}

func (h *InventoryHandler) listAuditLogs(c echo.Context) error {
	limit, ok := parseIntQuery(c, "limit", 50)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
	}
	offset, ok := parseIntQuery(c, "offset", 0)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid offset"})
	}
	actorID, ok := parseOptionalInt64Query(c, "actor_user_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid actor_user_id"})
	}
	resourceID, ok := parseOptionalInt64Query(c, "resource_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid resource_id"})
	}

	f := repository.AuditLogFilter{
		ActorUserID: actorID,
		ResourceID:  resourceID,
		Limit:       limit,
		Offset:      offset,
	}
	if v := c.QueryParam("action"); v != "" {
		a := model.AuditAction(v)
		f.Action = &a
	}
	if v := c.QueryParam("resource_type"); v != "" {
		rt := model.AuditResourceType(v)
		f.ResourceType = &rt
	}
	if v := c.QueryParam("from"); v != "" {
		tm, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid from"})
		}
		f.Since = &tm
	}
	if v := c.QueryParam("to"); v != "" {
		tm, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid to"})
		}
		f.Until = &tm
	}

	logs, err := h.audit.List(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, logs)
}

// /audit-logs/transfer_request/12 のように対象1件の履歴
func (h *InventoryHandler) auditTrail(c echo.Context) error {
	rt := model.AuditResourceType(c.Param("resource_type"))
	if !rt.Valid() {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid resource_type"})
	}
	id, ok := parseIDParam(c, "resource_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid resource_id"})
	}

	logs, err := h.audit.Trail(c.Request().Context(), rt, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, logs)
}
