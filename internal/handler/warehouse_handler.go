package handler

import (
	"net/http"

	"stocknet/internal/middleware"
	"stocknet/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /warehouses（スタッフのみ）
type WarehouseHandler struct {
	uc *usecase.WarehouseUsecase
}

func NewWarehouseHandler(uc *usecase.WarehouseUsecase) *WarehouseHandler {
	return &WarehouseHandler{uc: uc}
}

type OnboardStoreRequest struct {
	StoreID int64 `json:"store_id"`
}

func (h *WarehouseHandler) RegisterRoutes(e *echo.Echo, auth echo.MiddlewareFunc) {
	g := e.Group("/warehouses")
	g.Use(auth)
	g.Use(middleware.StaffOnly())

	g.GET("/main", h.main)
	g.GET("/stores", h.listStores)
	g.POST("/stores", h.onboardStore)
}

func (h *WarehouseHandler) main(c echo.Context) error {
	w, err := h.uc.GetMainWarehouse(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, w)
}

func (h *WarehouseHandler) listStores(c echo.Context) error {
	list, err := h.uc.ListStores(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *WarehouseHandler) onboardStore(c echo.Context) error {
	var req OnboardStoreRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	w, err := h.uc.OnboardStore(c.Request().Context(), req.StoreID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, w)
}

// 死活監視（認証なし）
func RegisterHealthRoute(e *echo.Echo) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, SuccessResponse{Message: "ok"})
	})
}
