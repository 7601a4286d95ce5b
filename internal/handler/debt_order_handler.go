package handler

import (
	"net/http"

	"stocknet/internal/domain/model"
	"stocknet/internal/middleware"
	"stocknet/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /debt-orders（STAFF専用。店舗は依頼のPARTIALで不足を知る）
type DebtOrderHandler struct {
	uc *usecase.DebtOrderUsecase
}

func NewDebtOrderHandler(uc *usecase.DebtOrderUsecase) *DebtOrderHandler {
	return &DebtOrderHandler{uc: uc}
}

type SweepResponse struct {
	Fulfillable []model.DebtOrder `json:"fulfillable"`
}

func (h *DebtOrderHandler) RegisterRoutes(e *echo.Echo, auth echo.MiddlewareFunc) {
	g := e.Group("/debt-orders")
	g.Use(auth, middleware.StaffOnly())

	g.GET("", h.list)
	g.GET("/:id", h.detail)
	g.POST("/sweep", h.sweep)
	g.POST("/:id/redeem", h.redeem)
}

// ?status=PENDING など。無ければ全件
func (h *DebtOrderHandler) list(c echo.Context) error {
	var status *model.DebtOrderStatus
	if v := c.QueryParam("status"); v != "" {
		st, err := model.ParseDebtOrderStatus(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid status"})
		}
		status = &st
	}

	list, err := h.uc.List(c.Request().Context(), status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *DebtOrderHandler) detail(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	d, err := h.uc.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *DebtOrderHandler) sweep(c echo.Context) error {
	flipped, err := h.uc.CheckFulfillableDebtOrders(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SweepResponse{Fulfillable: flipped})
}

func (h *DebtOrderHandler) redeem(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	d, err := h.uc.Redeem(c.Request().Context(), userID, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}
