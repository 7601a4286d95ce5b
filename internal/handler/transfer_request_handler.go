package handler

import (
	"net/http"

	"stocknet/internal/domain/model"
	"stocknet/internal/middleware"
	"stocknet/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /transfer-requests
type TransferRequestHandler struct {
	uc           *usecase.TransferRequestUsecase
	availability *usecase.AvailabilityUsecase
}

func NewTransferRequestHandler(uc *usecase.TransferRequestUsecase, availability *usecase.AvailabilityUsecase) *TransferRequestHandler {
	return &TransferRequestHandler{uc: uc, availability: availability}
}

type TransferRequestItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type CreateTransferRequestRequest struct {
	// STOREロールは省略可（トークンのstore_idを使う）
	StoreID int64                        `json:"store_id"`
	Items   []TransferRequestItemRequest `json:"items"`
}

type RejectTransferRequestRequest struct {
	Reason string `json:"reason"`
}

func (h *TransferRequestHandler) RegisterRoutes(e *echo.Echo, auth echo.MiddlewareFunc) {
	g := e.Group("/transfer-requests")
	g.Use(auth)

	g.POST("", h.create, middleware.RoleGuard(middleware.RoleStaff, middleware.RoleStore))
	g.GET("", h.list)
	g.GET("/:id", h.detail)
	g.POST("/:id/approve", h.approve, middleware.StaffOnly())
	g.POST("/:id/reject", h.reject, middleware.StaffOnly())
	g.GET("/:id/availability", h.checkAvailability, middleware.StaffOnly())
}

func (h *TransferRequestHandler) create(c echo.Context) error {
	var req CreateTransferRequestRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	//店舗は自分の店舗の依頼しか作れない
	if storeID, isStore := getStoreIDFromContext(c); isStore {
		if req.StoreID == 0 {
			req.StoreID = storeID
		}
		if req.StoreID != storeID {
			return c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
		}
	}

	items := make([]usecase.TransferRequestItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, usecase.TransferRequestItemInput{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	tr, err := h.uc.Create(c.Request().Context(), userID, usecase.CreateTransferRequestInput{
		StoreID: req.StoreID,
		Items:   items,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, tr)
}

func (h *TransferRequestHandler) list(c echo.Context) error {
	page, ok := parseIntQuery(c, "page", 1)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid page"})
	}
	limit, ok := parseIntQuery(c, "limit", 20)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
	}
	storeID, ok := parseOptionalInt64Query(c, "store_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid store_id"})
	}

	var status *model.TransferRequestStatus
	if v := c.QueryParam("status"); v != "" {
		st, err := model.ParseTransferRequestStatus(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid status"})
		}
		status = &st
	}

	//店舗は自店舗分だけ
	if own, isStore := getStoreIDFromContext(c); isStore {
		storeID = &own
	}

	out, err := h.uc.List(c.Request().Context(), usecase.ListTransferRequestsInput{
		Status:  status,
		StoreID: storeID,
		Page:    page,
		Limit:   limit,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *TransferRequestHandler) detail(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	tr, err := h.uc.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}

	//他店舗の依頼は見せない
	if own, isStore := getStoreIDFromContext(c); isStore && tr.StoreID != own {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "transfer request not found"})
	}
	return c.JSON(http.StatusOK, tr)
}

func (h *TransferRequestHandler) approve(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	//不足は失敗ではない（fully_fulfilled=false と debt_order_id で返る）
	res, err := h.uc.Approve(c.Request().Context(), userID, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *TransferRequestHandler) reject(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req RejectTransferRequestRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	tr, err := h.uc.Reject(c.Request().Context(), userID, id, req.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, tr)
}

func (h *TransferRequestHandler) checkAvailability(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	res, err := h.availability.CheckAvailability(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
