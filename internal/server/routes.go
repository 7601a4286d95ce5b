package server

import (
	"stocknet/internal/config"
	"stocknet/internal/handler"
	"stocknet/internal/middleware"

	"github.com/labstack/echo/v4"
)

type Handlers struct {
	TransferRequests *handler.TransferRequestHandler
	DebtOrders       *handler.DebtOrderHandler
	Inventory        *handler.InventoryHandler
	Warehouses       *handler.WarehouseHandler
}

// /healthz 以外はJWT必須
func RegisterRoutes(e *echo.Echo, cfg config.Config, h Handlers) {
	handler.RegisterHealthRoute(e)

	auth := middleware.AuthJWT(cfg)
	h.TransferRequests.RegisterRoutes(e, auth)
	h.DebtOrders.RegisterRoutes(e, auth)
	h.Inventory.RegisterRoutes(e, auth)
	h.Warehouses.RegisterRoutes(e, auth)
}
