package api

import (
	"eventomw/cmd/middleware"
	"eventomw/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/wb-go/wbf/ginext"
)

type Routers struct {
	Service service.Service
}

func NewRouters(r *Routers) *ginext.Engine {
	app := ginext.New("release")

	app.Use(middleware.LoggingMiddleware())
	app.Use(cors.Default())
	apiGroup := app.Group("/v1")

	// Public registration surface
	apiGroup.POST("/orders", r.Service.CreateOrder)
	apiGroup.GET("/pricing/active", r.Service.ActivePricing)

	// Mercado Pago notifications
	apiGroup.POST("/webhooks/mercadopago", r.Service.Webhook)
	apiGroup.GET("/webhooks/mercadopago", r.Service.WebhookHealth)

	// Admin dashboard API. Identity/session gating sits in front of this
	// service; these routes trust the perimeter.
	adminGroup := apiGroup.Group("/admin")
	adminGroup.GET("/orders", r.Service.ListOrders)
	adminGroup.GET("/orders/export.csv", r.Service.ExportOrdersCSV)
	adminGroup.GET("/orders/:id", r.Service.GetOrder)
	adminGroup.PUT("/orders/:id", r.Service.UpdateOrder)
	adminGroup.PATCH("/orders/:id/status", r.Service.UpdateOrderStatus)
	adminGroup.DELETE("/orders/:id", r.Service.DeleteOrder)
	adminGroup.GET("/pricing", r.Service.GetPricing)
	adminGroup.PUT("/pricing/active", r.Service.SetActiveBatch)
	adminGroup.PUT("/pricing/batches/:n", r.Service.SetBatchPrices)

	return app
}
