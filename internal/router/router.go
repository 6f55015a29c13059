package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // import the Echo web framework to handle routing
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/warehouse-pick-queue/internal/config"
    "github.com/iliyamo/warehouse-pick-queue/internal/handler"    // import the handlers that implement business logic
    "github.com/iliyamo/warehouse-pick-queue/internal/middleware" // import middleware for device authentication, rate limiting and caching
)

// Handlers bundles every handler the router wires up, so main only has
// to build the set once and hand it over.
type Handlers struct {
    Devices  *handler.DeviceHandler
    Queue    *handler.QueueHandler
    Claims   *handler.ClaimHandler
    Scans    *handler.ScanHandler
    Orders   *handler.OrderHandler
    Products *handler.ProductHandler
}

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Health checks and device registration
// live here; registration cannot require a device token because the
// token is exactly what it issues.
func RegisterRoutes(e *echo.Echo, h Handlers) {
    // Health check endpoint for load balancers and monitoring systems.
    e.GET("/healthz", handler.Health)
    // Device registration issues the token used by everything under /v1.
    e.POST("/v1/devices/register", h.Devices.Register)
}

// RegisterAPI registers the device-authenticated API.  Every route in
// the group runs the DeviceAuth middleware, which validates the token
// and injects the device and customer identity into the request
// context.  The scan endpoints additionally run the Redis token-bucket
// rate limiter, since a misbehaving scanner can hammer them in a tight
// loop, and the queue listing is served through the Redis response
// cache because every idle device polls it.
func RegisterAPI(e *echo.Echo, h Handlers, jwtSecret string, rdb *redis.Client) {
    api := e.Group("/v1")
    api.Use(middleware.DeviceAuth(jwtSecret))

    // Queue management.
    queueCache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
    api.GET("/queue", h.Queue.List, queueCache)
    api.POST("/queue/orders/:id", h.Queue.Enqueue)
    api.DELETE("/queue/orders/:id", h.Queue.Dequeue)
    api.POST("/queue/reorder", h.Queue.Reorder)
    api.POST("/queue/orders/:id/move", h.Queue.Move)

    // Claiming an order for picking.
    api.POST("/queue/orders/:id/claim", h.Claims.Claim)

    // Scanner endpoints, rate limited per device.
    limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
    scan := api.Group("/scan", limiter)
    scan.POST("/picklist", h.Scans.SubmitPickList)
    scan.POST("/pick", h.Scans.RecordPick)
    scan.POST("/complete", h.Scans.Complete)

    // Order management.
    api.POST("/orders", h.Orders.Create)
    api.POST("/orders/:id/cancel", h.Orders.Cancel)

    // Product catalogue.
    api.POST("/products", h.Products.Create)
    api.GET("/products", h.Products.List)
}
