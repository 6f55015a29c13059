package main // Entry point package

import (
    "database/sql"
    "log" // Logging library

    "github.com/joho/godotenv" // Loads .env files in development
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/warehouse-pick-queue/internal/config"
    "github.com/iliyamo/warehouse-pick-queue/internal/database"
    "github.com/iliyamo/warehouse-pick-queue/internal/handler"
    "github.com/iliyamo/warehouse-pick-queue/internal/queue"
    "github.com/iliyamo/warehouse-pick-queue/internal/repository"
    "github.com/iliyamo/warehouse-pick-queue/internal/router"
)

func main() {
    // A missing .env is fine; production sets real environment variables.
    _ = godotenv.Load()

    cfg := config.Load()

    // Open the configured database and make sure the schema exists.
    var (
        db  *sql.DB
        err error
    )
    dialect := repository.MySQL
    if cfg.DBDriver == "sqlite3" {
        db, err = database.OpenSQLite(cfg.DBPath)
        dialect = repository.SQLite
    } else {
        db, err = database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    }
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    if err := database.ApplySchema(db, cfg.DBDriver); err != nil {
        log.Fatalf("schema: %v", err)
    }

    // Redis is optional: without it rate limiting and caching degrade to
    // pass-through middleware.
    rdb := config.NewRedisClient()

    // Background consumer for completion events.  It reconnects on its
    // own and never takes the API down with it.
    go func() {
        if err := queue.StartCompletionConsumer(); err != nil {
            log.Printf("completion consumer stopped: %v", err)
        }
    }()

    orders := repository.NewOrderRepo(db, dialect)
    devices := repository.NewDeviceRepo(db, dialect)
    products := repository.NewProductRepo(db)
    picklists := repository.NewPickListRepo(db, dialect)

    h := router.Handlers{
        Devices:  handler.NewDeviceHandler(devices, cfg.JWTSecret, cfg.DeviceTTLMin),
        Queue:    handler.NewQueueHandler(orders),
        Claims:   handler.NewClaimHandler(orders, devices, picklists),
        Scans:    handler.NewScanHandler(orders, devices, products, picklists),
        Orders:   handler.NewOrderHandler(orders, products),
        Products: handler.NewProductHandler(products),
    }

    e := echo.New()
    router.RegisterRoutes(e, h)
    router.RegisterAPI(e, h, cfg.JWTSecret, rdb)

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s, db=%s)", addr, cfg.Env, cfg.DBDriver)

    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
