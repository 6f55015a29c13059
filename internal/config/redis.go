package config

// Redis backs two optional features of the picking API: the cached GET
// /v1/queue response and the token-bucket rate limit on the scan
// endpoints.  Both features are skipped when no server is reachable, so
// a missing Redis never keeps the warehouse from picking.

import (
    "context"
    "crypto/tls"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
)

// redisOptions assembles client options from the environment.  REDIS_HOST
// plus REDIS_PORT win over the REDIS_ADDR shorthand; REDIS_PASSWORD,
// REDIS_DB and REDIS_TLS ("true"/"1") are optional.
func redisOptions() *redis.Options {
    addr := os.Getenv("REDIS_ADDR")
    if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
        addr = host + ":" + port
    }
    if addr == "" {
        addr = "localhost:6379"
    }
    opts := &redis.Options{
        Addr:     addr,
        Password: os.Getenv("REDIS_PASSWORD"),
    }
    if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
        if n, err := strconv.Atoi(dbStr); err == nil {
            opts.DB = n
        }
    }
    if v := os.Getenv("REDIS_TLS"); strings.EqualFold(v, "true") || v == "1" {
        opts.TLSConfig = &tls.Config{InsecureSkipVerify: true}
    }
    return opts
}

// NewRedisClient connects to the configured Redis server and verifies the
// connection with a short ping.  It returns nil when the server does not
// answer; callers treat a nil client as "run without cache and rate
// limiting" rather than an error.
func NewRedisClient() *redis.Client {
    client := redis.NewClient(redisOptions())
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        return nil
    }
    return client
}
